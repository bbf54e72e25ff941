// Command petctl administers the pet-control identity store.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd(newPostgresStore).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
