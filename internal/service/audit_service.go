package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/petcontrol/pet-control/internal/events"
)

// AuditService writes authentication events to the structured log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLoginFailed)
	a.dispatcher.Subscribe(events.EventLoginLocked, a.handleLoginLocked)
	a.dispatcher.Subscribe(events.EventLogout, a.handleLogout)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.logger.Info("LoginSucceeded", eventFields(event)...)
	return nil
}

func (a *AuditService) handleLoginFailed(_ context.Context, event events.Event) error {
	fields := eventFields(event)
	if p, ok := event.Payload.(events.LoginFailedPayload); ok {
		fields = append(fields, zap.String("reason", p.Reason), zap.Int64("attempts", p.Attempts))
	}
	a.logger.Info("LoginFailed", fields...)
	return nil
}

func (a *AuditService) handleLoginLocked(_ context.Context, event events.Event) error {
	a.logger.Warn("LoginLocked", eventFields(event)...)
	return nil
}

func (a *AuditService) handleLogout(_ context.Context, event events.Event) error {
	fields := eventFields(event)
	if p, ok := event.Payload.(events.LogoutPayload); ok {
		fields = append(fields, zap.String("token_id", p.TokenID))
	}
	a.logger.Info("Logout", fields...)
	return nil
}

func eventFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	return fields
}
