package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/events"
)

// NotificationService reacts to workflow events with structured logs and,
// when a webhook URL is configured, a fire-and-forget POST. Delivery is best
// effort and never affects the workflow.
type NotificationService struct {
	logger     *zap.Logger
	webhookURL string
	client     *http.Client
}

// NewNotificationService constructs the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		logger:     logger,
		webhookURL: cfg.WebhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Register subscribes to the events worth notifying on.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, s.handle)
	dispatcher.Subscribe(events.EventTicketTriaged, s.handle)
	dispatcher.Subscribe(events.EventApprovalDecided, s.handle)
	dispatcher.Subscribe(events.EventResponseSent, s.handle)
}

func (s *NotificationService) handle(ctx context.Context, event events.Event) error {
	s.logger.Info("workflow notification",
		zap.String("event", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("actor", event.Actor))

	if s.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("event", string(event.Type)),
			zap.Error(err))
		return nil
	}
	resp.Body.Close()
	return nil
}
