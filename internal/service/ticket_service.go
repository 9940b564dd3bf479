package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/events"
	"github.com/opsdesk/triage-service/internal/observability"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/pkg/util/errorutil"
)

// TicketService implements intake and read operations for tickets.
type TicketService struct {
	tickets    repository.TicketRepository
	responses  repository.ResponseRepository
	approvals  repository.ApprovalRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	upload     config.UploadConfig
}

// NewTicket is the validated intake payload.
type NewTicket struct {
	Subject        string
	Body           string
	SubmitterName  string
	SubmitterEmail string
	Attachment     *multipart.FileHeader
}

// TicketDetail is a ticket with its drafts and decisions.
type TicketDetail struct {
	Ticket    *domain.Ticket
	Responses []domain.Response
	Approvals []domain.Approval
}

// NewTicketService constructs the service.
func NewTicketService(
	tickets repository.TicketRepository,
	responses repository.ResponseRepository,
	approvals repository.ApprovalRepository,
	dispatcher events.Dispatcher,
	metrics *observability.Metrics,
	logger *zap.Logger,
	upload config.UploadConfig,
) *TicketService {
	return &TicketService{
		tickets:    tickets,
		responses:  responses,
		approvals:  approvals,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		upload:     upload,
	}
}

// Create validates and persists a new ticket in status NEW.
func (s *TicketService) Create(ctx context.Context, in NewTicket) (*domain.Ticket, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(in.Body)
	in.SubmitterName = strings.TrimSpace(in.SubmitterName)
	in.SubmitterEmail = strings.TrimSpace(in.SubmitterEmail)

	if len(in.Subject) < 3 {
		return nil, errorutil.NewValidationError("subject must be at least 3 characters", nil)
	}
	if len(in.Body) < 10 {
		return nil, errorutil.NewValidationError("body must be at least 10 characters", nil)
	}
	if len(in.SubmitterName) < 2 {
		return nil, errorutil.NewValidationError("submitter_name must be at least 2 characters", nil)
	}
	if _, err := mail.ParseAddress(in.SubmitterEmail); err != nil {
		return nil, errorutil.NewValidationError("submitter_email is not a valid email address", nil)
	}

	var attachmentPath *string
	if in.Attachment != nil {
		path, err := s.saveAttachment(in.Attachment)
		if err != nil {
			return nil, err
		}
		attachmentPath = &path
	}

	ticket := &domain.Ticket{
		Subject:        in.Subject,
		Body:           in.Body,
		SubmitterName:  in.SubmitterName,
		SubmitterEmail: in.SubmitterEmail,
		AttachmentPath: attachmentPath,
		Status:         domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordWorkflowStep("intake", string(ticket.Status))
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.SystemActor,
		Payload: events.TicketCreatedPayload{
			Subject:        ticket.Subject,
			SubmitterEmail: ticket.SubmitterEmail,
			HasAttachment:  attachmentPath != nil,
		},
	})
	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("submitter_email", ticket.SubmitterEmail))
	return ticket, nil
}

// Get returns the ticket with its full response and decision history.
func (s *TicketService) Get(ctx context.Context, id int64) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	approvals, err := s.approvals.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: ticket, Responses: responses, Approvals: approvals}, nil
}

// List returns tickets matching the filter, newest first.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, filter)
}

// saveAttachment writes the upload under the configured directory with a
// timestamped name so repeated filenames never collide.
func (s *TicketService) saveAttachment(header *multipart.FileHeader) (string, error) {
	if header.Size > s.upload.MaxFileSizeBytes() {
		return "", errorutil.NewValidationError(
			fmt.Sprintf("attachment exceeds maximum size of %d MB", s.upload.MaxFileSizeMB), nil)
	}
	if err := os.MkdirAll(s.upload.Dir, 0o755); err != nil {
		return "", errorutil.NewInternalError(err)
	}

	src, err := header.Open()
	if err != nil {
		return "", errorutil.NewValidationError("attachment could not be read", nil)
	}
	defer src.Close()

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(header.Filename))
	path := filepath.Join(s.upload.Dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", errorutil.NewInternalError(err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", errorutil.NewInternalError(err)
	}
	return path, nil
}
