package dto

import (
	"time"

	"github.com/opsdesk/triage-service/internal/domain"
)

// TicketResponse is the wire shape for a single ticket.
type TicketResponse struct {
	ID                int64               `json:"id"`
	Subject           string              `json:"subject"`
	Body              string              `json:"body"`
	SubmitterName     string              `json:"submitter_name"`
	SubmitterEmail    string              `json:"submitter_email"`
	AttachmentPath    *string             `json:"attachment_path"`
	PredictedQueue    *string             `json:"predicted_queue"`
	QueueConfidence   *float64            `json:"queue_confidence"`
	CriticalProb      *float64            `json:"critical_prob"`
	IsCritical        bool                `json:"is_critical"`
	PredictedLanguage *string             `json:"predicted_language"`
	Status            domain.TicketStatus `json:"status"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	TriagedAt         *time.Time          `json:"triaged_at"`
	SentAt            *time.Time          `json:"sent_at"`
}

// TicketDetailResponse is a ticket with its responses and approvals.
type TicketDetailResponse struct {
	TicketResponse
	Responses []ResponseDetail `json:"responses"`
	Approvals []ApprovalDetail `json:"approvals"`
}

// ResponseDetail is the wire shape for a drafted/finalized response.
type ResponseDetail struct {
	ID                 int64      `json:"id"`
	TicketID           int64      `json:"ticket_id"`
	DraftLanguage      *string    `json:"draft_language"`
	DraftSubject       *string    `json:"draft_subject"`
	DraftBody          *string    `json:"draft_body"`
	DraftConfidence    *float64   `json:"draft_confidence"`
	NeedsHumanApproval bool       `json:"needs_human_approval"`
	SuggestedTags      *string    `json:"suggested_tags"`
	RetrievalContext   *string    `json:"retrieval_context"`
	FinalSubject       *string    `json:"final_subject"`
	FinalBody          *string    `json:"final_body"`
	CreatedAt          time.Time  `json:"created_at"`
	ApprovedAt         *time.Time `json:"approved_at"`
}

// FromTicket maps a domain ticket onto the wire shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                t.ID,
		Subject:           t.Subject,
		Body:              t.Body,
		SubmitterName:     t.SubmitterName,
		SubmitterEmail:    t.SubmitterEmail,
		AttachmentPath:    t.AttachmentPath,
		PredictedQueue:    t.PredictedQueue,
		QueueConfidence:   t.QueueConfidence,
		CriticalProb:      t.CriticalProb,
		IsCritical:        t.IsCritical,
		PredictedLanguage: t.PredictedLanguage,
		Status:            t.Status,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
		TriagedAt:         t.TriagedAt,
		SentAt:            t.SentAt,
	}
}

// FromTickets maps a ticket slice onto the wire shape.
func FromTickets(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, len(tickets))
	for i := range tickets {
		out[i] = FromTicket(&tickets[i])
	}
	return out
}

// FromResponse maps a domain response onto the wire shape.
func FromResponse(r *domain.Response) ResponseDetail {
	return ResponseDetail{
		ID:                 r.ID,
		TicketID:           r.TicketID,
		DraftLanguage:      r.DraftLanguage,
		DraftSubject:       r.DraftSubject,
		DraftBody:          r.DraftBody,
		DraftConfidence:    r.DraftConfidence,
		NeedsHumanApproval: r.NeedsHumanApproval,
		SuggestedTags:      r.SuggestedTags,
		RetrievalContext:   r.RetrievalContext,
		FinalSubject:       r.FinalSubject,
		FinalBody:          r.FinalBody,
		CreatedAt:          r.CreatedAt,
		ApprovedAt:         r.ApprovedAt,
	}
}

// FromTicketDetail maps a ticket with its history onto the wire shape.
func FromTicketDetail(ticket *domain.Ticket, responses []domain.Response, approvals []domain.Approval) TicketDetailResponse {
	detail := TicketDetailResponse{
		TicketResponse: FromTicket(ticket),
		Responses:      make([]ResponseDetail, len(responses)),
		Approvals:      make([]ApprovalDetail, len(approvals)),
	}
	for i := range responses {
		detail.Responses[i] = FromResponse(&responses[i])
	}
	for i := range approvals {
		detail.Approvals[i] = FromApproval(&approvals[i])
	}
	return detail
}

// TriageRequest body for the triage endpoint.
type TriageRequest struct {
	RunDraft bool `json:"run_draft"`
}

// TriageResponse is the outcome of a triage run.
type TriageResponse struct {
	Success           bool                `json:"success"`
	Message           string              `json:"message"`
	TicketID          int64               `json:"ticket_id"`
	PredictedQueue    string              `json:"predicted_queue"`
	QueueConfidence   float64             `json:"queue_confidence"`
	CriticalProb      float64             `json:"critical_prob"`
	IsCritical        bool                `json:"is_critical"`
	PredictedLanguage *string             `json:"predicted_language,omitempty"`
	DraftGenerated    bool                `json:"draft_generated"`
	NeedsApproval     bool                `json:"needs_approval"`
	Status            domain.TicketStatus `json:"status"`
}
