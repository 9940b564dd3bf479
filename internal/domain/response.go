package domain

import "time"

// Response is a machine-drafted reply for a ticket. A ticket may accumulate
// several drafts over its lifetime; the newest row without final content is
// the pending one. Final fields are set once by an approval decision and the
// row is immutable afterwards.
type Response struct {
	ID                 int64
	TicketID           int64
	DraftLanguage      *string
	DraftSubject       *string
	DraftBody          *string
	DraftConfidence    *float64
	NeedsHumanApproval bool
	SuggestedTags      *string
	RetrievalContext   *string
	FinalSubject       *string
	FinalBody          *string
	CreatedAt          time.Time
	ApprovedAt         *time.Time
}

// IsFinalized reports whether final content has been written.
func (r *Response) IsFinalized() bool {
	return r.FinalBody != nil && *r.FinalBody != ""
}

// FinalContent is the approved subject/body pair written onto a response.
type FinalContent struct {
	Subject string
	Body    string
}
