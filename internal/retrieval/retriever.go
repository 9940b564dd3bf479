// Package retrieval finds reference material for the drafting oracle:
// previously sent tickets whose answers can ground a new draft.
package retrieval

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/triage-service/internal/oracle"
)

// Retriever returns up to k reference snippets for a ticket. A failing
// retriever degrades drafting, it never blocks it.
type Retriever interface {
	Similar(ctx context.Context, subject, body, queue string, k int) ([]oracle.Snippet, error)
}

type pgRetriever struct {
	pool *pgxpool.Pool
}

// NewPGRetriever searches historical sent tickets in Postgres.
func NewPGRetriever(pool *pgxpool.Pool) Retriever {
	return &pgRetriever{pool: pool}
}

// Similar matches sent tickets in the same queue whose subject or body share
// keywords with the new ticket. Finalized response bodies double as answers,
// with draft bodies as fallback for auto-sent tickets.
func (r *pgRetriever) Similar(ctx context.Context, subject, body, queue string, k int) ([]oracle.Snippet, error) {
	if k <= 0 {
		k = 3
	}
	terms := keywords(subject+" "+body, 6)
	if len(terms) == 0 {
		return nil, nil
	}

	const query = `
        SELECT t.subject, COALESCE(r.final_body, r.draft_body, ''), COALESCE(t.predicted_queue, '')
        FROM tickets t
        JOIN responses r ON r.ticket_id = t.id
        WHERE t.status = 'SENT'
          AND ($1 = '' OR t.predicted_queue = $1)
          AND ($2 = '' OR t.subject ILIKE '%' || $2 || '%' OR t.body ILIKE '%' || $2 || '%')
        ORDER BY t.sent_at DESC NULLS LAST
        LIMIT $3`

	seen := make(map[string]struct{})
	var snippets []oracle.Snippet
	for _, term := range terms {
		rows, err := r.pool.Query(ctx, query, queue, term, k)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var s oracle.Snippet
			if err := rows.Scan(&s.Subject, &s.Answer, &s.Queue); err != nil {
				rows.Close()
				return nil, err
			}
			if _, dup := seen[s.Subject]; dup || s.Answer == "" {
				continue
			}
			seen[s.Subject] = struct{}{}
			if len(s.Answer) > 200 {
				s.Answer = s.Answer[:200]
			}
			snippets = append(snippets, s)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if len(snippets) >= k {
			return snippets[:k], nil
		}
	}
	return snippets, nil
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "not": {}, "have": {},
	"this": {}, "that": {}, "from": {}, "are": {}, "was": {}, "but": {},
	"can": {}, "cannot": {}, "please": {}, "help": {}, "issue": {},
}

// keywords extracts up to max lowercase terms worth searching on.
func keywords(text string, max int) []string {
	fields := strings.Fields(strings.ToLower(text))
	var out []string
	seen := make(map[string]struct{})
	for _, f := range fields {
		f = strings.Trim(f, ".,!?:;()[]\"'")
		if len(f) < 4 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
		if len(out) == max {
			break
		}
	}
	return out
}
