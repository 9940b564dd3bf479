// Package worker contains background loops that run alongside the HTTP
// server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/config"
	"github.com/opsdesk/triage-service/internal/domain"
	"github.com/opsdesk/triage-service/internal/repository"
	"github.com/opsdesk/triage-service/internal/service"
)

// AutoSendWorker periodically sweeps DRAFTED tickets and dispatches their
// draft responses. Tickets only reach DRAFTED when no human approval is
// needed, so the sweep is purely a retry path for drafts whose immediate
// send failed.
type AutoSendWorker struct {
	tickets   repository.TicketRepository
	responses repository.ResponseRepository
	sender    *service.ResponseDispatcher
	logger    *zap.Logger
	cfg       config.WorkerConfig
	stop      chan struct{}
	done      chan struct{}
}

// NewAutoSendWorker constructs the worker.
func NewAutoSendWorker(
	tickets repository.TicketRepository,
	responses repository.ResponseRepository,
	sender *service.ResponseDispatcher,
	logger *zap.Logger,
	cfg config.WorkerConfig,
) *AutoSendWorker {
	return &AutoSendWorker{
		tickets:   tickets,
		responses: responses,
		sender:    sender,
		logger:    logger,
		cfg:       cfg,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop. No-op when the worker is disabled.
func (w *AutoSendWorker) Start() {
	if !w.cfg.AutoSendEnabled {
		w.logger.Info("auto-send worker disabled")
		close(w.done)
		return
	}
	go w.run()
}

// Stop signals the loop to exit and waits for the in-flight sweep.
func (w *AutoSendWorker) Stop() {
	close(w.stop)
	<-w.done
}

func (w *AutoSendWorker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.cfg.Interval())
	defer ticker.Stop()

	w.logger.Info("auto-send worker started",
		zap.Duration("interval", w.cfg.Interval()),
		zap.Int("batch_size", w.cfg.AutoSendBatchSize))
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.cfg.Interval())
			w.Sweep(ctx)
			cancel()
		}
	}
}

// Sweep dispatches one batch of eligible DRAFTED tickets. Exported so tests
// and operators can trigger a pass directly.
func (w *AutoSendWorker) Sweep(ctx context.Context) {
	status := domain.TicketStatusDrafted
	tickets, err := w.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Status: &status,
		Limit:  w.cfg.AutoSendBatchSize,
	})
	if err != nil {
		w.logger.Warn("auto-send sweep failed to list tickets", zap.Error(err))
		return
	}

	for i := range tickets {
		ticket := &tickets[i]
		resp, err := w.responses.LatestByTicket(ctx, ticket.ID)
		if err != nil {
			w.logger.Warn("auto-send skipped ticket",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if resp == nil || resp.NeedsHumanApproval || resp.IsFinalized() || resp.DraftBody == nil {
			continue
		}

		subject := ticket.Subject
		if resp.DraftSubject != nil && *resp.DraftSubject != "" {
			subject = *resp.DraftSubject
		}
		if _, err := w.sender.Dispatch(ctx, ticket, subject, *resp.DraftBody, true); err != nil {
			// Stays DRAFTED; picked up again next sweep.
			w.logger.Warn("auto-send dispatch failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		}
	}
}
