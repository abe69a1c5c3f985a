package main

import (
	"context"
	"log"
	"time"

	"bankinghub/bills"
	"bankinghub/ledger"
)

// Scheduler periodically dispatches due transfers and runs bill upkeep.
type Scheduler struct {
	ledger     *ledger.Service
	bills      *bills.Service
	dispatcher Dispatcher
	interval   time.Duration
	now        func() time.Time
}

// NewScheduler creates a scheduler. A non-positive interval means one minute.
func NewScheduler(led *ledger.Service, b *bills.Service, d Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		ledger:     led,
		bills:      b,
		dispatcher: d,
		interval:   interval,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run ticks once immediately, then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	ids, err := s.ledger.DueTransfers(ctx)
	if err != nil {
		log.Printf("scheduler: list due transfers: %v", err)
	}
	for _, id := range ids {
		if err := s.dispatcher.Dispatch(ctx, id); err != nil {
			log.Printf("scheduler: dispatch transfer %d: %v", id, err)
		}
	}

	today := s.now()
	// Auto-pay first so due auto-pay bills are settled rather than flagged.
	if n, err := s.bills.RunAutoPay(ctx, today); err != nil {
		log.Printf("scheduler: auto-pay: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: auto-paid %d bills", n)
	}
	if n, err := s.bills.MarkOverdue(ctx, today); err != nil {
		log.Printf("scheduler: mark overdue bills: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: %d bills overdue", n)
	}
}
