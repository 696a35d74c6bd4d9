package outbox

import (
	"context"
	"encoding/json"
	"time"

	"clubmail/internal/events"
	"clubmail/internal/repository"
	"clubmail/pkg/logger"
)

type Processor struct {
	repo      repository.OutboxRepository
	publisher events.Publisher
	batchSize int
	interval  time.Duration
	log       *logger.Logger
}

func NewProcessor(repo repository.OutboxRepository, publisher events.Publisher, batchSize int, interval time.Duration, log *logger.Logger) *Processor {
	return &Processor{
		repo:      repo,
		publisher: publisher,
		batchSize: batchSize,
		interval:  interval,
		log:       log,
	}
}

func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *Processor) processBatch(ctx context.Context) {
	batch, err := p.repo.GetPending(ctx, p.batchSize)
	if err != nil {
		if p.log != nil {
			p.log.Errorf("failed to load pending outbox events: %v", err)
		}
		return
	}
	if len(batch) == 0 {
		return
	}

	for _, e := range batch {
		if err := p.repo.MarkProcessing(ctx, e.ID); err != nil {
			continue
		}

		env := events.Envelope{
			EventType:     e.EventType,
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID.String(),
			OccurredAt:    e.CreatedAt.UTC(),
			Payload:       json.RawMessage(e.Payload),
		}
		payload, err := json.Marshal(env)
		if err != nil {
			_ = p.repo.MarkFailed(ctx, e.ID, err.Error())
			continue
		}

		if err := p.publisher.Publish(ctx, events.RouteChannel(env), payload); err != nil {
			if p.log != nil {
				p.log.Errorf("failed to publish outbox event %s: %v", e.ID, err)
			}
			_ = p.repo.MarkFailed(ctx, e.ID, err.Error())
			continue
		}

		_ = p.repo.MarkCompleted(ctx, e.ID)
	}
}
