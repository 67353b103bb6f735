package revenue

import (
	"context"
	"fmt"
	"time"

	"foodhub-be/internal/logger"
	"foodhub-be/internal/utils"

	"go.uber.org/zap"
)

const DefaultWindow = 60 * 24 * time.Hour

// Ledger appends revenue rows for delivered lines and reads range totals.
type Ledger interface {
	RecordDelivery(ctx context.Context, lines []Line) ([]Entry, error)
	Summarize(ctx context.Context, from, to *time.Time) (*Summary, error)
}

type ledger struct {
	repo Repository
	now  func() time.Time
}

func NewLedger(repo Repository) Ledger {
	return &ledger{repo: repo, now: time.Now}
}

// RecordDelivery writes one entry per line. It joins the caller's
// transaction when one is open on ctx.
func (l *ledger) RecordDelivery(ctx context.Context, lines []Line) ([]Entry, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RecordDelivery"),
		zap.Int("lines", len(lines)),
	)

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e := EntryFor(line)
		if err := l.repo.Insert(ctx, &e); err != nil {
			return nil, fmt.Errorf("record revenue for item %s: %w", line.OrderItemID, err)
		}
		entries = append(entries, e)
	}

	log.Info("revenue recorded")
	return entries, nil
}

func (l *ledger) Summarize(ctx context.Context, from, to *time.Time) (*Summary, error) {
	start, end := utils.DayRange(from, to, DefaultWindow, l.now())
	return l.repo.Sum(ctx, start, end)
}
