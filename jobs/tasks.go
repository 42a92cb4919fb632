package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/lenana-drops/lenana/internal/auth"
	"github.com/lenana-drops/lenana/internal/inventory"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerReconciliation scans every product and compares the sum of
	// available-stock ledger deltas with the balance column.
	TaskLedgerReconciliation = "inventory:reconcile"
	// TaskSessionCleanup purges expired session trail rows.
	TaskSessionCleanup = "auth:session_cleanup"
)

// LedgerReconciliationPayload carries scheduling metadata.
type LedgerReconciliationPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerReconciliationTask constructs an Asynq task for the nightly scan.
func NewLedgerReconciliationTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LedgerReconciliationPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerReconciliation, body, asynq.Queue(QueueDefault)), nil
}

// InventorySource provides the reads the reconciliation scan needs.
type InventorySource interface {
	ListProductIDs(ctx context.Context) ([]int64, error)
	Get(ctx context.Context, productID int64) (inventory.Record, error)
	SumAvailableDeltas(ctx context.Context, productID int64) (int64, error)
}

// NewLedgerReconciliationHandler builds the handler for the reconciliation
// scan. Mismatches are logged, never auto-corrected; the ledger is the
// evidence trail and a human decides which side is wrong.
func NewLedgerReconciliationHandler(logger *slog.Logger, inv InventorySource) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LedgerReconciliationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		productIDs, err := inv.ListProductIDs(ctx)
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, productID := range productIDs {
			g.Go(func() error {
				rec, err := inv.Get(ctx, productID)
				if err != nil {
					return err
				}
				ledgerSum, err := inv.SumAvailableDeltas(ctx, productID)
				if err != nil {
					return err
				}
				if ledgerSum != rec.QuantityAvailable {
					logger.Warn("ledger mismatch",
						slog.Int64("product_id", productID),
						slog.Int64("ledger_sum", ledgerSum),
						slog.Int64("balance", rec.QuantityAvailable))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("ledger reconciliation finished", slog.Int("products", len(productIDs)))
		return nil
	}
}

// SessionCleanupPayload carries scheduling metadata.
type SessionCleanupPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSessionCleanupTask constructs an Asynq task for session cleanup.
func NewSessionCleanupTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SessionCleanupPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewSessionCleanupHandler builds the handler that deletes expired session
// trail rows. Redis keys expire on their own; this only tidies the table.
func NewSessionCleanupHandler(logger *slog.Logger, sessions auth.Repository) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SessionCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		deleted, err := sessions.DeleteExpiredSessions(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if deleted > 0 {
			logger.Info("expired sessions purged", slog.Int64("deleted", deleted))
		}
		return nil
	}
}
