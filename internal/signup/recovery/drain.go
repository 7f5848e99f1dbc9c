package recovery

import (
	"context"
	"fmt"

	"rozgar-signup/internal/common/logger"
)

// ProcessStarter starts one recovery process instance.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
}

type pendingLister interface {
	Pending(ctx context.Context, limit int) ([]PendingProfile, error)
}

// Drainer hands unfinished outbox rows to the workflow engine, one process
// instance per row. The profile-retry worker closes the row.
type Drainer struct {
	outbox    pendingLister
	starter   ProcessStarter
	processID string
	batchSize int
	logger    logger.Logger
}

func NewDrainer(outbox pendingLister, starter ProcessStarter, processID string, batchSize int, log logger.Logger) *Drainer {
	if batchSize <= 0 {
		batchSize = 50
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Drainer{
		outbox:    outbox,
		starter:   starter,
		processID: processID,
		batchSize: batchSize,
		logger:    log,
	}
}

// Drain starts a process for every pending row in one batch and returns how
// many were started. A row that fails to start is skipped; the next drain
// picks it up again.
func (d *Drainer) Drain(ctx context.Context) (int, error) {
	rows, err := d.outbox.Pending(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending profiles: %w", err)
	}

	started := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return started, err
		}
		key, err := d.starter.StartProcess(ctx, d.processID, map[string]interface{}{
			"pendingId": row.ID,
			"userId":    row.UserID,
			"attempts":  row.Attempts,
		})
		if err != nil {
			d.logger.Warn("Could not start profile recovery", map[string]interface{}{
				"pendingId": row.ID,
				"error":     err.Error(),
			})
			continue
		}
		started++
		d.logger.Debug("Profile recovery started", map[string]interface{}{
			"pendingId":          row.ID,
			"processInstanceKey": key,
		})
	}

	if len(rows) > 0 {
		d.logger.Info("Recovery outbox drained", map[string]interface{}{
			"pending": len(rows),
			"started": started,
		})
	}
	return started, nil
}
