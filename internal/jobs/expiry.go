package jobs

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"phishly/internal/campaigns"
)

// ExpiryJob deactivates campaigns whose TTL has elapsed. Deactivation only
// flips the flag; recorded events are never touched and clicks on expired
// links are still captured.
type ExpiryJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
}

func NewExpiryJob(dbManager cartridge.DBManager, logger *slog.Logger) *ExpiryJob {
	return &ExpiryJob{
		dbManager: dbManager,
		logger:    logger,
	}
}

// Run sweeps active campaigns past their expiry.
func (j *ExpiryJob) Run() error {
	db := j.dbManager.GetConnection()

	affected, err := campaigns.DeactivateExpired(j.logger, db, time.Now().UTC())
	if err != nil {
		j.logger.Error("Failed to deactivate expired campaigns", slog.Any("error", err))
		return err
	}

	if affected > 0 {
		j.logger.Info("Deactivated expired campaigns", slog.Int64("count", affected))
	} else {
		j.logger.Debug("No expired campaigns to deactivate")
	}
	return nil
}
