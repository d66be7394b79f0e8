package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishly/internal/campaigns"
	"phishly/internal/jobs"
	"phishly/internal/testsupport"
)

func TestExpiryJob(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	now := time.Now().UTC()

	expired := &campaigns.Campaign{
		ID:        campaigns.DeriveID("Stale", "alice@example.com"),
		Name:      "Stale",
		TargetURL: "https://example.com",
		CreatedBy: "alice@example.com",
		CreatedAt: now.AddDate(0, 0, -45),
		ExpiresAt: now.AddDate(0, 0, -15),
		Active:    true,
	}
	require.NoError(t, campaigns.EnsureCampaign(logger, db, expired))

	fresh := testsupport.CreateTestCampaign(t, db, "Fresh", "alice@example.com", "https://example.com")

	job := jobs.NewExpiryJob(dbManager, logger)
	require.NoError(t, job.Run())

	stale, err := campaigns.GetByID(db, expired.ID)
	require.NoError(t, err)
	assert.False(t, stale.Active)

	kept, err := campaigns.GetByID(db, fresh.ID)
	require.NoError(t, err)
	assert.True(t, kept.Active)

	// Running again is harmless.
	require.NoError(t, job.Run())
}
