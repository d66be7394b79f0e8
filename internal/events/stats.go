package events

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"phishly/internal/campaigns"
)

// CampaignStats holds aggregate counters for a single campaign.
type CampaignStats struct {
	TotalClicks int64 `json:"total_clicks"`
	UniqueUsers int64 `json:"unique_users"`
	UniqueIPs   int64 `json:"unique_ips"`
}

// DateStat is one point of the per-day click timeline.
type DateStat struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// CampaignSummary is the per-campaign line of the owner-wide view.
type CampaignSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Clicks    int64     `json:"clicks"`
}

// OwnerStats aggregates across every campaign of one owner.
type OwnerStats struct {
	TotalCampaigns int64             `json:"total_campaigns"`
	TotalClicks    int64             `json:"total_clicks"`
	UniqueVictims  int64             `json:"unique_victims"`
	Campaigns      []CampaignSummary `json:"campaigns"`
}

// GetCampaignStats computes the aggregate counters for one campaign.
// A campaign with zero events yields zero counters, not an error.
func GetCampaignStats(db *gorm.DB, campaignID string) (CampaignStats, error) {
	var stats CampaignStats
	err := db.Model(&Event{}).
		Select("COUNT(id) AS total_clicks, COUNT(DISTINCT email) AS unique_users, COUNT(DISTINCT ip_address) AS unique_ips").
		Where("campaign_id = ?", campaignID).
		Scan(&stats).Error
	if err != nil {
		return CampaignStats{}, fmt.Errorf("failed to compute campaign stats: %w", err)
	}
	return stats, nil
}

// GetClicksByDate returns click counts grouped by the calendar date of
// clicked_at, ascending. The timeline is empty, not nil-error, when the
// campaign has no events yet.
func GetClicksByDate(db *gorm.DB, campaignID string) ([]DateStat, error) {
	timeline := make([]DateStat, 0)
	err := db.Model(&Event{}).
		Select("DATE(clicked_at) AS date, COUNT(id) AS clicks").
		Where("campaign_id = ?", campaignID).
		Group("DATE(clicked_at)").
		Order("date ASC").
		Scan(&timeline).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute click timeline: %w", err)
	}
	return timeline, nil
}

// GetOwnerStats computes the owner-wide aggregate view across all campaigns
// created by the given identity.
func GetOwnerStats(db *gorm.DB, owner string) (OwnerStats, error) {
	owned, err := campaigns.GetCampaignsByOwner(db, owner)
	if err != nil {
		return OwnerStats{}, err
	}

	stats := OwnerStats{
		TotalCampaigns: int64(len(owned)),
		Campaigns:      make([]CampaignSummary, 0, len(owned)),
	}

	if len(owned) == 0 {
		return stats, nil
	}

	ids := make([]string, len(owned))
	for i, c := range owned {
		ids[i] = c.ID
	}

	var totals struct {
		TotalClicks   int64
		UniqueVictims int64
	}
	err = db.Model(&Event{}).
		Select("COUNT(id) AS total_clicks, COUNT(DISTINCT email) AS unique_victims").
		Where("campaign_id IN ?", ids).
		Scan(&totals).Error
	if err != nil {
		return OwnerStats{}, fmt.Errorf("failed to compute owner totals: %w", err)
	}
	stats.TotalClicks = totals.TotalClicks
	stats.UniqueVictims = totals.UniqueVictims

	type countRow struct {
		CampaignID string
		Clicks     int64
	}
	var rows []countRow
	err = db.Model(&Event{}).
		Select("campaign_id, COUNT(id) AS clicks").
		Where("campaign_id IN ?", ids).
		Group("campaign_id").
		Scan(&rows).Error
	if err != nil {
		return OwnerStats{}, fmt.Errorf("failed to compute per-campaign counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CampaignID] = row.Clicks
	}

	for _, c := range owned {
		stats.Campaigns = append(stats.Campaigns, CampaignSummary{
			ID:        c.ID,
			Name:      c.Name,
			CreatedAt: c.CreatedAt,
			Clicks:    counts[c.ID],
		})
	}

	return stats, nil
}

// GetCampaignEvents retrieves every event of one campaign in storage order.
func GetCampaignEvents(db *gorm.DB, campaignID string) ([]Event, error) {
	var result []Event
	if err := db.Where("campaign_id = ?", campaignID).Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to get campaign events: %w", err)
	}
	return result, nil
}
