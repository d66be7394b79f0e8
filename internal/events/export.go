package events

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"gorm.io/gorm"
)

// exportColumns is the fixed CSV header of a campaign export.
var exportColumns = []string{
	"Email", "IP", "Browser", "OS", "Device",
	"Country", "City", "Clicked At", "User-Agent",
}

// ExportCampaignCSV serializes every event of a campaign to a CSV document,
// one row per event in storage order. Timestamps are formatted to second
// precision.
func ExportCampaignCSV(db *gorm.DB, campaignID string) ([]byte, error) {
	rows, err := GetCampaignEvents(db, campaignID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportColumns); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Email,
			row.IPAddress,
			row.Browser,
			row.OS,
			row.DeviceType,
			row.Country,
			row.City,
			row.ClickedAt.Format("2006-01-02 15:04:05"),
			row.UserAgent,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}

	return buf.Bytes(), nil
}
