package alert

import "github.com/tinytelemetry/longevents/internal/model"

// Format converts classified pairs into alert rows, one row per pair.
// Metadata comes from the FINISHED half. Rows are never deduplicated.
func Format(pairs []model.Pair) []model.AlertRow {
	rows := make([]model.AlertRow, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, model.AlertRow{
			ID:       p.Finish.ID,
			Duration: p.Duration,
			Type:     p.Finish.Type,
			Host:     p.Finish.Host,
			Alert:    true,
		})
	}
	return rows
}
