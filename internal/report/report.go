// Package report renders queried alert rows for the operator.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/longevents/internal/model"
)

// Format selects how rows are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatLog   Format = "log"
)

// ParseFormat validates a configured output format. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatYAML, FormatJSON, FormatLog:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, yaml, json or log)", s)
	}
}

var (
	colorBorder = lipgloss.Color("#5A6C8C")
	colorHeader = lipgloss.Color("#7AA2F7")
	colorAlert  = lipgloss.Color("#FF6666")

	headerStyle = lipgloss.NewStyle().Foreground(colorHeader).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	alertStyle  = cellStyle.Foreground(colorAlert)
)

type rowView struct {
	ID       string `json:"id" yaml:"id"`
	Duration int64  `json:"duration" yaml:"duration"`
	Type     string `json:"type" yaml:"type"`
	Host     string `json:"host" yaml:"host"`
	Alert    bool   `json:"alert" yaml:"alert"`
}

func views(rows []model.AlertRow) []rowView {
	out := make([]rowView, len(rows))
	for i, r := range rows {
		out[i] = rowView(r)
	}
	return out
}

// Render writes rows to w in the given format. FormatLog writes to logger
// instead of w.
func Render(w io.Writer, rows []model.AlertRow, format Format, logger *zap.Logger) error {
	switch format {
	case FormatTable, "":
		return renderTable(w, rows)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(views(rows)); err != nil {
			return fmt.Errorf("report: yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(views(rows)); err != nil {
			return fmt.Errorf("report: json: %w", err)
		}
		return nil
	case FormatLog:
		if logger == nil {
			logger = zap.NewNop()
		}
		for _, r := range rows {
			logger.Info("long event",
				zap.String("id", r.ID),
				zap.Int64("duration", r.Duration),
				zap.String("type", r.Type),
				zap.String("host", r.Host),
				zap.Bool("alert", r.Alert),
			)
		}
		return nil
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

func renderTable(w io.Writer, rows []model.AlertRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "no long events")
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("ID", "DURATION", "TYPE", "HOST", "ALERT").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return numberStyle
			case col == 4:
				return alertStyle
			default:
				return cellStyle
			}
		})
	for _, r := range rows {
		t.Row(r.ID, strconv.FormatInt(r.Duration, 10), r.Type, r.Host, strconv.FormatBool(r.Alert))
	}

	_, err := fmt.Fprintf(w, "%s\n%d long event(s)\n", t.Render(), len(rows))
	return err
}
