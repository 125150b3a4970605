// Package alert decides which correlated pairs are alert-worthy and shapes
// them into rows for the alert sink.
package alert

import "github.com/tinytelemetry/longevents/internal/model"

// Classify returns the pairs whose duration strictly exceeds threshold,
// in input order.
func Classify(pairs []model.Pair, threshold int64) []model.Pair {
	out := make([]model.Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Duration > threshold {
			out = append(out, p)
		}
	}
	return out
}
