// Package recordsource provides the record sources the pipeline ingests from:
// local files (plain, gzip or zstd), the built-in sample dataset, and
// CloudWatch Logs groups.
package recordsource

import (
	"strings"
)

// CloudWatchScheme prefixes an argument that names a CloudWatch log group.
const CloudWatchScheme = "cloudwatch://"

// Kind identifies which source implementation a target resolves to.
type Kind int

const (
	KindBuiltin Kind = iota
	KindFile
	KindCloudWatch
)

func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindFile:
		return "file"
	case KindCloudWatch:
		return "cloudwatch"
	default:
		return "unknown"
	}
}

// Target is a resolved input selection.
type Target struct {
	Kind     Kind
	Location string // file path or log group name; empty for KindBuiltin
}

// Resolve maps the CLI argument onto a target. An absent or whitespace-only
// argument selects defaultInput when set, otherwise the built-in dataset.
func Resolve(arg, defaultInput string) Target {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		if d := strings.TrimSpace(defaultInput); d != "" {
			return Target{Kind: KindFile, Location: d}
		}
		return Target{Kind: KindBuiltin}
	}
	if group, ok := strings.CutPrefix(arg, CloudWatchScheme); ok {
		return Target{Kind: KindCloudWatch, Location: group}
	}
	return Target{Kind: KindFile, Location: arg}
}

func (t Target) String() string {
	switch t.Kind {
	case KindFile:
		return t.Location
	case KindCloudWatch:
		return CloudWatchScheme + t.Location
	default:
		return builtinName
	}
}
