package display

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pathlight/urlchain/internal/types"
)

// ReportFormatter renders aggregated endpoints for humans or machines
type ReportFormatter struct {
	options FormatterOptions
}

// FormatterOptions controls report formatting
type FormatterOptions struct {
	Format      string // "text" or "json"
	ShowPartial bool   // include partially resolved endpoints
	ShowSources bool   // list every contributing declaration site
	Indent      string
}

// NewReportFormatter creates a formatter with sane defaults
func NewReportFormatter(options FormatterOptions) *ReportFormatter {
	if options.Indent == "" {
		options.Indent = "  "
	}
	return &ReportFormatter{options: options}
}

// Format renders the endpoint report
func (rf *ReportFormatter) Format(endpoints []types.ResolvedEndpoint) string {
	filtered := rf.filter(endpoints)

	switch rf.options.Format {
	case "json":
		return rf.formatJSON(filtered)
	default:
		return rf.formatText(filtered)
	}
}

// filter drops partial endpoints when the report excludes them
func (rf *ReportFormatter) filter(endpoints []types.ResolvedEndpoint) []types.ResolvedEndpoint {
	if rf.options.ShowPartial {
		return endpoints
	}
	filtered := make([]types.ResolvedEndpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if !e.IsPartial {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// formatJSON renders the machine-readable report
func (rf *ReportFormatter) formatJSON(endpoints []types.ResolvedEndpoint) string {
	report := struct {
		Endpoints []types.ResolvedEndpoint `json:"endpoints"`
		Count     int                      `json:"count"`
	}{Endpoints: endpoints, Count: len(endpoints)}

	data, err := json.MarshalIndent(report, "", rf.options.Indent)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// formatText renders the human-readable report
func (rf *ReportFormatter) formatText(endpoints []types.ResolvedEndpoint) string {
	if len(endpoints) == 0 {
		return "No endpoints found.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d endpoint(s)\n\n", len(endpoints))

	for _, endpoint := range endpoints {
		marker := ""
		if endpoint.IsPartial {
			marker = " (partial)"
		}
		if endpoint.Method != "" {
			fmt.Fprintf(&sb, "%s %s%s\n", endpoint.Method, endpoint.FullValue, marker)
		} else {
			fmt.Fprintf(&sb, "%s%s\n", endpoint.FullValue, marker)
		}

		if rf.options.ShowSources {
			for _, ref := range endpoint.References {
				fmt.Fprintf(&sb, "%s%s\n", rf.options.Indent, ref.String())
			}
		} else if len(endpoint.References) > 1 {
			fmt.Fprintf(&sb, "%s%d declarations\n", rf.options.Indent, len(endpoint.References))
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
