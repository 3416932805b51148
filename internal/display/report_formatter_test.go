package display

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/urlchain/internal/types"
)

func sampleEndpoints() []types.ResolvedEndpoint {
	return []types.ResolvedEndpoint{
		{
			FullValue: "https://api.example.com/login",
			Method:    "POST",
			References: []types.Declaration{
				{Name: "loginURL", File: "API.swift", Line: 12, Kind: types.SymbolKindProperty, OwnerType: "APIService"},
			},
		},
		{
			FullValue: "{base}/users/{userID}",
			IsPartial: true,
			References: []types.Declaration{
				{Name: "profileURL", File: "API.swift", Line: 20, Kind: types.SymbolKindProperty, OwnerType: "APIService"},
				{Name: "userURL", File: "Users.swift", Line: 5, Kind: types.SymbolKindProperty},
			},
		},
	}
}

func TestFormatText(t *testing.T) {
	rf := NewReportFormatter(FormatterOptions{Format: "text", ShowPartial: true})
	out := rf.Format(sampleEndpoints())

	assert.Contains(t, out, "2 endpoint(s)")
	assert.Contains(t, out, "POST https://api.example.com/login")
	assert.Contains(t, out, "{base}/users/{userID} (partial)")
	assert.Contains(t, out, "2 declarations")
	assert.NotContains(t, out, "API.swift:20")
}

func TestFormatText_ShowSources(t *testing.T) {
	rf := NewReportFormatter(FormatterOptions{Format: "text", ShowPartial: true, ShowSources: true})
	out := rf.Format(sampleEndpoints())

	assert.Contains(t, out, "APIService.loginURL@API.swift:12")
	assert.Contains(t, out, "APIService.profileURL@API.swift:20")
	assert.Contains(t, out, "userURL@Users.swift:5")
	assert.NotContains(t, out, "2 declarations")
}

func TestFormatText_HidesPartial(t *testing.T) {
	rf := NewReportFormatter(FormatterOptions{Format: "text", ShowPartial: false})
	out := rf.Format(sampleEndpoints())

	assert.Contains(t, out, "1 endpoint(s)")
	assert.NotContains(t, out, "{base}/users/{userID}")
}

func TestFormatText_Empty(t *testing.T) {
	rf := NewReportFormatter(FormatterOptions{Format: "text"})
	assert.Equal(t, "No endpoints found.\n", rf.Format(nil))
}

func TestFormatJSON(t *testing.T) {
	rf := NewReportFormatter(FormatterOptions{Format: "json", ShowPartial: true})
	out := rf.Format(sampleEndpoints())

	var report struct {
		Endpoints []types.ResolvedEndpoint `json:"endpoints"`
		Count     int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.Equal(t, 2, report.Count)
	require.Len(t, report.Endpoints, 2)
	assert.Equal(t, "https://api.example.com/login", report.Endpoints[0].FullValue)
	assert.True(t, report.Endpoints[1].IsPartial)
}

func TestFormatJSON_FilterAppliesBeforeCount(t *testing.T) {
	rf := NewReportFormatter(FormatterOptions{Format: "json", ShowPartial: false})
	out := rf.Format(sampleEndpoints())

	var report struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Count)
}
