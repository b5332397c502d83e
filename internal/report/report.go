// Package report aggregates the outcome of one ingestion run and renders
// it for humans (text) or machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/mirosk/newsradar/internal/intel"
)

// Stats are the raw counters the pipeline collects while running.
type Stats struct {
	TasksTotal     int
	TasksFailed    int
	Discovered     int
	Duplicates     int
	Blacklisted    int
	FetchFailures  int
	TooShort       int
	ClassifyFailed int
	Unrelated      int
	Invalid        int
	Accepted       int
	Persisted      int
}

// Summary is the full run report.
type Summary struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Stats     Stats
	// HighValue lists accepted articles at or above the high-value
	// threshold, best first.
	HighValue []intel.Article
}

// Build assembles a Summary from the run's counters and accepted articles.
func Build(runID string, start, end time.Time, stats Stats, accepted []intel.Article) Summary {
	var highValue []intel.Article
	for _, a := range accepted {
		if a.HighValue() {
			highValue = append(highValue, a)
		}
	}
	sort.Slice(highValue, func(i, j int) bool {
		return highValue[i].ValueScore > highValue[j].ValueScore
	})

	return Summary{
		RunID:     runID,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Stats:     stats,
		HighValue: highValue,
	}
}

// WriteJSON renders the summary as indented JSON.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Ingestion Run {{.RunID}}
------------------------
Time:         {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})
Tasks:        {{.Stats.TasksTotal}} total, {{.Stats.TasksFailed}} failed
Discovered:   {{.Stats.Discovered}} candidates
Skipped:      {{.Stats.Duplicates}} duplicate, {{.Stats.Blacklisted}} blacklisted, {{.Stats.FetchFailures}} fetch failures, {{.Stats.TooShort}} too short
Filtered:     {{.Stats.Unrelated}} unrelated, {{.Stats.ClassifyFailed}} classification failures
Accepted:     {{.Stats.Accepted}} articles ({{.Stats.Persisted}} newly persisted)

High-value intelligence (score >= 70):
{{- range .HighValue}}
  [{{.ValueScore}}] {{.Title}}
        {{.ValueReason}}
{{- else}}
  none this run
{{- end}}
`

// WriteText renders a human-readable summary.
func WriteText(w io.Writer, summary Summary) error {
	t, err := template.New("runReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

const articlesTmpl = `{{len .}} article(s)
{{range .}}
[{{.ValueScore}}] {{.Title}}
      {{.URL}}
      {{.Category}} | {{.Topic}} | {{.Source}} | {{.PublishDate}}
      {{.Summary}}
{{end}}`

// WriteArticlesText renders store query results for the terminal.
func WriteArticlesText(w io.Writer, articles []intel.Article) error {
	t, err := template.New("articleList").Parse(articlesTmpl)
	if err != nil {
		return fmt.Errorf("parse article list template: %w", err)
	}
	if err := t.Execute(w, articles); err != nil {
		return fmt.Errorf("render article list: %w", err)
	}
	return nil
}

// WriteArticlesJSON renders store query results as indented JSON.
func WriteArticlesJSON(w io.Writer, articles []intel.Article) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return fmt.Errorf("encode article list: %w", err)
	}
	return nil
}
