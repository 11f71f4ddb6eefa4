package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

// WriteCSV exports the enriched items of one run.
func WriteCSV(path string, result domain.PipelineResult) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"url", "title", "source_host", "impact", "relevance", "source_quality", "composite", "matches", "approved", "rejection_reason"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, it := range result.Items {
		record := []string{
			it.Item.URL,
			it.Item.Title,
			it.Item.SourceHost,
			fmt.Sprintf("%d", it.Score.Impact),
			fmt.Sprintf("%.2f", it.Score.Relevance),
			fmt.Sprintf("%.1f", it.Score.SourceQuality),
			fmt.Sprintf("%.2f", it.Score.Composite),
			matchSummary(it.Matches),
			fmt.Sprintf("%t", it.Decision.Approved),
			it.Decision.RejectionReason,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

// WriteChart renders the 7-day change of each resolved symbol as a PNG bar
// chart.
func WriteChart(path string, snapshots []domain.PriceSnapshot) error {
	if len(snapshots) == 0 {
		return errors.New("no snapshots to chart")
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(snapshots))
	for _, snap := range snapshots {
		bars = append(bars, chart.Value{
			Label: snap.Symbol,
			Value: snap.ChangePercent.InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("7-day change %% (%s)", time.Now().UTC().Format("2006-01-02")),
		Width:    1280,
		Height:   720,
		BarWidth: 48,
		Bars:     bars,
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f%%")
			},
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
