// Package report renders results as text tables for the terminal.
package report

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/DanilSvechnikar/wildfire-detection/internal/dto"
	"github.com/DanilSvechnikar/wildfire-detection/internal/model"
)

// Results renders the results table in processing order.
func Results(rows []dto.ResultRow) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Image", "Label", "Probability", "Latitude", "Longitude", "Place"})
	fire := 0
	for i, row := range rows {
		if row.Label == dto.LabelFire {
			fire++
		}
		t.AppendRow(table.Row{
			i + 1,
			row.Name,
			row.Label,
			fmt.Sprintf("%.2f", row.Probability),
			fmt.Sprintf("%.6f", row.Latitude),
			fmt.Sprintf("%.6f", row.Longitude),
			row.Place,
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d images", len(rows)), fmt.Sprintf("%d fire", fire)})
	return t.Render()
}

// Skipped renders files that could not be evaluated. It returns "" when there are none.
func Skipped(files []dto.SkippedFile) string {
	if len(files) == 0 {
		return ""
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Skipped", "Error"})
	for _, f := range files {
		t.AppendRow(table.Row{f.Path, f.Error})
	}
	return t.Render()
}

// Runs renders stored runs, newest first.
func Runs(runs []model.Run) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"ID", "Directory", "Started", "Duration", "Processed", "Fire", "Skipped"})
	for _, run := range runs {
		duration := "running"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{
			run.ID,
			run.Directory,
			run.StartedAt.Local().Format(time.DateTime),
			duration,
			run.Processed,
			run.WithFire,
			run.Skipped,
		})
	}
	return t.Render()
}

// Video renders a video or camera summary.
func Video(summary dto.VideoSummary) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Source", "Frames", "Frames with fire", "Max probability"})
	t.AppendRow(table.Row{summary.Source, summary.Frames, summary.FramesWithFire, fmt.Sprintf("%.2f", summary.MaxProbability)})
	return t.Render()
}

// Location renders one resolved coordinate.
func Location(path string, loc model.Location) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Image", "Latitude", "Longitude", "Source", "Place"})
	t.AppendRow(table.Row{path, fmt.Sprintf("%.6f", loc.Latitude), fmt.Sprintf("%.6f", loc.Longitude), loc.Source, loc.Place})
	return t.Render()
}
