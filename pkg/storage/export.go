package storage

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	runsSheet    = "Runs"
	resultsSheet = "Results"
)

// ExportXLSX writes the last limit runs and page results to an Excel workbook.
func (d *DB) ExportXLSX(ctx context.Context, path string, limit int) error {
	runs, err := d.GetRunStats(ctx, limit)
	if err != nil {
		return err
	}
	results, err := d.ListRecentResults(ctx, limit)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", runsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(resultsSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	runRows := [][]interface{}{{"Run", "Started", "Finished", "Dry run", "Total", "Passed", "Needs revision", "Inventoried only", "Fetch failed", "Local missing", "Persist failed"}}
	for _, r := range runs {
		finished := ""
		if !r.FinishedAt.IsZero() {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		runRows = append(runRows, []interface{}{r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), finished, r.DryRun,
			r.Total, r.Passed, r.NeedsRevision, r.InventoriedOnly, r.FetchFailed, r.LocalMissing, r.PersistFailed})
	}
	resultRows := [][]interface{}{{"Run", "Occurred", "Page", "Slug", "Outcome", "Review status", "Videos", "Images", "Words", "Missing videos", "Extra videos", "Missing images", "Notes"}}
	for _, r := range results {
		resultRows = append(resultRows, []interface{}{r.RunID, r.OccurredAt.Format("2006-01-02 15:04:05"), r.PageID, r.Slug, r.Outcome, r.ReviewStatus,
			r.VideoCount, r.ImageCount, r.WordCount, r.MissingVideos, r.ExtraVideos, r.MissingImages, r.Notes})
	}

	for sheet, rows := range map[string][][]interface{}{runsSheet: runRows, resultsSheet: resultRows} {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
			}
		}
		last, _ := excelize.CoordinatesToCellName(len(rows[0]), 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
