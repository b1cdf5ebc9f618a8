package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ibeckermayer/xscrape/internal/types"
)

const sheetName = "Posts"

type xlsxWriter struct{}

func (xlsxWriter) ext() string { return ".xlsx" }

// write puts one record per row with numeric and boolean cells typed
func (xlsxWriter) write(path string, records []types.PostRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, r := range records {
		cells := row(r)
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		values[7], values[8], values[9], values[10] = r.ReplyCount, r.RepostCount, r.LikeCount, r.ViewCount
		values[11], values[12] = r.IsRepost, r.IsQuote

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return err
		}
	}

	for i := range Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	return f.SaveAs(path)
}
