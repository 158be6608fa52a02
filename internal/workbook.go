package internal

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Sheet1"

type Workbook struct {
	// Name is the file name without extension.
	Name   string
	Sheets []WorkbookSheet
}

type WorkbookSheet struct {
	Name       string
	Header     []string
	Rows       [][]interface{}
	Highlights []Highlight
}

// Highlight shades every data row whose Column cell equals Value.
type Highlight struct {
	Column    string
	Value     string
	FillColor string
	FontColor string
}

func (w *Workbook) Write(out io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, sheet := range w.Sheets {
		index, err := f.NewSheet(sheet.Name)
		if err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}

	if len(w.Sheets) > 0 && !w.hasSheet(defaultSheetName) {
		if err := f.DeleteSheet(defaultSheetName); err != nil {
			return err
		}
	}

	return f.Write(out)
}

func (w *Workbook) hasSheet(name string) bool {
	for _, sheet := range w.Sheets {
		if sheet.Name == name {
			return true
		}
	}
	return false
}

func writeSheet(f *excelize.File, sheet WorkbookSheet, headerStyle int) error {
	header := make([]interface{}, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}
	if len(sheet.Header) == 0 {
		return nil
	}

	lastColumn, err := excelize.ColumnNumberToName(len(sheet.Header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", lastColumn+"1", headerStyle); err != nil {
		return err
	}

	widths := make([]int, len(sheet.Header))
	for i, h := range sheet.Header {
		widths[i] = utf8.RuneCountInString(h)
	}

	for r, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return err
		}
		for c, v := range row {
			if c < len(widths) {
				if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[c] {
					widths[c] = n
				}
			}
		}
	}

	for c, width := range widths {
		column, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet.Name, column, column, float64(width+2)); err != nil {
			return err
		}
	}

	return applyHighlights(f, sheet, lastColumn)
}

func applyHighlights(f *excelize.File, sheet WorkbookSheet, lastColumn string) error {
	if len(sheet.Highlights) == 0 {
		return nil
	}
	lastRow := len(sheet.Rows) + 1
	if lastRow < 2 {
		lastRow = 2
	}
	rangeRef := fmt.Sprintf("A2:%s%d", lastColumn, lastRow)

	var formats []excelize.ConditionalFormatOptions
	for _, h := range sheet.Highlights {
		columnIndex := -1
		for i, name := range sheet.Header {
			if name == h.Column {
				columnIndex = i
				break
			}
		}
		if columnIndex < 0 {
			return fmt.Errorf("highlight column %q not in header", h.Column)
		}
		column, err := excelize.ColumnNumberToName(columnIndex + 1)
		if err != nil {
			return err
		}
		style, err := f.NewConditionalStyle(&excelize.Style{
			Font: &excelize.Font{Color: h.FontColor},
			Fill: excelize.Fill{Type: "pattern", Color: []string{h.FillColor}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		formats = append(formats, excelize.ConditionalFormatOptions{
			Type:     "formula",
			Criteria: fmt.Sprintf(`$%s2="%s"`, column, h.Value),
			Format:   style,
		})
	}
	return f.SetConditionalFormat(sheet.Name, rangeRef, formats)
}
