package internal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookWrite(t *testing.T) {
	wb := Workbook{
		Name: "summary",
		Sheets: []WorkbookSheet{
			{
				Name:   "Counts",
				Header: []string{"Kind", "Count"},
				Rows:   [][]interface{}{{"OS", 2}, {"Data", 5}},
			},
			{
				Name:   "Severity",
				Header: []string{"Label", "Severity", "Count"},
				Rows:   [][]interface{}{{"First", "High", 1}, {"Second", "Low", 3}},
				Highlights: []Highlight{
					{Column: "Severity", Value: "High", FillColor: "FFC7CE", FontColor: "9C0006"},
					{Column: "Severity", Value: "Low", FillColor: "C6EFCE", FontColor: "006100"},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Counts", "Severity"}, f.GetSheetList())

	rows, err := f.GetRows("Counts")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Kind", "Count"}, {"OS", "2"}, {"Data", "5"}}, rows)

	formats, err := f.GetConditionalFormats("Severity")
	require.NoError(t, err)
	require.Contains(t, formats, "A2:C3")
	require.Len(t, formats["A2:C3"], 2)
	assert.Equal(t, "formula", formats["A2:C3"][0].Type)
	assert.Contains(t, formats["A2:C3"][0].Criteria, `$B2="High"`)
	assert.Contains(t, formats["A2:C3"][1].Criteria, `$B2="Low"`)

	formats, err = f.GetConditionalFormats("Counts")
	require.NoError(t, err)
	assert.Empty(t, formats)
}

func TestWorkbookWriteHeaderOnly(t *testing.T) {
	wb := Workbook{
		Name: "empty",
		Sheets: []WorkbookSheet{{
			Name:       "Only",
			Header:     []string{"A", "B"},
			Highlights: []Highlight{{Column: "B", Value: "High", FillColor: "FFC7CE", FontColor: "9C0006"}},
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Only"}, f.GetSheetList())
	rows, err := f.GetRows("Only")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}}, rows)
}

func TestWorkbookUnknownHighlightColumn(t *testing.T) {
	wb := Workbook{Sheets: []WorkbookSheet{{
		Name:       "S",
		Header:     []string{"A"},
		Highlights: []Highlight{{Column: "Z", Value: "x"}},
	}}}
	assert.Error(t, wb.Write(&bytes.Buffer{}))
}
