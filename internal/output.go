package internal

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aquasecurity/table"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh/terminal"
)

// Used for file system mocking with Afero library. Set:
// fileSystem = afero.NewOsFs() if not unit testing (code will use real file system) OR
// fileSystem = afero.NewMemMapFs() for a mocked file system (when unit testing)
var fileSystem = afero.NewOsFs()

// Screen tables go here; tests point it at a buffer.
var screen io.Writer = os.Stdout

var cyan = color.New(color.FgCyan).SprintFunc()

var ansiRegExp = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// verbosity = 1 (files only, control messages on screen).
// verbosity = 2 (files, summary tables printed to screen).
// verbosity = 3 (files, summary and full tables printed to screen).
type OutputClient struct {
	Verbosity        int
	CallingModule    string
	PrefixIdentifier string
	Table            TableClient
}

type TableClient struct {
	Wrap          bool
	DirectoryName string
	WriteJSON     bool
}

type TableFile struct {
	// Name is the file name without extension.
	Name      string
	TableCols []string
	Header    []string
	Body      [][]string
	// ScreenVerbosity is the lowest verbosity at which the table is printed.
	// Zero never prints it.
	ScreenVerbosity int
	// SkipFiles keeps the table on screen only.
	SkipFiles bool
}

type renderedFile struct {
	path     string
	contents []byte
}

// WriteFullOutput renders every file into memory first and only then touches
// the file system, so a rendering failure leaves no partial outputs behind.
func (o *OutputClient) WriteFullOutput(tables []TableFile, workbook *Workbook) ([]string, error) {
	for _, tf := range tables {
		if tf.ScreenVerbosity > 0 && o.Verbosity >= tf.ScreenVerbosity {
			o.Table.printTableToScreen(tf)
		}
	}

	var rendered []renderedFile
	for _, tf := range tables {
		if tf.SkipFiles {
			continue
		}
		if tf.Name == "" {
			return nil, fmt.Errorf("error creating csv file: no file name was specified")
		}
		csvBytes, err := renderCSV(tf.Header, tf.Body)
		if err != nil {
			return nil, fmt.Errorf("error rendering %s.csv: %w", tf.Name, err)
		}
		rendered = append(rendered, renderedFile{o.Table.path(tf.Name + ".csv"), csvBytes})

		if o.Table.WriteJSON {
			jsonBytes, err := renderJSON(tf.Header, tf.Body)
			if err != nil {
				return nil, fmt.Errorf("error rendering %s.json: %w", tf.Name, err)
			}
			rendered = append(rendered, renderedFile{o.Table.path(tf.Name + ".json"), jsonBytes})
		}
	}

	if workbook != nil {
		var buf bytes.Buffer
		if err := workbook.Write(&buf); err != nil {
			return nil, fmt.Errorf("error rendering %s.xlsx: %w", workbook.Name, err)
		}
		rendered = append(rendered, renderedFile{o.Table.path(workbook.Name + ".xlsx"), buf.Bytes()})
	}

	if err := o.Table.ensureDirectory(); err != nil {
		return nil, err
	}
	var outputPaths []string
	for _, file := range rendered {
		if err := afero.WriteFile(fileSystem, file.path, file.contents, 0644); err != nil {
			return outputPaths, fmt.Errorf("error writing output file %s: %w", file.path, err)
		}
		outputPaths = append(outputPaths, file.path)
	}

	for _, p := range outputPaths {
		fmt.Fprintf(screen, "[%s][%s] Output written to %s\n", cyan(o.CallingModule), cyan(o.PrefixIdentifier), p)
	}
	return outputPaths, nil
}

func (b *TableClient) path(fileName string) string {
	if b.DirectoryName == "" {
		b.DirectoryName = "."
	}
	return filepath.Join(b.DirectoryName, fileName)
}

func (b *TableClient) ensureDirectory() error {
	if b.DirectoryName == "" || b.DirectoryName == "." {
		return nil
	}
	if _, err := fileSystem.Stat(b.DirectoryName); os.IsNotExist(err) {
		if err = fileSystem.MkdirAll(b.DirectoryName, 0700); err != nil {
			return fmt.Errorf("error creating output directory %s: %w", b.DirectoryName, err)
		}
	}
	return nil
}

func renderCSV(header []string, body [][]string) ([]byte, error) {
	var buf bytes.Buffer
	csvWriter := csv.NewWriter(&buf)
	if err := csvWriter.Write(header); err != nil {
		return nil, err
	}
	for _, row := range body {
		if err := csvWriter.Write(removeColorCodesFromSlice(row)); err != nil {
			return nil, err
		}
	}
	csvWriter.Flush()
	return buf.Bytes(), csvWriter.Error()
}

// renderJSON writes an array of objects keyed by header column.
func renderJSON(header []string, body [][]string) ([]byte, error) {
	jsonData := make([]map[string]string, len(body))
	for i, row := range body {
		jsonData[i] = make(map[string]string, len(header))
		for j, column := range removeColorCodesFromSlice(row) {
			if j < len(header) {
				jsonData[i][header[j]] = column
			}
		}
	}
	return json.MarshalIndent(jsonData, "", "  ")
}

func (b *TableClient) printTableToScreen(tf TableFile) {
	body, header := adjustBodyForTable(tf.TableCols, tf.Header, tf.Body)
	standardColumnWidth := 1000
	if b.Wrap {
		if terminalWidth, _, err := terminal.GetSize(int(os.Stdout.Fd())); err == nil && len(header) > 0 {
			// The offset value was defined by trial and error to get the best wrapping
			trialAndErrorOffset := 1
			standardColumnWidth = terminalWidth / (len(header) + trialAndErrorOffset)
		}
	}
	t := table.New(screen)
	t.SetColumnMaxWidth(standardColumnWidth)
	t.SetHeaders(header...)
	t.AddRows(body...)
	t.SetHeaderStyle(table.StyleBold)
	t.SetRowLines(false)
	t.SetLineStyle(table.StyleCyan)
	t.SetDividers(table.UnicodeRoundedDividers)
	t.SetAlignment(table.AlignLeft)
	t.Render()
}

func removeColorCodesFromSlice(input []string) []string {
	noColorSlice := make([]string, len(input))
	for i, str := range input {
		noColorSlice[i] = ansiRegExp.ReplaceAllString(str, "")
	}
	return noColorSlice
}

// adjustBodyForTable keeps only the columns named in tableHeaders, in that order.
func adjustBodyForTable(tableHeaders []string, fullHeaders []string, fullBody [][]string) ([][]string, []string) {
	if len(tableHeaders) == 0 {
		return fullBody, fullHeaders
	}

	columnIndices := make([]int, 0)
	selectedHeaders := make([]string, 0)

	for _, tableHeader := range tableHeaders {
		for j, fullHeader := range fullHeaders {
			if strings.EqualFold(tableHeader, fullHeader) {
				columnIndices = append(columnIndices, j)
				selectedHeaders = append(selectedHeaders, fullHeader)
				break
			}
		}
	}

	adjustedBody := make([][]string, len(fullBody))
	for i, row := range fullBody {
		newRow := make([]string, len(columnIndices))
		for k, index := range columnIndices {
			newRow[k] = row[index]
		}
		adjustedBody[i] = newRow
	}

	return adjustedBody, selectedHeaders
}

func MockFileSystem(switcher bool) afero.Fs {
	if switcher {
		fileSystem = afero.NewMemMapFs()
	} else {
		fileSystem = afero.NewOsFs()
	}
	return fileSystem
}

// MockScreen redirects screen tables and returns a restore func.
func MockScreen(w io.Writer) func() {
	previous := screen
	screen = w
	return func() { screen = previous }
}
