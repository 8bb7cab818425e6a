package dataset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"yomitore/internal/quiz"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

const byteOrderMark = "\uFEFF"

// Columns are the 0-based positions of the three relevant fields.
type Columns struct {
	Question int `json:"question"`
	Display  int `json:"display"`
	Reading  int `json:"reading"`
}

func DefaultColumns() Columns {
	return Columns{Question: 0, Display: 1, Reading: 2}
}

// ParseText reads the comma separated format: optional BOM, header row,
// CRLF or LF line endings, plain comma splitting with no quoted fields.
func ParseText(data []byte, cols Columns) ([]quiz.Item, error) {
	text := strings.TrimPrefix(string(data), byteOrderMark)
	text = strings.TrimSpace(text)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) <= 1 {
		return nil, &LoadError{Reason: ReasonEmptyFile, Err: errNoDataRows}
	}

	rows := lo.Map(lines[1:], func(line string, _ int) []string {
		return strings.Split(line, ",")
	})
	return buildItems(rows, cols)
}

// ParseXLSX reads the first sheet of a workbook with the same header and
// column rules as ParseText.
func ParseXLSX(r io.Reader, cols Columns) ([]quiz.Item, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &LoadError{Reason: ReasonFetchFailed, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &LoadError{Reason: ReasonEmptyFile, Err: errors.New("workbook has no sheets")}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &LoadError{Reason: ReasonFetchFailed, Err: fmt.Errorf("read rows: %w", err)}
	}
	if len(rows) <= 1 {
		return nil, &LoadError{Reason: ReasonEmptyFile, Err: errNoDataRows}
	}
	return buildItems(rows[1:], cols)
}

func buildItems(rows [][]string, cols Columns) ([]quiz.Item, error) {
	items := lo.FilterMap(rows, func(row []string, _ int) (quiz.Item, bool) {
		return quiz.NewItem(cell(row, cols.Question), cell(row, cols.Display), cell(row, cols.Reading))
	})
	if len(items) == 0 {
		return nil, &LoadError{Reason: ReasonNoValidRows, Err: errNoValidItems}
	}
	return items, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
