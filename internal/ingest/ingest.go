// Package ingest parses equipment CSV uploads and computes their summary
// statistics. Parsing is all-or-nothing: any malformed cell rejects the whole
// file so callers never persist a partial dataset.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	ColumnName        = "Equipment Name"
	ColumnType        = "Type"
	ColumnFlowrate    = "Flowrate"
	ColumnPressure    = "Pressure"
	ColumnTemperature = "Temperature"

	MaxNameLength = 255
	MaxTypeLength = 100
)

// RequiredColumns lists the header names every upload must carry, in the
// order they are reported when missing.
var RequiredColumns = []string{
	ColumnName,
	ColumnType,
	ColumnFlowrate,
	ColumnPressure,
	ColumnTemperature,
}

var (
	ErrEmptyFile = errors.New("CSV file is empty")
	ErrNoRows    = errors.New("CSV file contains no data rows")
	ErrNotText   = errors.New("file is not a UTF-8 encoded CSV")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError reports the first invalid cell found. Line is the 1-based line of
// the record in the source file.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: column %q: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseError wraps a failure of the CSV reader itself (bad quoting, ragged rows).
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "invalid CSV: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err was caused by the uploaded content rather
// than by the server.
func IsInputError(err error) bool {
	var (
		missing *MissingColumnsError
		row     *RowError
		parse   *ParseError
	)
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrNoRows) ||
		errors.Is(err, ErrNotText) ||
		errors.As(err, &missing) ||
		errors.As(err, &row) ||
		errors.As(err, &parse)
}

type Row struct {
	Name        string
	Type        string
	Flowrate    float64
	Pressure    float64
	Temperature float64
}

type Summary struct {
	TotalCount     int
	AvgFlowrate    float64
	AvgPressure    float64
	AvgTemperature float64
	Distribution   map[string]int
}

type Result struct {
	Rows    []Row
	Summary Summary
	// Raw is the uploaded payload with any BOM removed.
	Raw []byte
}

// Parse reads the whole CSV from r, validates it and summarizes it.
func Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return ParseBytes(data)
}

func ParseBytes(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, ErrNotText
	}

	rows, err := readRows(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	summary, err := Summarize(rows)
	if err != nil {
		return nil, err
	}

	return &Result{
		Rows:    rows,
		Summary: summary,
		Raw:     data,
	}, nil
}

func readRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// field counts are checked below, after blank lines are skipped
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, &ParseError{Err: err}
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, 64)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		if blankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		if len(record) != len(header) {
			return nil, &ParseError{Err: &csv.ParseError{StartLine: line, Line: line, Column: 1, Err: csv.ErrFieldCount}}
		}
		row, err := parseRecord(record, index, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// blankRecord reports whether every field is whitespace, as in a line of
// spaces or bare commas left at the end of a hand-edited file.
func blankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return index, nil
}

func parseRecord(record []string, index map[string]int, line int) (Row, error) {
	text := func(col string, maxLen int) (string, error) {
		v := strings.TrimSpace(record[index[col]])
		if v == "" {
			return "", &RowError{Line: line, Column: col, Err: errors.New("value is required")}
		}
		if utf8.RuneCountInString(v) > maxLen {
			return "", &RowError{Line: line, Column: col, Value: v, Err: fmt.Errorf("value longer than %d characters", maxLen)}
		}
		return v, nil
	}
	number := func(col string) (float64, error) {
		raw := strings.TrimSpace(record[index[col]])
		if raw == "" {
			return 0, &RowError{Line: line, Column: col, Err: errors.New("value is required")}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &RowError{Line: line, Column: col, Value: raw, Err: fmt.Errorf("invalid number %q", raw)}
		}
		return v, nil
	}

	var (
		row Row
		err error
	)
	if row.Name, err = text(ColumnName, MaxNameLength); err != nil {
		return Row{}, err
	}
	if row.Type, err = text(ColumnType, MaxTypeLength); err != nil {
		return Row{}, err
	}
	if row.Flowrate, err = number(ColumnFlowrate); err != nil {
		return Row{}, err
	}
	if row.Pressure, err = number(ColumnPressure); err != nil {
		return Row{}, err
	}
	if row.Temperature, err = number(ColumnTemperature); err != nil {
		return Row{}, err
	}
	return row, nil
}

// Summarize computes the averages and the per-type histogram of rows.
func Summarize(rows []Row) (Summary, error) {
	if len(rows) == 0 {
		return Summary{}, ErrNoRows
	}

	var flow, pressure, temp float64
	dist := make(map[string]int)
	for _, r := range rows {
		flow += r.Flowrate
		pressure += r.Pressure
		temp += r.Temperature
		dist[r.Type]++
	}

	n := float64(len(rows))
	return Summary{
		TotalCount:     len(rows),
		AvgFlowrate:    flow / n,
		AvgPressure:    pressure / n,
		AvgTemperature: temp / n,
		Distribution:   dist,
	}, nil
}

type CategoryCount struct {
	Category string
	Count    int
}

// SortedDistribution orders a histogram by count descending, then by
// category name.
func SortedDistribution(dist map[string]int) []CategoryCount {
	out := make([]CategoryCount, 0, len(dist))
	for k, v := range dist {
		out = append(out, CategoryCount{Category: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
