// Package batch classifies whole files of candidate records and writes
// reports about the run.
package batch

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"exoplanet-classifier/internal/mission"

	"github.com/rs/zerolog/log"
)

// ErrUnsupportedFormat is returned for input files that are neither CSV nor
// JSON lines.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Row is one input record. Number is the 1-based data row (CSV) or line
// (JSON lines) it came from.
type Row struct {
	Number int
	Raw    mission.RawRecord
	Err    error // set when the row could not be decoded
}

// Load reads path as CSV or JSON lines depending on its extension.
func Load(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadFromCSV(path)
	case ".jsonl", ".ndjson", ".json":
		return LoadFromJSONLines(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFromCSV loads records from a CSV file whose header row names the
// fields. Empty cells are treated as absent fields.
func LoadFromCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", path).
		Int("rows", len(rows)).
		Msg("CSV records loaded")
	return rows, nil
}

// ReadCSV decodes CSV records from r.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Row
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rows = append(rows, Row{Number: n, Err: fmt.Errorf("row %d: %w", n, err)})
			continue
		}

		row := Row{Number: n, Raw: make(mission.RawRecord, len(header))}
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				row.Err = fmt.Errorf("row %d: field %s: %q is not a number", n, header[i], cell)
				break
			}
			row.Raw[header[i]] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadFromJSONLines loads records from a file holding one JSON object per
// line. Blank lines are skipped but still counted.
func LoadFromJSONLines(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	rows, err := ReadJSONLines(file)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", path).
		Int("rows", len(rows)).
		Msg("JSON records loaded")
	return rows, nil
}

// ReadJSONLines decodes JSON-lines records from r.
func ReadJSONLines(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rows []Row
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw mission.RawRecord
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			rows = append(rows, Row{Number: n, Err: fmt.Errorf("line %d: %w", n, err)})
			continue
		}
		rows = append(rows, Row{Number: n, Raw: raw})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSON lines: %w", err)
	}
	return rows, nil
}
