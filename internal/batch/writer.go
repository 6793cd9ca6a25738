package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"exoplanet-classifier/internal/mission"
)

// WriteCSV writes records with a header of the mission's field names in slot
// order. Absent fields are written as empty cells, which ReadCSV reads back as
// absent.
func WriteCSV(w io.Writer, id mission.ID, recs []mission.RawRecord) error {
	p, err := mission.Lookup(id)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		header[i] = f.Name
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for n, rec := range recs {
		row := make([]string, len(header))
		for i, name := range header {
			if v, ok := rec[name]; ok {
				row[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("row %d: %w", n+1, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSONLines writes one JSON object per record.
func WriteJSONLines(w io.Writer, recs []mission.RawRecord) error {
	enc := json.NewEncoder(w)
	for n, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("line %d: %w", n+1, err)
		}
	}
	return nil
}
