package artifacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"LPPLWatch/internal/domain/models"
	"LPPLWatch/pkg/util"
)

var csvHeader = []string{"date", "price", "pos_conf", "neg_conf"}

// WriteConfidenceCSV exports one line per aggregated row. price is the
// log-price the row was computed on.
func WriteConfidenceCSV(w io.Writer, rows []models.AggregatedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			util.FormatDay(r.Time),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			strconv.FormatFloat(r.PosConf, 'f', -1, 64),
			strconv.FormatFloat(r.NegConf, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadConfidenceCSV parses a file written by WriteConfidenceCSV.
func ReadConfidenceCSV(r io.Reader) ([]models.AggregatedRow, error) {
	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	rows := make([]models.AggregatedRow, 0, len(recs)-1)
	for i, rec := range recs[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("csv line %d: want %d fields, got %d", i+2, len(csvHeader), len(rec))
		}
		t, ok := util.ParseTime(rec[0])
		if !ok {
			return nil, fmt.Errorf("csv line %d: bad date %q", i+2, rec[0])
		}
		var vals [3]float64
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[j+1], 64); err != nil {
				return nil, fmt.Errorf("csv line %d: %s: %w", i+2, csvHeader[j+1], err)
			}
		}
		rows = append(rows, models.AggregatedRow{Time: t, Price: vals[0], PosConf: vals[1], NegConf: vals[2]})
	}
	return rows, nil
}
