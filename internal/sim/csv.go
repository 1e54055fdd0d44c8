package sim

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"battery-eval/internal/model"
)

// WriteEpisodeCSV dumps an episode record for inspection in a spreadsheet.
func WriteEpisodeCSV(path string, record []StepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index",
		"timestamp",
		"market_price",
		"spot_price",
		"action",
		"requested_kw",
		"realized_kw",
		"soc_percent",
		"profit",
		"cum_profit",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	cum := 0.0
	for i, r := range record {
		cum += r.Profit
		row := []string{
			strconv.Itoa(i),
			fmtTime(r.Timestamp),
			fmtFloat(r.Price),
			fmtFloat(r.SpotPrice),
			string(model.ActionFromPowerKW(r.RealizedKW)),
			fmtFloat(r.RequestedKW),
			fmtFloat(r.RealizedKW),
			fmtFloat(r.SoCPercent),
			fmtFloat(r.Profit),
			fmtFloat(cum),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
