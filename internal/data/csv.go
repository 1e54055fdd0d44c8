package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"battery-eval/internal/model"
)

// Column names accepted in market data CSV files. The competition files use
// "timestamp" and "Market_Price"; matching is case-insensitive and extra
// columns (temperature, demand, ...) are ignored.
const (
	colTimestamp = "timestamp"
	colPrice     = "market_price"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// LoadCSV reads a market data file into an ordered Dataset.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ReadCSV parses market data from r. The first row must be a header
// containing a price column; a timestamp column is optional.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	tsIdx, priceIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case colTimestamp:
			tsIdx = i
		case colPrice, "price":
			priceIdx = i
		}
	}
	if priceIdx == -1 {
		return nil, fmt.Errorf("no price column in header %v", header)
	}

	var ticks []model.MarketTick
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(rec[priceIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad price %q: %w", row, rec[priceIdx], err)
		}

		tick := model.MarketTick{Price: price}
		if tsIdx >= 0 {
			ts, err := parseTimestamp(rec[tsIdx])
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			tick.Timestamp = ts
		}
		ticks = append(ticks, tick)
	}

	if len(ticks) == 0 {
		return nil, fmt.Errorf("no market data rows")
	}
	return &Dataset{Ticks: ticks}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}
