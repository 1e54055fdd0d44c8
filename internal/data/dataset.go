package data

import (
	"fmt"

	"battery-eval/internal/model"
)

// Dataset is a finite, ordered, read-only price stream. It is safe to share
// across concurrent trials; nothing mutates it after loading.
type Dataset struct {
	Ticks []model.MarketTick
}

// RangeError reports a requested window that exceeds the available data.
type RangeError struct {
	Start  int
	Length int
	Have   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("window [%d, %d) exceeds available market data (%d ticks)", e.Start, e.Start+e.Length, e.Have)
}

func (d *Dataset) Len() int { return len(d.Ticks) }

// Window returns a contiguous view of length ticks starting at start.
// The returned slice aliases the dataset and must be treated as read-only.
func (d *Dataset) Window(start, length int) ([]model.MarketTick, error) {
	if start < 0 || length <= 0 || start+length > len(d.Ticks) {
		return nil, &RangeError{Start: start, Length: length, Have: len(d.Ticks)}
	}
	return d.Ticks[start : start+length], nil
}

// Prices flattens a tick window into its price sequence.
func Prices(ticks []model.MarketTick) []float64 {
	out := make([]float64, len(ticks))
	for i, t := range ticks {
		out[i] = t.Price
	}
	return out
}
