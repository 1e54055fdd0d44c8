package model

import "time"

// MarketTick is one dispatch interval of the pre-recorded price stream.
// Prices are $/kWh and may be negative. Ticks are immutable once loaded.
type MarketTick struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}
