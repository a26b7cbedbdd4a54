// Package signal standardizes payloads shared between data ingestion and detection layers.
package signal

import "time"

// Bar is one time-stamped price sample; only the closing price is consumed downstream.
type Bar struct {
	Pair  string
	Close float64
	Ts    time.Time
}

// Quote is a single live price observation from the streaming endpoint.
type Quote struct {
	Pair  string
	Price float64
	Ts    time.Time
}

// Reading carries the two most recent oscillator values, both in [0,100].
type Reading struct {
	Current  float64
	Previous float64
}

// Kind classifies the outcome of one detection pass.
type Kind int

const (
	// None means no threshold crossing occurred this cycle.
	None Kind = iota
	// Call marks a downward cross into oversold territory.
	Call
	// Put marks an upward cross into overbought territory.
	Put
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	default:
		return "None"
	}
}
