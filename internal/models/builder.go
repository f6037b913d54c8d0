package models

import "time"

// DefaultBuilderName is used when a builder is registered without a name.
const DefaultBuilderName = "Untitled Builder"

// Builder is a named backend capability that can execute payloads.
type Builder struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	CreatedAt   float64        `json:"created_at"`
	Metadata    map[string]any `json:"metadata"`
}

// EpochSeconds converts t to fractional seconds since the Unix epoch, the
// timestamp representation used on the wire.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// TimeFromEpoch converts fractional epoch seconds back to a time.Time.
func TimeFromEpoch(seconds float64) time.Time {
	return time.Unix(0, int64(seconds*float64(time.Second)))
}
