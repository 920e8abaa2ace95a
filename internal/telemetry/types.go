// Telemetry sample and relay message types shared across the service.
package telemetry

import (
	"encoding/json"
	"strings"
	"time"
)

// Sample is one telemetry datapoint reported by a device. Every payload
// field is optional: absent fields stay null through storage and relay.
type Sample struct {
	Time time.Time `json:"time"`
	Lat  *float64  `json:"lat"`
	Lon  *float64  `json:"lon"`
	Alt  *float64  `json:"alt"`
	Batt *float64  `json:"batt"`
	Meta *string   `json:"meta"`
}

func (Sample) TableName() string {
	return "telemetry"
}

// KindTelemetry tags sample envelopes on the relay channel.
const KindTelemetry = "telemetry"

// Envelope wraps a sample for relay to live viewers.
type Envelope struct {
	Kind string `json:"kind"`
	Data Sample `json:"data"`
}

// EncodeSample builds the relay frame for a stored sample.
func EncodeSample(s Sample) ([]byte, error) {
	return json.Marshal(Envelope{Kind: KindTelemetry, Data: s})
}

// PhotoPrefix marks relay frames that carry a resolved photo URL.
const PhotoPrefix = "PHOTO:"

// PhotoMessage builds the relay frame for an uploaded photo.
func PhotoMessage(url string) string {
	return PhotoPrefix + url
}

// IsPhotoMessage reports whether a relay frame carries a photo URL.
func IsPhotoMessage(msg string) bool {
	return strings.HasPrefix(msg, PhotoPrefix)
}

// Float returns a pointer to v, for building samples.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s, for building samples.
func String(s string) *string { return &s }
