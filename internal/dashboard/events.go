package dashboard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
	colorWhite   = "\x1b[37m"
)

// EventKind discriminates relay frames after classification.
type EventKind int

const (
	// EventText is any frame that is neither telemetry nor a photo, such
	// as a command relayed from another member.
	EventText EventKind = iota
	// EventTelemetry is a sample envelope broadcast by the ingestion path.
	EventTelemetry
	// EventPhoto announces an uploaded photo's URL.
	EventPhoto
)

// Event is one classified relay frame.
type Event struct {
	Kind   EventKind
	At     time.Time
	Sample telemetry.Sample // set when Kind is EventTelemetry
	URL    string           // set when Kind is EventPhoto
	Text   string           // the raw frame
}

// Classify parses a relay frame. Telemetry envelopes carry their own server
// timestamp; everything else is stamped with receivedAt.
func Classify(frame []byte, receivedAt time.Time) Event {
	text := string(frame)

	var env telemetry.Envelope
	if err := json.Unmarshal(frame, &env); err == nil && env.Kind == telemetry.KindTelemetry {
		at := env.Data.Time
		if at.IsZero() {
			at = receivedAt
		}
		return Event{Kind: EventTelemetry, At: at, Sample: env.Data, Text: text}
	}

	if telemetry.IsPhotoMessage(text) {
		return Event{
			Kind: EventPhoto,
			At:   receivedAt,
			URL:  strings.TrimPrefix(text, telemetry.PhotoPrefix),
			Text: text,
		}
	}

	return Event{Kind: EventText, At: receivedAt, Text: text}
}

// Line renders the event as one colorized log line.
func (e Event) Line() string {
	stamp := fmt.Sprintf("%s[%s]%s", colorGray, e.At.Format(time.RFC3339), colorReset)
	switch e.Kind {
	case EventTelemetry:
		s := e.Sample
		battColor := colorCyan
		if s.Batt != nil && *s.Batt < 25 {
			battColor = colorRed
		}
		return fmt.Sprintf("%s %sTELEMETRY%s %slat=%s%s %slon=%s%s %salt=%s%s %sbatt=%s%s %smeta=%s%s",
			stamp,
			colorBlue, colorReset,
			colorGreen, fmtFloat(s.Lat, 5), colorReset,
			colorYellow, fmtFloat(s.Lon, 5), colorReset,
			colorMagenta, fmtFloat(s.Alt, 1), colorReset,
			battColor, fmtFloat(s.Batt, 1), colorReset,
			colorWhite, fmtString(s.Meta), colorReset)
	case EventPhoto:
		return fmt.Sprintf("%s %sPHOTO%s %s", stamp, colorMagenta, colorReset, e.URL)
	default:
		return fmt.Sprintf("%s %sMSG%s %s", stamp, colorCyan, colorReset, e.Text)
	}
}

func fmtFloat(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func fmtString(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
