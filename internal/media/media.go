// Package media stores uploaded photo assets and resolves public references
// to them. Two interchangeable sinks exist: a remote hosting service and
// local disk behind the relay's own static file server. Selection happens
// once at startup, never per request.
package media

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrUploadTransport marks remote hosting failures: network faults,
	// timeouts, or a non-success status from the provider.
	ErrUploadTransport = errors.New("media: remote upload failed")

	// ErrLocalWrite marks disk failures while storing an asset locally.
	ErrLocalWrite = errors.New("media: local write failed")
)

// Upload is one inbound photo payload.
type Upload struct {
	Filename string
	Data     []byte
	Meta     string
	// RequestBase is the scheme://host the uploader reached us on. The
	// local sink falls back to it when no public base URL is configured.
	RequestBase string
}

// Ref is the resolved public reference for a stored asset.
type Ref struct {
	URL string
	// Raw echoes the provider's response body. Remote sink only.
	Raw json.RawMessage
}

// Sink stores an uploaded asset and returns its public reference.
type Sink interface {
	Store(ctx context.Context, up Upload) (Ref, error)
}
