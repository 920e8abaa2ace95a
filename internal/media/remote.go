package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// uploadTimeout bounds the single upload attempt. There is no retry: a slow
// or failed upload surfaces to the caller immediately.
const uploadTimeout = 30 * time.Second

// Remote uploads assets to a hosted media service speaking the unsigned
// preset upload protocol (Cloudinary and compatible providers).
type Remote struct {
	uploadURL string
	preset    string
	client    *http.Client
}

// NewRemote builds a Remote sink for the given upload endpoint and preset.
func NewRemote(uploadURL, preset string) *Remote {
	return &Remote{
		uploadURL: uploadURL,
		preset:    preset,
		client:    &http.Client{Timeout: uploadTimeout},
	}
}

// Store uploads the asset in a single multipart POST and returns the
// provider's public URL. The provider's raw response is echoed in Ref.Raw.
func (r *Remote) Store(ctx context.Context, up Upload) (Ref, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", up.Filename)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: build form: %v", ErrUploadTransport, err)
	}
	if _, err := fw.Write(up.Data); err != nil {
		return Ref{}, fmt.Errorf("%w: build form: %v", ErrUploadTransport, err)
	}
	if err := mw.WriteField("upload_preset", r.preset); err != nil {
		return Ref{}, fmt.Errorf("%w: build form: %v", ErrUploadTransport, err)
	}
	if up.Meta != "" {
		if err := mw.WriteField("context", up.Meta); err != nil {
			return Ref{}, fmt.Errorf("%w: build form: %v", ErrUploadTransport, err)
		}
	}
	if err := mw.Close(); err != nil {
		return Ref{}, fmt.Errorf("%w: build form: %v", ErrUploadTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.uploadURL, &body)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrUploadTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrUploadTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: read response: %v", ErrUploadTransport, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Ref{}, fmt.Errorf("%w: status %d: %s", ErrUploadTransport, resp.StatusCode, raw)
	}

	var parsed struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Ref{}, fmt.Errorf("%w: decode response: %v", ErrUploadTransport, err)
	}
	url := parsed.SecureURL
	if url == "" {
		url = parsed.URL
	}
	if url == "" {
		return Ref{}, fmt.Errorf("%w: response carries no url", ErrUploadTransport)
	}
	return Ref{URL: url, Raw: raw}, nil
}
