package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Local stores assets on the filesystem and serves them from the hub's own
// /photos mount. It is the fallback sink when no remote upload is configured.
type Local struct {
	dir     string
	baseURL string
	now     func() time.Time
}

// NewLocal builds a Local sink rooted at dir. baseURL, when non-empty, is the
// external address photos are advertised under; otherwise each upload derives
// the address from the request it arrived on.
func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: baseURL, now: time.Now}
}

// FileName derives the stored name for an uploaded file. The millisecond
// stamp keeps repeated uploads of the same file distinct; spaces are
// replaced so the name survives unquoted in URLs.
func FileName(ts time.Time, original string) string {
	name := fmt.Sprintf("photo_%d_%s", ts.UnixMilli(), filepath.Base(original))
	return strings.ReplaceAll(name, " ", "_")
}

// Store writes the asset into the photos directory and returns its public
// URL under the /photos mount.
func (l *Local) Store(_ context.Context, up Upload) (Ref, error) {
	name := FileName(l.now(), up.Filename)
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, up.Data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("%w: %v", ErrLocalWrite, err)
	}
	base := l.baseURL
	if base == "" {
		base = up.RequestBase
	}
	base = strings.TrimRight(base, "/")
	return Ref{URL: base + "/photos/" + name}, nil
}
