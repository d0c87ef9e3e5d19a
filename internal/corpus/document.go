// Package corpus fetches raw documents from the remote folder that backs
// the knowledge base. It normalizes provider shapes at the boundary: the
// index builder only ever sees SourceDocument values with plain-text
// content, never Drive file handles or export formats.
package corpus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAuth indicates missing or rejected source credentials.
	ErrAuth = errors.New("corpus: authentication failed")

	// ErrFolderNotFound indicates the configured folder is unreachable.
	ErrFolderNotFound = errors.New("corpus: folder not found")
)

// SourceDocument is one fetched document. Ownership transfers to the
// index builder; the fetcher retains nothing after a fetch returns.
type SourceDocument struct {
	ID      string // stable provider identifier
	Name    string // display name, used for answer citations
	MIME    string // effective MIME after export conversion
	Content string // plain text
}

// FetchResult carries the usable documents plus the count of files that
// were skipped (unsupported format, unreadable, empty). Skips are
// tolerated and reported, never fatal.
type FetchResult struct {
	Documents []SourceDocument
	Skipped   int
}

// Source is a remote folder-like document origin.
type Source interface {
	FetchAll(ctx context.Context) (*FetchResult, error)
}

// WithDeadline bounds every FetchAll of src with timeout. A
// non-positive timeout returns src unchanged.
func WithDeadline(src Source, timeout time.Duration) Source {
	if timeout <= 0 {
		return src
	}
	return &deadlineSource{src: src, timeout: timeout}
}

type deadlineSource struct {
	src     Source
	timeout time.Duration
}

func (d *deadlineSource) FetchAll(ctx context.Context) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.src.FetchAll(ctx)
}
