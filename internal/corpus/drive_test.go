package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/frontdesk-labs/frontdesk/internal/log"
)

// fakeDrive serves a minimal Drive v3 API surface for tests: file
// listing, media downloads and Workspace exports.
type fakeDrive struct {
	pages    []*drive.FileList           // returned in order of pageToken requests
	contents map[string]string           // fileID -> raw body (alt=media)
	exports  map[string]string           // fileID -> exported body
	fail     map[string]int              // fileID -> status code to return on content fetch
	listCode int                         // non-zero forces listing to fail
	requests []string                    // observed request paths
}

func (f *fakeDrive) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.URL.Path)
		if f.listCode != 0 {
			w.WriteHeader(f.listCode)
			_, _ = w.Write([]byte(`{"error":{"message":"listing failed"}}`))
			return
		}

		page := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			page = 1
		}
		if page >= len(f.pages) {
			page = len(f.pages) - 1
		}
		_ = json.NewEncoder(w).Encode(f.pages[page])
	})

	mux.HandleFunc("GET /files/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.requests = append(f.requests, r.URL.Path)
		if code, ok := f.fail[id]; ok {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(f.exports[id]))
	})

	mux.HandleFunc("GET /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		f.requests = append(f.requests, r.URL.Path)
		if code, ok := f.fail[id]; ok {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(f.contents[id]))
	})

	return mux
}

func newTestSource(t *testing.T, f *fakeDrive) *DriveSource {
	t.Helper()

	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication())
	require.NoError(t, err)

	src, err := NewDriveSource(svc, "folder-1", log.NewNop())
	require.NoError(t, err)
	return src
}

func TestDriveSource_FetchAll(t *testing.T) {
	f := &fakeDrive{
		pages: []*drive.FileList{{
			Files: []*drive.File{
				{Id: "doc1", Name: "Employee Handbook", MimeType: "application/vnd.google-apps.document"},
				{Id: "txt1", Name: "onboarding.txt", MimeType: "text/plain", Size: 64},
				{Id: "img1", Name: "logo.png", MimeType: "image/png", Size: 10},
				{Id: "empty1", Name: "blank.txt", MimeType: "text/plain", Size: 3},
				{Id: "sub", Name: "Archive", MimeType: "application/vnd.google-apps.folder"},
			},
		}},
		exports:  map[string]string{"doc1": "Vacation policy: 25 days per year."},
		contents: map[string]string{"txt1": "Badge pickup is at the front desk.", "empty1": "   "},
	}

	result, err := newTestSource(t, f).FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Documents, 2)
	assert.Equal(t, 2, result.Skipped) // png + blank file

	byID := map[string]SourceDocument{}
	for _, d := range result.Documents {
		byID[d.ID] = d
	}

	assert.Equal(t, "Employee Handbook", byID["doc1"].Name)
	assert.Equal(t, "text/plain", byID["doc1"].MIME)
	assert.Contains(t, byID["doc1"].Content, "Vacation policy")

	assert.Equal(t, "text/plain", byID["txt1"].MIME)
	assert.Contains(t, byID["txt1"].Content, "front desk")
}

func TestDriveSource_FetchAll_Pagination(t *testing.T) {
	f := &fakeDrive{
		pages: []*drive.FileList{
			{
				Files:         []*drive.File{{Id: "a", Name: "a.txt", MimeType: "text/plain", Size: 5}},
				NextPageToken: "page-2",
			},
			{
				Files: []*drive.File{{Id: "b", Name: "b.txt", MimeType: "text/plain", Size: 5}},
			},
		},
		contents: map[string]string{"a": "alpha body", "b": "beta body"},
	}

	result, err := newTestSource(t, f).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Documents, 2)
	assert.Equal(t, 0, result.Skipped)
}

func TestDriveSource_FetchAll_SkipsUnreadable(t *testing.T) {
	f := &fakeDrive{
		pages: []*drive.FileList{{
			Files: []*drive.File{
				{Id: "ok", Name: "ok.txt", MimeType: "text/plain", Size: 5},
				{Id: "bad", Name: "bad.txt", MimeType: "text/plain", Size: 5},
			},
		}},
		contents: map[string]string{"ok": "still readable"},
		fail:     map[string]int{"bad": http.StatusInternalServerError},
	}

	result, err := newTestSource(t, f).FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, "ok", result.Documents[0].ID)
	assert.Equal(t, 1, result.Skipped)
}

func TestDriveSource_FetchAll_SkipsOversized(t *testing.T) {
	f := &fakeDrive{
		pages: []*drive.FileList{{
			Files: []*drive.File{
				{Id: "huge", Name: "dump.txt", MimeType: "text/plain", Size: maxDocumentBytes + 1},
			},
		}},
	}

	result, err := newTestSource(t, f).FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Documents)
	assert.Equal(t, 1, result.Skipped)
	// The oversized file must be rejected from metadata alone.
	for _, p := range f.requests {
		assert.NotContains(t, p, "/files/huge")
	}
}

func TestDriveSource_FetchAll_FolderNotFound(t *testing.T) {
	f := &fakeDrive{listCode: http.StatusNotFound}

	_, err := newTestSource(t, f).FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestDriveSource_FetchAll_AuthRejected(t *testing.T) {
	f := &fakeDrive{listCode: http.StatusForbidden}

	_, err := newTestSource(t, f).FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrAuth)
}

func TestNewDriveSource_Validation(t *testing.T) {
	_, err := NewDriveSource(nil, "folder", log.NewNop())
	assert.ErrorIs(t, err, ErrAuth)

	_, err = NewDriveSource(&drive.Service{}, "", log.NewNop())
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestNewDriveService_MissingCredentials(t *testing.T) {
	_, err := NewDriveService(context.Background(), "")
	assert.ErrorIs(t, err, ErrAuth)

	_, err = NewDriveService(context.Background(), "/nonexistent/creds.json")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestIsTextMIME(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"text/plain", true},
		{"text/csv", true},
		{"application/json", true},
		{"application/xml", true},
		{"image/png", false},
		{"application/pdf", false},
		{"application/octet-stream", false},
	}

	for _, tt := range tests {
		if got := isTextMIME(tt.mime); got != tt.want {
			t.Errorf("isTextMIME(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestMapDriveError_PlainError(t *testing.T) {
	err := mapDriveError(errors.New("connection refused"))
	assert.False(t, errors.Is(err, ErrAuth))
	assert.False(t, errors.Is(err, ErrFolderNotFound))
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

type deadlineProbe struct {
	hadDeadline bool
}

func (p *deadlineProbe) FetchAll(ctx context.Context) (*FetchResult, error) {
	_, p.hadDeadline = ctx.Deadline()
	return &FetchResult{}, nil
}

func TestWithDeadline(t *testing.T) {
	probe := &deadlineProbe{}

	bounded := WithDeadline(probe, time.Minute)
	_, err := bounded.FetchAll(context.Background())
	require.NoError(t, err)
	assert.True(t, probe.hadDeadline, "expected a fetch deadline")

	// Non-positive timeout leaves the source unwrapped.
	assert.Equal(t, Source(probe), WithDeadline(probe, 0))
}
