package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Google Workspace MIME types.
const (
	mimeGoogleDoc    = "application/vnd.google-apps.document"
	mimeGoogleSheet  = "application/vnd.google-apps.spreadsheet"
	mimeGoogleSlides = "application/vnd.google-apps.presentation"
	mimeFolder       = "application/vnd.google-apps.folder"
	mimeHTML         = "text/html"
)

// Export formats for Google Workspace files.
const (
	exportMimeText = "text/plain"
	exportMimeCSV  = "text/csv"
)

// maxDocumentBytes caps a single document body (5 MiB).
const maxDocumentBytes = 5 * 1024 * 1024

// listPageSize is the Drive listing page size.
const listPageSize = 100

// errUnsupported marks files with no text representation; they are
// counted as skipped, not failed.
var errUnsupported = errors.New("unsupported mime type")

// NewDriveService builds a read-only Drive client from a service-account
// credentials file.
func NewDriveService(ctx context.Context, credentialsFile string) (*drive.Service, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("%w: no credentials file configured", ErrAuth)
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading credentials file: %v", ErrAuth, err)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing service account credentials: %v", ErrAuth, err)
	}

	svc, err := drive.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return svc, nil
}

// DriveSource fetches every readable document from one Drive folder.
type DriveSource struct {
	svc      *drive.Service
	folderID string
	logger   *slog.Logger
}

// NewDriveSource creates a DriveSource over an already-authenticated
// Drive client.
func NewDriveSource(svc *drive.Service, folderID string, logger *slog.Logger) (*DriveSource, error) {
	if svc == nil {
		return nil, fmt.Errorf("%w: drive service is required", ErrAuth)
	}
	if folderID == "" {
		return nil, fmt.Errorf("%w: folder id is required", ErrFolderNotFound)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveSource{svc: svc, folderID: folderID, logger: logger}, nil
}

// FetchAll lists the folder and downloads or exports each file to plain
// text. Per-file failures and empty bodies are skipped and counted; only
// listing/auth failures abort the fetch.
func (s *DriveSource) FetchAll(ctx context.Context) (*FetchResult, error) {
	files, err := s.listFolder(ctx)
	if err != nil {
		return nil, err
	}

	result := &FetchResult{}
	for _, f := range files {
		if f.MimeType == mimeFolder {
			continue
		}

		text, mime, err := s.fileText(ctx, f)
		switch {
		case errors.Is(err, errUnsupported):
			s.logger.Debug("skipping file with no text representation",
				"file", f.Name, "mime", f.MimeType)
			result.Skipped++
			continue
		case err != nil:
			s.logger.Warn("skipping unreadable file",
				"file", f.Name, "mime", f.MimeType, "error", err)
			result.Skipped++
			continue
		}

		if strings.TrimSpace(text) == "" {
			s.logger.Debug("skipping empty file", "file", f.Name)
			result.Skipped++
			continue
		}

		result.Documents = append(result.Documents, SourceDocument{
			ID:      f.Id,
			Name:    f.Name,
			MIME:    mime,
			Content: text,
		})
	}

	s.logger.Info("fetched folder",
		"folder", s.folderID,
		"documents", len(result.Documents),
		"skipped", result.Skipped)
	return result, nil
}

// listFolder pages through the folder's direct children.
func (s *DriveSource) listFolder(ctx context.Context) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", s.folderID)

	var files []*drive.File
	pageToken := ""
	for {
		call := s.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, size)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, mapDriveError(err)
		}

		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// fileText returns the plain-text body and effective MIME type for one
// file, converting Workspace formats and HTML at this boundary.
func (s *DriveSource) fileText(ctx context.Context, f *drive.File) (string, string, error) {
	switch f.MimeType {
	case mimeGoogleDoc, mimeGoogleSlides:
		text, err := s.export(ctx, f.Id, exportMimeText)
		return text, exportMimeText, err
	case mimeGoogleSheet:
		text, err := s.export(ctx, f.Id, exportMimeCSV)
		return text, exportMimeCSV, err
	}

	// Native Google formats with no text export, and any oversized file.
	if strings.HasPrefix(f.MimeType, "application/vnd.google-apps.") {
		return "", "", errUnsupported
	}
	if f.Size > maxDocumentBytes {
		return "", "", errUnsupported
	}
	if !isTextMIME(f.MimeType) {
		return "", "", errUnsupported
	}

	body, err := s.download(ctx, f.Id)
	if err != nil {
		return "", "", err
	}

	if f.MimeType == mimeHTML {
		text, err := extractHTMLText(body, f.Id)
		if err != nil {
			return "", "", err
		}
		return text, exportMimeText, nil
	}
	return body, f.MimeType, nil
}

func (s *DriveSource) export(ctx context.Context, fileID, exportMime string) (string, error) {
	resp, err := s.svc.Files.Export(fileID, exportMime).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("exporting file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("reading export: %w", err)
	}
	return string(data), nil
}

func (s *DriveSource) download(ctx context.Context, fileID string) (string, error) {
	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return "", fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// extractHTMLText reduces an HTML document to readable plain text.
func extractHTMLText(html, fileID string) (string, error) {
	pageURL, err := url.Parse("https://drive.google.com/file/d/" + fileID)
	if err != nil {
		return "", fmt.Errorf("building page url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting html text: %w", err)
	}
	return article.TextContent, nil
}

// isTextMIME reports whether a MIME type carries text content we can
// index directly.
func isTextMIME(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/xml", "application/x-yaml":
		return true
	}
	return false
}

// mapDriveError converts Drive API failures into the package sentinels.
func mapDriveError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case 404:
			return fmt.Errorf("%w: %v", ErrFolderNotFound, err)
		}
	}
	return fmt.Errorf("listing folder: %w", err)
}
