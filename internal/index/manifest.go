package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Artifact layout under the index root:
//
//	<root>/CURRENT             version pointer, published last
//	<root>/<version>/manifest.json
//	<root>/<version>/chunks.json
//	<root>/<version>/sparse.json
//	<root>/<version>/dense/    chromem persistent store
const (
	currentFile  = "CURRENT"
	manifestFile = "manifest.json"
	chunksFile   = "chunks.json"
	sparseFile   = "sparse.json"
	denseDir     = "dense"
)

// Manifest describes one immutable index version. A version's artifacts
// never change after its manifest is written.
type Manifest struct {
	VersionID     string    `json:"version_id"`
	BuiltAt       time.Time `json:"built_at"`
	DocumentCount int       `json:"document_count"`
	ChunkCount    int       `json:"chunk_count"`
	SourceIDs     []string  `json:"source_identifiers"`
}

// newVersionID returns a monotonically increasing version identifier.
func newVersionID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

func saveManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o600); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func loadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func saveChunks(dir string, chunks []Chunk) error {
	data, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, chunksFile), data, 0o600); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}
	return nil
}

func loadChunks(dir string) ([]Chunk, error) {
	data, err := os.ReadFile(filepath.Join(dir, chunksFile))
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks: %w", err)
	}
	return chunks, nil
}

// publishCurrent points CURRENT at version. The pointer is written to a
// temp file and renamed so readers never observe a partial write.
func publishCurrent(root, version string) error {
	tmp := filepath.Join(root, currentFile+".tmp")
	if err := os.WriteFile(tmp, []byte(version+"\n"), 0o600); err != nil {
		return fmt.Errorf("write version pointer: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(root, currentFile)); err != nil {
		return fmt.Errorf("publish version pointer: %w", err)
	}
	return nil
}

// readCurrent returns the published version, or "" when none has been
// published yet.
func readCurrent(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, currentFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read version pointer: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
