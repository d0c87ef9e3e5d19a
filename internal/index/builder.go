package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/philippgille/chromem-go"

	"github.com/frontdesk-labs/frontdesk/internal/corpus"
	"github.com/frontdesk-labs/frontdesk/internal/log"
)

// ErrEmptyCorpus is returned when a sync finds no usable documents.
// Publishing an empty index would silently answer every question with
// nothing, so the previous version stays in place instead.
var ErrEmptyCorpus = errors.New("index: corpus produced no chunks")

// embedConcurrency bounds parallel embedding calls during a build.
const embedConcurrency = 8

// Builder produces new index versions from a document source and
// publishes them through a StateStore.
type Builder struct {
	source  corpus.Source
	embed   chromem.EmbeddingFunc
	root    string
	size    int
	overlap int
	lock    *flock.Flock
	logger  log.Logger
}

// NewBuilder wires a builder over the artifacts directory root. The
// directory is created if missing.
func NewBuilder(source corpus.Source, embed chromem.EmbeddingFunc, root string, chunkSize, chunkOverlap int, logger log.Logger) (*Builder, error) {
	if source == nil {
		return nil, fmt.Errorf("source is nil")
	}
	if embed == nil {
		return nil, fmt.Errorf("embedding func is nil")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Builder{
		source:  source,
		embed:   embed,
		root:    root,
		size:    chunkSize,
		overlap: chunkOverlap,
		lock:    flock.New(filepath.Join(root, ".lock")),
		logger:  logger,
	}, nil
}

// SyncResult summarizes one successful build.
type SyncResult struct {
	VersionID string        `json:"version_id"`
	IndexDir  string        `json:"index_dir"`
	Documents int           `json:"documents"`
	Chunks    int           `json:"chunks"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"-"`
}

// Sync fetches the corpus, builds a fresh version and publishes it.
// Exactly one sync runs at a time; concurrent calls get
// ErrBuildInProgress. On any failure the previously published version
// keeps serving.
func (b *Builder) Sync(ctx context.Context, store *StateStore) (*SyncResult, error) {
	permit, err := store.BeginBuild()
	if err != nil {
		return nil, err
	}

	locked, err := b.lock.TryLock()
	if err != nil {
		err = fmt.Errorf("acquire build lock: %w", err)
		permit.Fail(err)
		return nil, err
	}
	if !locked {
		permit.Fail(ErrBuildInProgress)
		return nil, fmt.Errorf("%w: held by another process", ErrBuildInProgress)
	}
	defer b.lock.Unlock() //nolint:errcheck

	start := time.Now()
	b.logger.Info("sync started")

	fetched, err := b.source.FetchAll(ctx)
	if err != nil {
		err = fmt.Errorf("fetch corpus: %w", err)
		permit.Fail(err)
		return nil, err
	}

	snap, err := b.build(ctx, fetched.Documents)
	if err != nil {
		permit.Fail(err)
		return nil, err
	}
	permit.Complete(snap)
	b.pruneOldVersions(snap.Manifest.VersionID)

	result := &SyncResult{
		VersionID: snap.Manifest.VersionID,
		IndexDir:  filepath.Join(b.root, snap.Manifest.VersionID),
		Documents: snap.Manifest.DocumentCount,
		Chunks:    snap.Manifest.ChunkCount,
		Skipped:   fetched.Skipped,
		Duration:  time.Since(start),
	}
	b.logger.Info("sync complete",
		"version", result.VersionID,
		"documents", result.Documents,
		"chunks", result.Chunks,
		"skipped", result.Skipped,
		"duration", result.Duration)
	return result, nil
}

// build writes a complete version directory and publishes CURRENT.
// Partial artifacts are removed on failure so the pointer only ever
// names complete versions.
func (b *Builder) build(ctx context.Context, docs []corpus.SourceDocument) (snap *Snapshot, err error) {
	chunks := buildChunks(docs, b.size, b.overlap)
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}

	version := newVersionID()
	dir := filepath.Join(b.root, version)
	if err := os.MkdirAll(filepath.Join(dir, denseDir), 0o750); err != nil {
		return nil, fmt.Errorf("create version dir: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				b.logger.Warn("cleanup of partial version failed", "dir", dir, "error", rmErr)
			}
		}
	}()

	dense, err := OpenDense(filepath.Join(dir, denseDir), b.embed)
	if err != nil {
		return nil, err
	}
	if err = dense.Add(ctx, chunks, embedConcurrency); err != nil {
		return nil, err
	}

	sparse := BuildSparse(chunks)
	if err = sparse.Save(filepath.Join(dir, sparseFile)); err != nil {
		return nil, err
	}
	if err = saveChunks(dir, chunks); err != nil {
		return nil, err
	}

	manifest := &Manifest{
		VersionID:     version,
		BuiltAt:       time.Now().UTC(),
		DocumentCount: len(docs),
		ChunkCount:    len(chunks),
		SourceIDs:     sourceIDs(docs),
	}
	if err = saveManifest(dir, manifest); err != nil {
		return nil, err
	}
	if err = publishCurrent(b.root, version); err != nil {
		return nil, err
	}

	return &Snapshot{
		Manifest: manifest,
		Dense:    dense,
		Sparse:   sparse,
		Chunks:   chunkMap(chunks),
	}, nil
}

// pruneOldVersions removes version directories other than keep.
// Best effort; a failed removal only wastes disk.
func (b *Builder) pruneOldVersions(keep string) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == keep {
			continue
		}
		if _, err := loadManifest(filepath.Join(b.root, entry.Name())); err != nil {
			continue
		}
		if err := os.RemoveAll(filepath.Join(b.root, entry.Name())); err != nil {
			b.logger.Warn("prune old version failed", "version", entry.Name(), "error", err)
		} else {
			b.logger.Debug("pruned old version", "version", entry.Name())
		}
	}
}

func sourceIDs(docs []corpus.SourceDocument) []string {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids
}

func chunkMap(chunks []Chunk) map[string]Chunk {
	m := make(map[string]Chunk, len(chunks))
	for _, chunk := range chunks {
		m[chunk.ID] = chunk
	}
	return m
}

// Open loads the published version from root, if any. It returns
// (nil, nil) when no version has been published; corrupt artifacts
// return an error and the caller decides whether to start empty.
func Open(root string, embed chromem.EmbeddingFunc) (*Snapshot, error) {
	version, err := readCurrent(root)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, nil
	}

	dir := filepath.Join(root, version)
	manifest, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}
	chunks, err := loadChunks(dir)
	if err != nil {
		return nil, err
	}
	sparse, err := LoadSparse(filepath.Join(dir, sparseFile))
	if err != nil {
		return nil, err
	}
	dense, err := OpenDense(filepath.Join(dir, denseDir), embed)
	if err != nil {
		return nil, err
	}
	if dense.Count() != len(chunks) {
		return nil, fmt.Errorf("version %s is inconsistent: %d embedded chunks, %d stored", version, dense.Count(), len(chunks))
	}

	return &Snapshot{
		Manifest: manifest,
		Dense:    dense,
		Sparse:   sparse,
		Chunks:   chunkMap(chunks),
	}, nil
}
