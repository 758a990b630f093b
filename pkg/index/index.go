package index

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/harun/ingat/pkg/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// State describes where the index sits in its lifecycle.
type State int

const (
	// StateUnbuilt means the index has never been populated.
	StateUnbuilt State = iota
	// StateBuilt means the snapshot on disk matches the in-memory index.
	StateBuilt
	// StateDirty means incremental mutations have not been flushed yet.
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateDirty:
		return "dirty"
	}
	return "unbuilt"
}

// Record is the searchable projection of one knowledge entry.
type Record struct {
	Category store.Category
	Filename string
	Title    string
	Content  string
}

// ID returns the record's identity key, category/filename.
func (r Record) ID() string {
	return r.Category.String() + "/" + r.Filename
}

// Config holds index configuration.
type Config struct {
	Path     string
	Store    *store.Store
	Logger   zerolog.Logger
	Provider Provider // Optional, if nil semantic search is skipped
	Alpha    float64  // Lexical weight in [0,1]; 1 is pure lexical
}

// Index is the persisted search index over the document store.
type Index struct {
	db       *sql.DB
	store    *store.Store
	logger   zerolog.Logger
	provider Provider
	alpha    float64
	watcher  *FileWatcher

	ftsAvailable bool
	vecAvailable bool

	mu    sync.Mutex
	built bool
	dirty bool
	stale bool
}

// Open loads the snapshot at cfg.Path, or rebuilds it from the store when it
// is missing or its record count disagrees with the store's entry count.
func Open(cfg Config) (*Index, error) {
	if cfg.Path == "" {
		return nil, errors.New("index path is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return nil, fmt.Errorf("alpha must be in [0,1], got %v", cfg.Alpha)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_fts5=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open index snapshot: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	ix := &Index{
		db:       db,
		store:    cfg.Store,
		logger:   cfg.Logger,
		provider: cfg.Provider,
		alpha:    cfg.Alpha,
	}

	if err := ix.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	if err := ix.reconcile(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	// Out-of-band edits to the store invalidate the snapshot; the next
	// search reconciles through a rebuild.
	watcher, err := NewFileWatcher(cfg.Logger, ix.MarkStale)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Watch(cfg.Store.Root()); err != nil {
		watcher.Stop()
		db.Close()
		return nil, fmt.Errorf("failed to watch store root: %w", err)
	}
	ix.watcher = watcher

	ix.logger.Info().Str("path", cfg.Path).Stringer("state", ix.State()).Msg("Search index opened")
	return ix, nil
}

func (ix *Index) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			filename TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_records_identity ON records(category, filename);

		CREATE TABLE IF NOT EXISTS embedding_cache (
			content_hash TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			dimension INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`
	if _, err := ix.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 is a compile-time capability; without it lexical search degrades
	// to the substring scan.
	ftsSchema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			record_id UNINDEXED,
			title,
			content,
			tokenize='porter unicode61'
		);
	`
	if _, err := ix.db.Exec(ftsSchema); err != nil {
		ix.logger.Warn().Err(err).Msg("FTS5 unavailable, lexical search falls back to substring scan")
		ix.ftsAvailable = false
	} else {
		ix.ftsAvailable = true
	}

	if ix.provider != nil {
		vecSchema := fmt.Sprintf(`
			CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
				record_id TEXT PRIMARY KEY,
				embedding float[%d] distance_metric=cosine
			);
		`, ix.provider.Dimension())
		if _, err := ix.db.Exec(vecSchema); err != nil {
			ix.logger.Warn().Err(err).Msg("sqlite-vec unavailable, semantic search disabled")
			ix.vecAvailable = false
		} else {
			ix.vecAvailable = true
		}
	}

	return nil
}

// reconcile compares the snapshot's record count with the store's entry
// count and forces a rebuild on mismatch. On agreement it clears the stale
// flag, so incremental updates stay the common path even while the watcher
// fires on the engine's own writes.
func (ix *Index) reconcile(ctx context.Context) error {
	entries, err := ix.store.CategoryEntries()
	if err != nil {
		return fmt.Errorf("failed to list store entries: %w", err)
	}

	count, err := ix.RecordCount()
	if err != nil {
		return err
	}

	ix.mu.Lock()
	built := ix.built
	ix.mu.Unlock()

	if count == len(entries) && (built || count > 0) {
		ix.mu.Lock()
		ix.built = true
		ix.stale = false
		ix.mu.Unlock()
		ix.logger.Debug().Int("records", count).Msg("Index snapshot matches store, skipping rebuild")
		return nil
	}

	ix.logger.Info().
		Int("snapshot_records", count).
		Int("store_entries", len(entries)).
		Msg("Index snapshot disagrees with store, rebuilding")
	return ix.Rebuild(ctx)
}

// Rebuild drops every record and repopulates the index strictly from the
// store's current listing. Embeddings are recomputed only for content
// missing from the cache.
func (ix *Index) Rebuild(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.rebuildLocked(ctx)
}

func (ix *Index) rebuildLocked(ctx context.Context) error {
	start := time.Now()

	entries, err := ix.store.CategoryEntries()
	if err != nil {
		return fmt.Errorf("failed to list store entries: %w", err)
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records"); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}
	if ix.ftsAvailable {
		if _, err := tx.Exec("DELETE FROM records_fts"); err != nil {
			return fmt.Errorf("failed to clear full-text records: %w", err)
		}
	}
	if ix.vecAvailable {
		if _, err := tx.Exec("DELETE FROM embeddings"); err != nil {
			return fmt.Errorf("failed to clear embeddings: %w", err)
		}
	}

	indexed := 0
	for _, e := range entries {
		content, err := ix.store.Read(e.Category, e.Filename)
		if err != nil {
			ix.logger.Warn().Err(err).Str("path", e.RelativePath).Msg("Skipping unreadable entry during rebuild")
			continue
		}
		rec := Record{Category: e.Category, Filename: e.Filename, Title: e.Title, Content: content}
		if err := ix.upsertTx(ctx, tx, rec); err != nil {
			return err
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rebuild: %w", err)
	}

	ix.built = true
	ix.stale = false
	ix.dirty = true

	ix.logger.Info().
		Int("records", indexed).
		Dur("duration", time.Since(start)).
		Msg("Index rebuilt")
	return nil
}

// IndexEntry upserts one record without touching others. The update is
// complete when the call returns, so the very next search sees it.
func (ix *Index) IndexEntry(ctx context.Context, rec Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer tx.Rollback()

	if err := ix.removeTx(tx, rec.ID()); err != nil {
		return err
	}
	if err := ix.upsertTx(ctx, tx, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	ix.dirty = true
	return nil
}

// RemoveEntry deletes one record.
func (ix *Index) RemoveEntry(category store.Category, filename string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin remove transaction: %w", err)
	}
	defer tx.Rollback()

	id := category.String() + "/" + filename
	if err := ix.removeTx(tx, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit remove: %w", err)
	}

	ix.dirty = true
	return nil
}

func (ix *Index) upsertTx(ctx context.Context, tx *sql.Tx, rec Record) error {
	id := rec.ID()

	_, err := tx.Exec(
		"INSERT OR REPLACE INTO records (id, category, filename, title, content, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, rec.Category.String(), rec.Filename, rec.Title, rec.Content, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", id, err)
	}

	if ix.ftsAvailable {
		_, err = tx.Exec(
			"INSERT INTO records_fts (record_id, title, content) VALUES (?, ?, ?)",
			id, rec.Title, rec.Content,
		)
		if err != nil {
			return fmt.Errorf("failed to insert full-text record %s: %w", id, err)
		}
	}

	if ix.provider != nil && ix.vecAvailable {
		if err := ix.storeEmbedding(ctx, tx, id, rec.Content); err != nil {
			// Provider failure degrades the semantic signal for this
			// record, never the write itself.
			ix.logger.Warn().Err(err).Str("record", id).Msg("Failed to store embedding")
		}
	}

	return nil
}

func (ix *Index) removeTx(tx *sql.Tx, id string) error {
	if _, err := tx.Exec("DELETE FROM records WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove record %s: %w", id, err)
	}
	if ix.ftsAvailable {
		if _, err := tx.Exec("DELETE FROM records_fts WHERE record_id = ?", id); err != nil {
			return fmt.Errorf("failed to remove full-text record %s: %w", id, err)
		}
	}
	if ix.vecAvailable {
		if _, err := tx.Exec("DELETE FROM embeddings WHERE record_id = ?", id); err != nil {
			return fmt.Errorf("failed to remove embedding %s: %w", id, err)
		}
	}
	return nil
}

// storeEmbedding computes (or recalls from cache) the embedding for content
// and stores it under the record id.
func (ix *Index) storeEmbedding(ctx context.Context, tx *sql.Tx, id, content string) error {
	sum := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(sum[:])

	var cached []byte
	err := tx.QueryRow("SELECT embedding FROM embedding_cache WHERE content_hash = ?", contentHash).Scan(&cached)

	var embedding []float32
	if err == nil {
		if err := json.Unmarshal(cached, &embedding); err != nil {
			return fmt.Errorf("failed to unmarshal cached embedding: %w", err)
		}
	} else {
		embedding, err = ix.provider.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}

		blob, err := json.Marshal(embedding)
		if err != nil {
			return fmt.Errorf("failed to marshal embedding: %w", err)
		}
		_, err = tx.Exec(
			"INSERT OR REPLACE INTO embedding_cache (content_hash, embedding, dimension, created_at) VALUES (?, ?, ?, ?)",
			contentHash, blob, len(embedding), time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to cache embedding: %w", err)
		}
	}

	blob, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding for storage: %w", err)
	}
	_, err = tx.Exec(
		"INSERT OR REPLACE INTO embeddings (record_id, embedding) VALUES (?, ?)",
		id, string(blob),
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding in vector table: %w", err)
	}
	return nil
}

// RecordCount returns the number of indexed records.
func (ix *Index) RecordCount() (int, error) {
	var count int
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// State reports the index lifecycle state.
func (ix *Index) State() State {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.built {
		return StateUnbuilt
	}
	if ix.dirty {
		return StateDirty
	}
	return StateBuilt
}

// MarkStale records that the store changed underneath the index; the next
// search rebuilds before querying.
func (ix *Index) MarkStale() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.stale = true
}

// Flush checkpoints the snapshot to disk. Batched mutations cost one flush,
// not one per mutation; a no-op when nothing is dirty.
func (ix *Index) Flush() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.dirty {
		return nil
	}
	if _, err := ix.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint index snapshot: %w", err)
	}
	ix.dirty = false
	return nil
}

// Close flushes pending deltas and releases the snapshot.
func (ix *Index) Close() error {
	if ix.watcher != nil {
		ix.watcher.Stop()
	}
	if err := ix.Flush(); err != nil {
		ix.logger.Warn().Err(err).Msg("Failed to flush index on close")
	}
	return ix.db.Close()
}
