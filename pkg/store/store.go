package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OrientationFile is the top-level orientation document at the store root.
const OrientationFile = "MEMORY.md"

// ErrNotFound marks a read or delete miss. It is a normal negative result,
// not a failure.
var ErrNotFound = errors.New("entry not found")

// Entry describes one stored knowledge entry.
type Entry struct {
	Category     Category  `json:"category"`
	Filename     string    `json:"filename"`
	Title        string    `json:"title"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
	RelativePath string    `json:"relative_path"`
}

// Stats summarizes the whole store.
type Stats struct {
	TotalFiles  int              `json:"total_files"`
	TotalSize   int64            `json:"total_size"`
	PerCategory map[Category]int `json:"per_category"`
	Oldest      time.Time        `json:"oldest,omitzero"`
	Newest      time.Time        `json:"newest,omitzero"`
}

// Store is the canonical file-backed document store. One running instance
// owns the directory tree exclusively.
type Store struct {
	root   string
	logger zerolog.Logger
}

// New opens (and if needed creates) a store rooted at root, with one
// subdirectory per category and a .gitignore excluding the index snapshot.
func New(root string, logger zerolog.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("store root is required")
	}

	for _, c := range Categories() {
		dir := filepath.Join(root, c.String())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create category directory %s: %w", c, err)
		}
	}

	// Category contents are meant to be versioned; the index snapshot is not.
	gitignore := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte(".index.db*\n"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write store .gitignore: %w", err)
		}
	}

	s := &Store{root: root, logger: logger}
	logger.Debug().Str("root", root).Msg("Document store opened")
	return s, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// entryPath builds the on-disk path for an identity. The category is a
// validated enum value and the filename comes out of SanitizeName, so the
// result cannot leave the category directory.
func (s *Store) entryPath(category Category, rawName string) (string, string) {
	filename := SanitizeName(rawName)
	rel := filepath.Join(category.String(), filename)
	return filepath.Join(s.root, rel), rel
}

// Write stores content at (category, rawName), overwriting any existing
// entry at that identity. It returns the entry's relative path.
func (s *Store) Write(category Category, rawName, content string) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	full, rel := s.entryPath(category, rawName)
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}

	s.logger.Debug().Str("path", rel).Int("bytes", len(content)).Msg("Entry written")
	return rel, nil
}

// Append joins content onto an existing entry with a blank-line separator,
// or behaves like a fresh Write when the entry does not exist.
func (s *Store) Append(category Category, rawName, content string) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	full, rel := s.entryPath(category, rawName)
	existing, err := os.ReadFile(full)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read %s before append: %w", rel, err)
		}
		return s.Write(category, rawName, content)
	}

	joined := strings.TrimRight(string(existing), "\n") + "\n\n" + content
	if err := os.WriteFile(full, []byte(joined), 0o644); err != nil {
		return "", fmt.Errorf("failed to append to %s: %w", rel, err)
	}

	s.logger.Debug().Str("path", rel).Msg("Entry appended")
	return rel, nil
}

// Read returns an entry's content. A miss returns ErrNotFound.
func (s *Store) Read(category Category, rawName string) (string, error) {
	if !category.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	full, rel := s.entryPath(category, rawName)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}

// Delete removes an entry. It reports false for "not found" and never treats
// a miss as an error.
func (s *Store) Delete(category Category, rawName string) (bool, error) {
	if !category.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	full, rel := s.entryPath(category, rawName)
	if err := os.Remove(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s: %w", rel, err)
	}

	s.logger.Debug().Str("path", rel).Msg("Entry deleted")
	return true, nil
}

// Entries lists one category's entries sorted by filename.
func (s *Store) Entries(category Category) ([]Entry, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}

	dir := filepath.Join(s.root, category.String())
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", category, err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if item.IsDir() || strings.HasPrefix(item.Name(), ".") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(item.Name()), Extension) {
			continue
		}
		e, err := s.describe(category, item.Name())
		if err != nil {
			s.logger.Warn().Err(err).Str("file", item.Name()).Msg("Skipping unreadable entry")
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })
	return entries, nil
}

// AllEntries lists every category's entries. The unfiltered listing includes
// a synthetic root entry for the orientation document when it exists.
func (s *Store) AllEntries() ([]Entry, error) {
	var entries []Entry

	if info, err := os.Stat(filepath.Join(s.root, OrientationFile)); err == nil {
		entries = append(entries, Entry{
			Category:     "",
			Filename:     OrientationFile,
			Title:        "Memory orientation",
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
			RelativePath: OrientationFile,
		})
	}

	for _, c := range Categories() {
		part, err := s.Entries(c)
		if err != nil {
			return nil, err
		}
		entries = append(entries, part...)
	}
	return entries, nil
}

// CategoryEntries lists every entry that lives in a category directory,
// excluding the synthetic root entry. This is the population the search
// index is rebuilt from.
func (s *Store) CategoryEntries() ([]Entry, error) {
	var entries []Entry
	for _, c := range Categories() {
		part, err := s.Entries(c)
		if err != nil {
			return nil, err
		}
		entries = append(entries, part...)
	}
	return entries, nil
}

// describe builds an Entry from a file already confined to its category
// directory. The title comes from the first level-1 heading, else the
// de-hyphenated filename.
func (s *Store) describe(category Category, filename string) (Entry, error) {
	rel := filepath.Join(category.String(), filename)
	full := filepath.Join(s.root, rel)

	info, err := os.Stat(full)
	if err != nil {
		return Entry{}, err
	}

	title := ""
	if data, err := os.ReadFile(full); err == nil {
		title = TitleFromContent(string(data))
	}
	if title == "" {
		title = TitleFromFilename(filename)
	}

	return Entry{
		Category:     category,
		Filename:     filename,
		Title:        title,
		SizeBytes:    info.Size(),
		LastModified: info.ModTime(),
		RelativePath: rel,
	}, nil
}

// Stats summarizes entry counts, sizes, and modification times across the
// store.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{PerCategory: make(map[Category]int, len(Categories()))}

	for _, c := range Categories() {
		entries, err := s.Entries(c)
		if err != nil {
			return Stats{}, err
		}
		stats.PerCategory[c] = len(entries)
		for _, e := range entries {
			stats.TotalFiles++
			stats.TotalSize += e.SizeBytes
			if stats.Oldest.IsZero() || e.LastModified.Before(stats.Oldest) {
				stats.Oldest = e.LastModified
			}
			if e.LastModified.After(stats.Newest) {
				stats.Newest = e.LastModified
			}
		}
	}
	return stats, nil
}

// Orientation reads the top-level orientation document. The boolean reports
// whether it exists.
func (s *Store) Orientation() (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.root, OrientationFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read orientation document: %w", err)
	}
	return string(data), true, nil
}

// WriteOrientation replaces the top-level orientation document.
func (s *Store) WriteOrientation(content string) error {
	if err := os.WriteFile(filepath.Join(s.root, OrientationFile), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write orientation document: %w", err)
	}
	return nil
}
