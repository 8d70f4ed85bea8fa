// Package cache implements the disk-backed work cache that makes batch
// processing idempotent and resumable. Each work item persists as one JSON
// file named after the item, keyed by the item's content fingerprint; a
// restart skips every item whose fingerprint already has an entry.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// entrySuffix is appended to the item file name to form the cache file name.
const entrySuffix = ".json"

// Store is a file-backed key→entry cache. It tolerates concurrent readers;
// writers only ever touch the file for their own item, so no cross-batch
// write conflict exists.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: cache directory cannot be empty", domain.ErrValidation)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", domain.ErrValidation)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: failed to create cache directory %s: %v",
			domain.ErrCacheIO, dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With("component", "sample_cache"),
	}, nil
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get returns the cached entry for the item. The second return value is
// false when no entry exists or the stored fingerprint no longer matches the
// item's current fingerprint. Read or decode failures map to ErrCacheIO.
func (s *Store) Get(item domain.WorkItem) (*domain.CacheEntry, bool, error) {
	data, err := os.ReadFile(s.entryPath(item.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: failed to read entry for %s: %v",
			domain.ErrCacheIO, item.Name, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("%w: corrupt entry for %s: %v",
			domain.ErrCacheIO, item.Name, err)
	}

	if entry.Fingerprint != item.Fingerprint {
		// The file changed since it was cached; treat as a miss so the item
		// is reprocessed under its new fingerprint.
		s.logger.Debug("fingerprint mismatch, treating as cache miss",
			"item", item.Name,
			"cached_fingerprint", entry.Fingerprint,
			"current_fingerprint", item.Fingerprint)
		return nil, false, nil
	}
	return &entry, true, nil
}

// Has reports whether the item has a valid cache entry. Read failures count
// as a miss so a damaged entry gets recomputed rather than blocking the run.
func (s *Store) Has(item domain.WorkItem) bool {
	entry, ok, err := s.Get(item)
	if err != nil {
		s.logger.Warn("cache read failed, treating item as unprocessed",
			"item", item.Name, "error", err)
		return false
	}
	return ok && entry != nil
}

// Put persists the sample payload for the item, overwriting any previous
// entry (last-writer-wins).
func (s *Store) Put(item domain.WorkItem, sample domain.Sample) error {
	entry := domain.CacheEntry{
		Fingerprint: item.Fingerprint,
		CreatedAt:   time.Now().UTC(),
		Sample:      sample,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode entry for %s: %v",
			domain.ErrCacheIO, item.Name, err)
	}
	if err := os.WriteFile(s.entryPath(item.Name), data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write entry for %s: %v",
			domain.ErrCacheIO, item.Name, err)
	}
	return nil
}

func (s *Store) entryPath(name string) string {
	return filepath.Join(s.dir, name+entrySuffix)
}

// ExportMetadata describes an export document.
type ExportMetadata struct {
	Collection   string    `json:"collection"`
	TotalSamples int       `json:"total_samples"`
	ExportDate   time.Time `json:"export_date"`
}

// ExportedSample is one cache entry in an export document, carrying the
// item name so the entry can be imported back to its cache file.
type ExportedSample struct {
	Name        string        `json:"name"`
	Fingerprint string        `json:"fingerprint"`
	CreatedAt   time.Time     `json:"created_at"`
	Sample      domain.Sample `json:"sample"`
}

// ExportDocument concatenates every cache entry into one JSON document.
type ExportDocument struct {
	Metadata ExportMetadata   `json:"metadata"`
	Samples  []ExportedSample `json:"samples"`
}

// Export reads every cache file under the store directory and returns one
// combined document. Entries that fail to decode are skipped with a warning
// so one corrupt file cannot break an export.
func (s *Store) Export(collection string) (*ExportDocument, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list cache directory: %v", domain.ErrCacheIO, err)
	}

	samples := make([]ExportedSample, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, de.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable cache file", "file", de.Name(), "error", err)
			continue
		}
		var entry domain.CacheEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.logger.Warn("skipping corrupt cache file", "file", de.Name(), "error", err)
			continue
		}
		samples = append(samples, ExportedSample{
			Name:        strings.TrimSuffix(de.Name(), entrySuffix),
			Fingerprint: entry.Fingerprint,
			CreatedAt:   entry.CreatedAt,
			Sample:      entry.Sample,
		})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })

	return &ExportDocument{
		Metadata: ExportMetadata{
			Collection:   collection,
			TotalSamples: len(samples),
			ExportDate:   time.Now().UTC(),
		},
		Samples: samples,
	}, nil
}

// Import restores the entries of an export document into the store,
// reproducing the fingerprint→payload mapping of the exporting cache.
func (s *Store) Import(doc *ExportDocument) error {
	if doc == nil {
		return fmt.Errorf("%w: export document cannot be nil", domain.ErrValidation)
	}
	for _, sample := range doc.Samples {
		entry := domain.CacheEntry{
			Fingerprint: sample.Fingerprint,
			CreatedAt:   sample.CreatedAt,
			Sample:      sample.Sample,
		}
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: failed to encode entry for %s: %v",
				domain.ErrCacheIO, sample.Name, err)
		}
		if err := os.WriteFile(s.entryPath(sample.Name), data, 0o644); err != nil {
			return fmt.Errorf("%w: failed to write entry for %s: %v",
				domain.ErrCacheIO, sample.Name, err)
		}
	}
	s.logger.Info("imported cache entries", "count", len(doc.Samples))
	return nil
}
