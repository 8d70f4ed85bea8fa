package domain

import "time"

// WorkItem is one unit of input: a sample file plus a stable content-derived
// fingerprint used as its cache key. Immutable once discovered.
type WorkItem struct {
	// Path is the absolute or source-relative path to the sample file.
	Path string `json:"path"`

	// Name is the file name, used to name the item's cache file.
	Name string `json:"name"`

	// Fingerprint is a SHA-256 hex digest of the file contents.
	Fingerprint string `json:"fingerprint"`
}

// SampleFeatures holds the cheap, locally computed features of a sample.
// They are extracted before the external call and merged into the cached
// payload afterwards.
type SampleFeatures struct {
	Filename     string `json:"filename"`
	Format       string `json:"format"`
	SizeBytes    int64  `json:"size_bytes"`
	BPM          int    `json:"bpm,omitempty"`
	KeySignature string `json:"key_signature,omitempty"`
}

// SampleAnalysis holds the structured payload returned by the external
// analysis service for one sample.
type SampleAnalysis struct {
	Vibe        string   `json:"vibe,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Era         string   `json:"era,omitempty"`
	Instruments []string `json:"instruments,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Sample combines local features with the analysis payload. This is the
// structure persisted per item in the work cache.
type Sample struct {
	Features SampleFeatures `json:"features"`
	Analysis SampleAnalysis `json:"analysis"`
}

// CacheEntry is the on-disk record for one work item: the computed sample
// payload keyed by the item's fingerprint, written once per computation.
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
	Sample      Sample    `json:"sample"`
}
