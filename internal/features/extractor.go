// Package features extracts lightweight local features from sample files
// before the batched external analysis call. Extraction is a fast, local
// computation: filename heuristics plus a file stat, no audio decoding.
package features

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// Plausible tempo range for sample material; matches outside it are noise
// (years, sample numbers) rather than BPM markings.
const (
	minBPM = 40
	maxBPM = 250
)

var (
	// "140bpm", "140 BPM", "bpm140"
	bpmTagPattern = regexp.MustCompile(`(?i)(?:^|[^0-9])(\d{2,3})\s*bpm|bpm\s*(\d{2,3})`)
	// leading tempo prefix: "92_dusty_loop.wav"
	bpmPrefixPattern = regexp.MustCompile(`^(\d{2,3})[_\- ]`)
	// key tokens: "Amin", "f#maj", "Cm", "Bbmin"
	keyPattern = regexp.MustCompile(`(?i)(?:^|[_\- ])([a-g][#b]?)(maj|min|m)(?:[_\- .]|$)`)
)

// Extractor computes local features for one work item.
type Extractor interface {
	Extract(item domain.WorkItem) (domain.SampleFeatures, error)
}

// FilenameExtractor derives features from the item's filename and stat data.
// Producers commonly encode tempo and key in sample names, which is enough
// signal to prime the external analysis prompt.
type FilenameExtractor struct{}

// NewFilenameExtractor creates a FilenameExtractor.
func NewFilenameExtractor() *FilenameExtractor {
	return &FilenameExtractor{}
}

// Extract returns the features for the item. A missing file is a validation
// error since discovery just listed it.
func (e *FilenameExtractor) Extract(item domain.WorkItem) (domain.SampleFeatures, error) {
	info, err := os.Stat(item.Path)
	if err != nil {
		return domain.SampleFeatures{}, fmt.Errorf(
			"%w: cannot stat sample %s: %v", domain.ErrValidation, item.Path, err)
	}

	return domain.SampleFeatures{
		Filename:     item.Name,
		Format:       strings.TrimPrefix(strings.ToLower(filepath.Ext(item.Name)), "."),
		SizeBytes:    info.Size(),
		BPM:          parseBPM(item.Name),
		KeySignature: parseKey(item.Name),
	}, nil
}

// parseBPM returns the tempo encoded in the filename, or zero when no
// plausible marking is found. An explicit "bpm" tag wins over a bare
// leading number.
func parseBPM(name string) int {
	if m := bpmTagPattern.FindStringSubmatch(name); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if bpm := toBPM(digits); bpm != 0 {
			return bpm
		}
	}
	if m := bpmPrefixPattern.FindStringSubmatch(name); m != nil {
		return toBPM(m[1])
	}
	return 0
}

func toBPM(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil || n < minBPM || n > maxBPM {
		return 0
	}
	return n
}

// parseKey returns a normalized key signature like "A min" or "F# maj",
// or an empty string when the filename carries no key token.
func parseKey(name string) string {
	m := keyPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	note := strings.ToUpper(m[1][:1]) + m[1][1:]
	quality := strings.ToLower(m[2])
	if quality == "m" || quality == "min" {
		return note + " min"
	}
	return note + " maj"
}
