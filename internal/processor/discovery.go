package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

// recognizedExtensions is the fixed set of audio content types accepted as
// work items during discovery.
var recognizedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".aiff": true,
}

// IsRecognizedSample reports whether the file name carries a recognized
// audio extension.
func IsRecognizedSample(name string) bool {
	return recognizedExtensions[strings.ToLower(filepath.Ext(name))]
}

// discoverItems enumerates the audio files directly under sourceDir,
// fingerprinting each one. Results are sorted by name so group numbering is
// deterministic across runs.
func discoverItems(sourceDir string) ([]domain.WorkItem, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read source directory %s: %v",
			domain.ErrValidation, sourceDir, err)
	}

	items := make([]domain.WorkItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsRecognizedSample(entry.Name()) {
			continue
		}
		path := filepath.Join(sourceDir, entry.Name())
		fingerprint, err := fingerprintFile(path)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.WorkItem{
			Path:        path,
			Name:        entry.Name(),
			Fingerprint: fingerprint,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// fingerprintFile returns the SHA-256 hex digest of the file contents,
// the stable content-derived cache key for a work item.
func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot open %s for fingerprinting: %v",
			domain.ErrValidation, path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: cannot fingerprint %s: %v", domain.ErrValidation, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
