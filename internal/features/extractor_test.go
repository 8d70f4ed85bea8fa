package features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

func writeSample(t *testing.T, name string, size int) domain.WorkItem {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return domain.WorkItem{Path: path, Name: name, Fingerprint: "fp"}
}

func TestExtract(t *testing.T) {
	extractor := NewFilenameExtractor()
	item := writeSample(t, "92_dusty_loop_Amin.wav", 2048)

	got, err := extractor.Extract(item)
	require.NoError(t, err)

	assert.Equal(t, "92_dusty_loop_Amin.wav", got.Filename)
	assert.Equal(t, "wav", got.Format)
	assert.Equal(t, int64(2048), got.SizeBytes)
	assert.Equal(t, 92, got.BPM)
	assert.Equal(t, "A min", got.KeySignature)
}

func TestExtractMissingFile(t *testing.T) {
	extractor := NewFilenameExtractor()
	_, err := extractor.Extract(domain.WorkItem{
		Path: "/nonexistent/kick.wav",
		Name: "kick.wav",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseBPM(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"break_140bpm.wav", 140},
		{"break_140 BPM.wav", 140},
		{"bpm90_groove.flac", 90},
		{"120_chop.wav", 120},
		{"85-vinyl-loop.mp3", 85},
		{"kick.wav", 0},
		{"1999_sample.wav", 0},     // year, not a tempo
		{"take_12_snare.wav", 0},   // no leading tempo, no bpm tag
		{"300bpm_noise.wav", 0},    // outside plausible range
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseBPM(tc.name))
		})
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"pad_Amin.wav", "A min"},
		{"lead f#maj.wav", "F# maj"},
		{"bass_Cm.wav", "C min"},
		{"chords-Bbmin.aiff", "Bb min"},
		{"kick.wav", ""},
		{"drum_loop.wav", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseKey(tc.name))
		})
	}
}
