package gemini

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/analysis"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/config"
	"github.com/ciscoittech/sp404mk2-sample-agent-sub000/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func testItems() []analysis.ItemFeatures {
	return []analysis.ItemFeatures{
		{
			Item: domain.WorkItem{Name: "92_dusty_loop.wav", Fingerprint: "fp-1"},
			Features: domain.SampleFeatures{
				Filename: "92_dusty_loop.wav", Format: "wav", SizeBytes: 4096, BPM: 92,
			},
		},
		{
			Item: domain.WorkItem{Name: "pad_Amin.flac", Fingerprint: "fp-2"},
			Features: domain.SampleFeatures{
				Filename: "pad_Amin.flac", Format: "flac", SizeBytes: 8192,
				KeySignature: "A min",
			},
		},
	}
}

func TestNewAnalyzerValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewAnalyzer(ctx, nil, config.LLMConfig{GeminiAPIKey: "k", ModelName: "m"})
	assert.Error(t, err)

	_, err = NewAnalyzer(ctx, testLogger(), config.LLMConfig{ModelName: "m"})
	assert.ErrorIs(t, err, analysis.ErrInvalidConfig)

	_, err = NewAnalyzer(ctx, testLogger(), config.LLMConfig{GeminiAPIKey: "k"})
	assert.ErrorIs(t, err, analysis.ErrInvalidConfig)
}

func TestBuildPrompt(t *testing.T) {
	tmpl, err := template.New("sample_analysis").Parse(defaultPromptTemplate)
	require.NoError(t, err)
	a := &Analyzer{logger: testLogger(), promptTemplate: tmpl}

	prompt, err := a.buildPrompt(testItems())
	require.NoError(t, err)

	assert.Contains(t, prompt, "92_dusty_loop.wav")
	assert.Contains(t, prompt, "bpm: 92")
	assert.Contains(t, prompt, "pad_Amin.flac")
	assert.Contains(t, prompt, "key: A min")
	assert.NotContains(t, prompt, "bpm: 0", "zero BPM must be omitted")
	assert.Contains(t, prompt, "JSON array")
}

func TestParseResponse(t *testing.T) {
	text := `[
		{"filename": "92_dusty_loop.wav", "vibe": "dusty", "genre": "boom bap",
		 "era": "90s", "instruments": ["drums"], "confidence": 0.9},
		{"filename": "pad_Amin.flac", "vibe": "airy", "genre": "ambient",
		 "era": "2010s", "instruments": ["synth", "pad"], "confidence": 0.7}
	]`

	results, err := parseResponse(text, testItems())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "fp-1", results[0].Fingerprint)
	assert.Equal(t, "dusty", results[0].Analysis.Vibe)
	assert.Equal(t, "boom bap", results[0].Analysis.Genre)
	assert.Equal(t, "fp-2", results[1].Fingerprint)
	assert.Equal(t, []string{"synth", "pad"}, results[1].Analysis.Instruments)
	assert.InDelta(t, 0.7, results[1].Analysis.Confidence, 0.001)
}

func TestParseResponseInvalid(t *testing.T) {
	items := testItems()

	t.Run("empty text", func(t *testing.T) {
		_, err := parseResponse("", items)
		assert.ErrorIs(t, err, analysis.ErrInvalidResponse)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseResponse("{not json", items)
		assert.ErrorIs(t, err, analysis.ErrInvalidResponse)
	})

	t.Run("missing item", func(t *testing.T) {
		_, err := parseResponse(`[{"filename": "92_dusty_loop.wav", "vibe": "dusty"}]`, items)
		assert.ErrorIs(t, err, analysis.ErrInvalidResponse)
		assert.Contains(t, err.Error(), "pad_Amin.flac")
	})
}
