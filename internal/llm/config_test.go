package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.NotEmpty(t, cfg.Models[TierLite])
	assert.NotEmpty(t, cfg.Models[TierStandard])
	assert.NotEmpty(t, cfg.Models[TierAdvanced])
}

func TestGetModel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		tier     ModelTier
		expected string
	}{
		{
			name:     "configured tier",
			config:   DefaultGeminiConfig(),
			tier:     TierAdvanced,
			expected: "gemini-2.5-pro",
		},
		{
			name: "missing tier falls back to standard",
			config: &Config{
				Provider: ProviderGemini,
				Models:   map[ModelTier]string{TierStandard: "gemini-2.5-flash"},
			},
			tier:     TierAdvanced,
			expected: "gemini-2.5-flash",
		},
		{
			name: "missing tier falls back to lite",
			config: &Config{
				Provider: ProviderGemini,
				Models:   map[ModelTier]string{TierLite: "gemini-2.5-flash-lite"},
			},
			tier:     TierAdvanced,
			expected: "gemini-2.5-flash-lite",
		},
		{
			name: "no models configured",
			config: &Config{
				Provider: ProviderGemini,
				Models:   map[ModelTier]string{},
			},
			tier:     TierStandard,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.GetModel(tt.tier))
		})
	}
}

func TestWithModel(t *testing.T) {
	base := DefaultGeminiConfig()
	custom := base.WithModel(TierStandard, "gemini-override")

	assert.Equal(t, "gemini-override", custom.GetModel(TierStandard))
	// Original config is untouched.
	assert.Equal(t, "gemini-2.5-flash", base.GetModel(TierStandard))
	// Other tiers carry over.
	assert.Equal(t, base.GetModel(TierAdvanced), custom.GetModel(TierAdvanced))
}
