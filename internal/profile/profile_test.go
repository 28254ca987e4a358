package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("TRAVELGO_LLM_PROVIDER", "")
	t.Setenv("TRAVELGO_LLM_API_KEY", "")
	t.Setenv("TRAVELGO_LLM_BASE_URL", "")
	t.Setenv("TRAVELGO_LLM_MODEL", "")
	t.Setenv("TRAVELGO_MONGO_URI", "")
	t.Setenv("TRAVELGO_REDIS_URL", "")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "openai", p.LLMProvider)
	assert.Equal(t, "https://api.openai.com/v1", p.LLMBaseURL)
	assert.Equal(t, "gpt-4o-mini", p.LLMModel)
	assert.Equal(t, 30, p.LLMTimeout)
	assert.Equal(t, "travelgo", p.MongoDB)
	assert.Equal(t, 24, p.SessionTTLHours)
	assert.False(t, p.IsLLMEnabled())
}

func TestFromEnvProviderDefaults(t *testing.T) {
	t.Setenv("TRAVELGO_LLM_PROVIDER", "deepseek")
	t.Setenv("TRAVELGO_LLM_API_KEY", "sk-test")
	t.Setenv("TRAVELGO_LLM_BASE_URL", "")
	t.Setenv("TRAVELGO_LLM_MODEL", "")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	assert.Equal(t, "deepseek-chat", p.LLMModel)
	assert.True(t, p.IsLLMEnabled())
}

func TestFromEnvExplicitOverridesDefaults(t *testing.T) {
	t.Setenv("TRAVELGO_LLM_PROVIDER", "openai")
	t.Setenv("TRAVELGO_LLM_BASE_URL", "https://proxy.internal/v1")
	t.Setenv("TRAVELGO_LLM_MODEL", "gpt-4o")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "https://proxy.internal/v1", p.LLMBaseURL)
	assert.Equal(t, "gpt-4o", p.LLMModel)
}

func TestOllamaEnabledWithoutKey(t *testing.T) {
	t.Setenv("TRAVELGO_LLM_PROVIDER", "ollama")
	t.Setenv("TRAVELGO_LLM_API_KEY", "")

	p := &Profile{}
	p.FromEnv()
	assert.True(t, p.IsLLMEnabled())
	assert.Equal(t, "http://localhost:11434/v1", p.LLMBaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"unknown mode becomes demo", Profile{Mode: "staging", Port: 8080}, false},
		{"prod without mongo", Profile{Mode: "prod", Port: 8080}, true},
		{"prod with mongo", Profile{Mode: "prod", Port: 8080, MongoURI: "mongodb://localhost:27017"}, false},
		{"invalid port", Profile{Mode: "dev", Port: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalizesMode(t *testing.T) {
	p := Profile{Mode: "whatever", Port: 8080}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
	assert.True(t, p.IsDev())
}
