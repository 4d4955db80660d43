package config

import "time"

// ProvidersConfig enumerates both backends plus the statically
// configured default used when a request does not name a provider.
type ProvidersConfig struct {
	Default string        `yaml:"default"`
	Bedrock BedrockConfig `yaml:"bedrock"`
	OpenAI  OpenAIConfig  `yaml:"openai"`
}

// BedrockConfig configures the agent-style backend. A provider with
// missing credentials reports itself unavailable instead of failing at
// startup.
type BedrockConfig struct {
	AgentID         string        `yaml:"agent_id"`
	AgentAliasID    string        `yaml:"agent_alias_id"`
	Region          string        `yaml:"region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Endpoint        string        `yaml:"endpoint,omitempty"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Available is a pure function of the config: every required credential
// and identifier must be present.
func (c BedrockConfig) Available() bool {
	return c.AgentID != "" && c.AgentAliasID != "" &&
		c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// OpenAIConfig configures the model-style backend.
type OpenAIConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url,omitempty"`
	DefaultModel string        `yaml:"default_model,omitempty"`
	Timeout      time.Duration `yaml:"timeout"`
}

func (c OpenAIConfig) Available() bool {
	return c.APIKey != ""
}
