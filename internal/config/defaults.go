package config

import "time"

// DefaultRegexRule flags assignments to api/key/token/secret/password-like
// identifiers and captures the quoted value.
const DefaultRegexRule = `(['"]?_?(?:api|key|token|secret|password)_?['"]?\s*[:=]\s*['"](.+?)['"])`

// Default returns the built-in configuration. User configuration is merged on
// top of it.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Primary:             "ollama",
			Model:               "whisper/secrets-detector:latest",
			ConfidenceThreshold: 0.8,
			Timeout:             30 * time.Second,
		},
		Rules: RulesConfig{
			ExcludedPaths: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/vendor/**",
				"**/__pycache__/**",
				"**/*.lock",
			},
			MaxFileSize: "5MB",
			SkipBinary:  true,
			Detectors: Detectors{
				{Name: "regex", Enabled: true, Params: map[string]any{
					"rules": []any{DefaultRegexRule},
				}},
				{Name: "entropy", Enabled: true, Params: map[string]any{
					"threshold":  4.5,
					"min_length": 20,
				}},
				{Name: "keyword", Enabled: true, Params: map[string]any{
					"keywords": []any{"password", "BEGIN RSA PRIVATE KEY"},
				}},
				{Name: "base64", Enabled: true, Params: map[string]any{
					"min_length":        32,
					"entropy_threshold": 4.5,
				}},
				{Name: "url", Enabled: true, Params: map[string]any{
					"protocols": []any{"http", "https", "ftp", "sftp", "mysql", "postgresql"},
				}},
				{Name: "discord_webhook", Enabled: false, Params: map[string]any{}},
				{Name: "gitleaks", Enabled: false, Params: map[string]any{}},
			},
		},
	}
}
