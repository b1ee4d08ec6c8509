package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			DefaultProvider:     "openai",
			MaxConcurrentEvents: 5,
		},
		Telegram: TelegramConfig{
			Mode: "poll",
			Webhook: WebhookConfig{
				Path:       "/telegram/webhook",
				ListenAddr: "0.0.0.0:8443",
			},
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled: true,
				APIBase: "https://api.openai.com/v1",
				APIKey:  "${OPENAI_API_KEY}",
				Model:   "gpt-4o-mini",
			},
			"ollama": {
				Enabled: false,
				APIBase: "http://localhost:11434",
				Model:   "llama3.1:8b",
			},
		},
		Triage: TriageConfig{
			ReplyOnCannotAnswer:    false,
			DownvoteEmoji:          "👎",
			ClassifyTimeoutSeconds: 30,
			MaxAnswerTokens:        1000,
			Temperature:            0.2,
		},
		Knowledge: KnowledgeConfig{
			Path: "~/.triagebot/faq.md",
		},
		Audit: AuditConfig{
			Enabled: true,
			DBPath:  "~/.triagebot/audit.db",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9091",
		},
	}
}
