package provider

import (
	"testing"

	"triagebot/internal/config"
)

func factoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Providers["openai"] = config.ProviderConfig{
		Enabled: true,
		APIBase: "https://api.openai.com/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	}
	cfg.Providers["custom"] = config.ProviderConfig{
		Enabled: true,
		APIBase: "https://llm.internal/v1",
		APIKey:  "key",
	}
	cfg.Providers["broken"] = config.ProviderConfig{Enabled: true}
	cfg.Providers["off"] = config.ProviderConfig{Enabled: false}
	return cfg
}

func TestFactory_Get(t *testing.T) {
	f := NewFactory(factoryConfig(), testLogger())

	c, err := f.Get("openai")
	if err != nil {
		t.Fatalf("Get(openai): %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("name = %q", c.Name())
	}
}

func TestFactory_EmptyNameUsesDefault(t *testing.T) {
	cfg := factoryConfig()
	cfg.General.DefaultProvider = "openai"
	f := NewFactory(cfg, testLogger())

	c, err := f.Get("")
	if err != nil {
		t.Fatalf("Get(\"\"): %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("name = %q", c.Name())
	}
}

func TestFactory_CachesInstances(t *testing.T) {
	f := NewFactory(factoryConfig(), testLogger())

	a, err := f.Get("openai")
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Get("openai")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("second Get returned a different instance")
	}
}

func TestFactory_UnknownProviderAsOpenAICompatible(t *testing.T) {
	f := NewFactory(factoryConfig(), testLogger())

	c, err := f.Get("custom")
	if err != nil {
		t.Fatalf("Get(custom): %v", err)
	}
	o, ok := c.(*OpenAI)
	if !ok {
		t.Fatalf("got %T, want OpenAI-compatible client", c)
	}
	if o.apiBase != "https://llm.internal/v1" {
		t.Errorf("apiBase = %q", o.apiBase)
	}
}

func TestFactory_Errors(t *testing.T) {
	f := NewFactory(factoryConfig(), testLogger())

	if _, err := f.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown provider name")
	}
	if _, err := f.Get("off"); err == nil {
		t.Error("expected error for disabled provider")
	}
	if _, err := f.Get("broken"); err == nil {
		t.Error("expected error for provider without constructor or credentials")
	}
}
