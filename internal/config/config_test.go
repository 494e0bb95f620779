package config

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OutputPath != "products.xlsx" {
		t.Errorf("Expected output path 'products.xlsx', got %s", cfg.OutputPath)
	}

	if cfg.Limit != 100 {
		t.Errorf("Expected limit 100, got %d", cfg.Limit)
	}

	if cfg.RequestDelay != 0.3 {
		t.Errorf("Expected request delay 0.3, got %v", cfg.RequestDelay)
	}

	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("Expected request timeout 15s, got %v", cfg.RequestTimeout)
	}

	if cfg.Retries != 5 {
		t.Errorf("Expected 5 retries, got %d", cfg.Retries)
	}

	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent, got %s", cfg.UserAgent)
	}

	if cfg.RespectRobots {
		t.Errorf("Expected respect robots false, got %v", cfg.RespectRobots)
	}

	if cfg.Lang != LangEN {
		t.Errorf("Expected lang en, got %s", cfg.Lang)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*ScrapeConfig)
		wantErr error
	}{
		{
			name:    "valid config",
			modify:  func(c *ScrapeConfig) {},
			wantErr: nil,
		},
		{
			name:    "zero limit",
			modify:  func(c *ScrapeConfig) { c.Limit = 0 },
			wantErr: ErrInvalidLimit,
		},
		{
			name:    "zero timeout",
			modify:  func(c *ScrapeConfig) { c.RequestTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative retries",
			modify:  func(c *ScrapeConfig) { c.Retries = -1 },
			wantErr: ErrInvalidRetries,
		},
		{
			name:    "zero retries allowed",
			modify:  func(c *ScrapeConfig) { c.Retries = 0 },
			wantErr: nil,
		},
		{
			name:    "negative delay",
			modify:  func(c *ScrapeConfig) { c.RequestDelay = -0.5 },
			wantErr: ErrInvalidDelay,
		},
		{
			name:    "empty output",
			modify:  func(c *ScrapeConfig) { c.OutputPath = " " },
			wantErr: ErrEmptyOutputPath,
		},
		{
			name: "output equals template",
			modify: func(c *ScrapeConfig) {
				c.TemplatePath = "./data/book.xlsx"
				c.OutputPath = "data/book.xlsx"
			},
			wantErr: ErrOutputIsTemplate,
		},
		{
			name:    "russian",
			modify:  func(c *ScrapeConfig) { c.Lang = LangRU },
			wantErr: nil,
		},
		{
			name:    "unsupported language",
			modify:  func(c *ScrapeConfig) { c.Lang = "de" },
			wantErr: ErrUnsupportedLang,
		},
		{
			name:    "malformed header",
			modify:  func(c *ScrapeConfig) { c.Headers = []string{"NoColon"} },
			wantErr: ErrInvalidHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDelay(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Delay() != 300*time.Millisecond {
		t.Errorf("Expected 300ms, got %v", cfg.Delay())
	}

	cfg.RequestDelay = 0
	if cfg.Delay() != 0 {
		t.Errorf("Expected 0, got %v", cfg.Delay())
	}
}

func TestHeaderMap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Headers = []string{
		"X-Token: abc",
		"Referer:https://shop.example/",
		"X-Token: override",
	}

	headers, err := cfg.HeaderMap()
	if err != nil {
		t.Fatalf("HeaderMap failed: %v", err)
	}

	if headers["X-Token"] != "override" {
		t.Errorf("Expected later header to win, got %s", headers["X-Token"])
	}
	if headers["Referer"] != "https://shop.example/" {
		t.Errorf("Expected value with colons kept, got %s", headers["Referer"])
	}

	for _, bad := range []string{": value", "Name:", "Name"} {
		cfg.Headers = []string{bad}
		if _, err := cfg.HeaderMap(); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("Expected ErrInvalidHeader for %q, got %v", bad, err)
		}
	}
}

func TestAcceptLanguage(t *testing.T) {
	tests := []struct {
		lang     string
		expected string
	}{
		{LangRU, "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7"},
		{LangEN, "en-US,en;q=0.9,ru-RU;q=0.8,ru;q=0.7"},
		{"xx", "en-US,en;q=0.9,ru-RU;q=0.8,ru;q=0.7"},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Lang = tt.lang
		if got := cfg.AcceptLanguage(); got != tt.expected {
			t.Errorf("AcceptLanguage(%s) = %q, want %q", tt.lang, got, tt.expected)
		}
	}
}
