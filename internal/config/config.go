// Package config defines the scraper configuration, its defaults and validation.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// DefaultUserAgent is a desktop browser User-Agent; many shops reject bot-like agents
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Supported message languages
const (
	LangEN = "en"
	LangRU = "ru"
)

// ScrapeConfig holds scraper configuration
type ScrapeConfig struct {
	// Output
	OutputPath   string `mapstructure:"out" yaml:"out"`           // Workbook to write
	TemplatePath string `mapstructure:"template" yaml:"template"` // Optional workbook to start from

	// Scraping parameters
	Limit          int           `mapstructure:"limit" yaml:"limit"`                     // Maximum number of products
	RequestDelay   float64       `mapstructure:"delay" yaml:"delay"`                     // Pause before each product request, seconds
	RequestTimeout time.Duration `mapstructure:"timeout" yaml:"timeout"`                 // Per-request HTTP timeout
	Retries        int           `mapstructure:"retries" yaml:"retries"`                 // Retries after the first attempt
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`           // HTTP User-Agent header
	Headers        []string      `mapstructure:"headers" yaml:"headers"`                 // Extra "Name: Value" headers
	RespectRobots  bool          `mapstructure:"respect_robots" yaml:"respect_robots"`   // Obey robots.txt for product links
	Lang           string        `mapstructure:"lang" yaml:"lang"`                       // Progress language, en or ru

	// Optional outputs
	HistoryPath string `mapstructure:"history" yaml:"history"`           // SQLite run journal
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"` // Prometheus textfile

	// Diagnostics
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *ScrapeConfig {
	return &ScrapeConfig{
		OutputPath:     "products.xlsx",
		Limit:          100,
		RequestDelay:   0.3,
		RequestTimeout: 15 * time.Second,
		Retries:        5,
		UserAgent:      DefaultUserAgent,
		Headers:        []string{},
		Lang:           LangEN,
		LogLevel:       "info",
	}
}

// Delay returns the request delay as a duration
func (c *ScrapeConfig) Delay() time.Duration {
	return time.Duration(c.RequestDelay * float64(time.Second))
}

// Validate checks if the configuration is valid
func (c *ScrapeConfig) Validate() error {
	if c.Limit <= 0 {
		return ErrInvalidLimit
	}

	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Retries < 0 {
		return ErrInvalidRetries
	}

	if c.RequestDelay < 0 {
		return ErrInvalidDelay
	}

	if strings.TrimSpace(c.OutputPath) == "" {
		return ErrEmptyOutputPath
	}

	if c.TemplatePath != "" && filepath.Clean(c.TemplatePath) == filepath.Clean(c.OutputPath) {
		return ErrOutputIsTemplate
	}

	if c.Lang != LangEN && c.Lang != LangRU {
		return fmt.Errorf("%w: %q", ErrUnsupportedLang, c.Lang)
	}

	if _, err := c.HeaderMap(); err != nil {
		return err
	}

	return nil
}

// HeaderMap parses the "Name: Value" headers.
// Later entries override earlier ones with the same name.
func (c *ScrapeConfig) HeaderMap() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	for _, header := range c.Headers {
		name, value, ok := strings.Cut(header, ":")
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header)
		}
		headers[name] = value
	}
	return headers, nil
}

// acceptLanguages lists preferred locales per message language, most preferred first
var acceptLanguages = map[string][]language.Tag{
	LangEN: {language.AmericanEnglish, language.MustParse("ru-RU")},
	LangRU: {language.MustParse("ru-RU"), language.AmericanEnglish},
}

// AcceptLanguage returns the Accept-Language header for the configured
// language, e.g. "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7".
func (c *ScrapeConfig) AcceptLanguage() string {
	tags, ok := acceptLanguages[c.Lang]
	if !ok {
		tags = acceptLanguages[LangEN]
	}

	var parts []string
	weight := 10 // tenths
	for _, tag := range tags {
		if weight == 10 {
			parts = append(parts, tag.String())
		} else {
			parts = append(parts, fmt.Sprintf("%s;q=0.%d", tag, weight))
		}
		weight--

		base, _ := tag.Base()
		parts = append(parts, fmt.Sprintf("%s;q=0.%d", base, weight))
		weight--
	}

	return strings.Join(parts, ",")
}
