// Package config loads runtime settings from the environment (optionally
// seeded by a .env file) and the optional faultcat.hcl project file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"

	"github.com/agentic-research/faultcat/api"
)

// DefaultProjectFile is looked up in the working directory when no project
// file is given.
const DefaultProjectFile = "faultcat.hcl"

// Env holds settings read from environment variables.
type Env struct {
	OpenAIKey   string        `env:"OPENAI_API_KEY"`
	Model       string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	BaseURL     string        `env:"OPENAI_BASE_URL"`
	Temperature float64       `env:"TRANSLATION_TEMPERATURE" envDefault:"0.1"`
	MaxTokens   int64         `env:"TRANSLATION_MAX_TOKENS" envDefault:"500"`
	Timeout     time.Duration `env:"TRANSLATION_TIMEOUT" envDefault:"30s"`
	Retries     int           `env:"TRANSLATION_RETRIES" envDefault:"2"`
	CacheSize   int           `env:"TRANSLATION_CACHE_SIZE" envDefault:"4096"`
	LogLevel    string        `env:"FAULTCAT_LOG_LEVEL" envDefault:"info"`
}

// Project is the optional per-catalog project file.
type Project struct {
	SourceLanguage    string            `hcl:"source_language,optional"`
	TechnicalPatterns []string          `hcl:"technical_patterns,optional"`
	SuspiciousPhrases []string          `hcl:"suspicious_phrases,optional"`
	Spelling          map[string]string `hcl:"spelling,optional"`
	Terms             []Term            `hcl:"term,block"`
}

// Term pins the translation of a source word.
//
//	term "balayeur" {
//	  en = "laser scanner"
//	  es = "escáner láser"
//	}
type Term struct {
	Word string `hcl:"word,label"`
	FR   string `hcl:"fr,optional"`
	EN   string `hcl:"en,optional"`
	ES   string `hcl:"es,optional"`
}

// In returns the pinned translation for lang, or "".
func (t Term) In(lang api.Language) string {
	switch lang {
	case api.French:
		return t.FR
	case api.English:
		return t.EN
	case api.Spanish:
		return t.ES
	}
	return ""
}

// Config is the merged configuration.
type Config struct {
	Env
	Project Project
}

// Source returns the configured source language, French by default.
func (c *Config) Source() (api.Language, error) {
	if c.Project.SourceLanguage == "" {
		return api.French, nil
	}
	return api.ParseLanguage(c.Project.SourceLanguage)
}

// Glossary returns the AGV terminology, with project terms overriding the
// built-in ones.
func (c *Config) Glossary() []Term {
	out := append([]Term(nil), DefaultTerms...)
	for _, t := range c.Project.Terms {
		replaced := false
		for i := range out {
			if out[i].Word == t.Word {
				out[i] = t
				replaced = true
			}
		}
		if !replaced {
			out = append(out, t)
		}
	}
	return out
}

// DefaultTerms is the built-in AGV terminology.
var DefaultTerms = []Term{
	{Word: "balayeur", EN: "laser scanner", ES: "escáner láser"},
	{Word: "réinitialisation", EN: "reset", ES: "reinicio"},
	{Word: "défaut", EN: "fault", ES: "fallo"},
	{Word: "capteur", EN: "sensor", ES: "sensor"},
	{Word: "moteur", EN: "motor", ES: "motor"},
	{Word: "batterie", EN: "battery", ES: "batería"},
	{Word: "arrêt d'urgence", EN: "emergency stop", ES: "parada de emergencia"},
}

// Load reads .env (when present), the environment, and the project file.
// projectPath may be empty, in which case faultcat.hcl in the working
// directory is used if it exists.
func Load(projectPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(&cfg.Env); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	explicit := projectPath != ""
	if !explicit {
		projectPath = DefaultProjectFile
	}
	if _, err := os.Stat(projectPath); err != nil {
		if explicit {
			return nil, fmt.Errorf("project file: %w", err)
		}
		return cfg, nil
	}
	if err := hclsimple.DecodeFile(projectPath, nil, &cfg.Project); err != nil {
		return nil, fmt.Errorf("decode %s: %w", projectPath, err)
	}
	if _, err := cfg.Source(); err != nil {
		return nil, fmt.Errorf("%s: source_language: %w", projectPath, err)
	}
	return cfg, nil
}
