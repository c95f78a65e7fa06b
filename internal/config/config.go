// Package config loads cardgest settings from YAML, .env and CARDGEST_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dgallion1/cardgest/internal/llm"
	"github.com/dgallion1/cardgest/internal/parser"
)

// Fetch modes. The first three are served by Trilium.
const (
	FetchFixedNote = "fixed_note"
	FetchCalendar  = "calendar"
	FetchSearch    = "search"
	FetchFile      = "file"
)

type Config struct {
	Trilium    Trilium    `mapstructure:"trilium" yaml:"trilium"`
	LLM        LLM        `mapstructure:"llm" yaml:"llm"`
	Generation Generation `mapstructure:"generation" yaml:"generation"`
	Anki       Anki       `mapstructure:"anki" yaml:"anki"`
	Server     Server     `mapstructure:"server" yaml:"server"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-" yaml:"-"`
}

type Trilium struct {
	ServerURL      string        `mapstructure:"server_url" yaml:"server_url"`
	APIToken       string        `mapstructure:"api_token" yaml:"api_token"`
	FetchMode      string        `mapstructure:"fetch_mode" yaml:"fetch_mode"`
	NoteID         string        `mapstructure:"note_id" yaml:"note_id"`
	SearchTemplate string        `mapstructure:"search_template" yaml:"search_template"`
	FilePath       string        `mapstructure:"file_path" yaml:"file_path"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LLM struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	APIBase     string        `mapstructure:"api_base" yaml:"api_base"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Model       string        `mapstructure:"model" yaml:"model"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type Generation struct {
	CardsPerDay     int    `mapstructure:"cards_per_day" yaml:"cards_per_day"` // 0 lets the model decide
	Difficulty      string `mapstructure:"difficulty" yaml:"difficulty"`
	MinContentChars int    `mapstructure:"min_content_chars" yaml:"min_content_chars"`
	StripMarkdown   bool   `mapstructure:"strip_markdown" yaml:"strip_markdown"`
}

type Anki struct {
	AnkiConnectURL string        `mapstructure:"ankiconnect_url" yaml:"ankiconnect_url"`
	DeckName       string        `mapstructure:"deck_name" yaml:"deck_name"`
	ModelName      string        `mapstructure:"model_name" yaml:"model_name"`
	FrontField     string        `mapstructure:"front_field" yaml:"front_field"`
	BackField      string        `mapstructure:"back_field" yaml:"back_field"`
	Tags           []string      `mapstructure:"tags" yaml:"tags"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type Server struct {
	Port   string        `mapstructure:"port" yaml:"port"`
	APIKey string        `mapstructure:"api_key" yaml:"api_key"`
	RunTTL time.Duration `mapstructure:"run_ttl" yaml:"run_ttl"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Trilium: Trilium{
			ServerURL:      "http://localhost:8080",
			APIToken:       "${TRILIUM_TOKEN}",
			FetchMode:      FetchFixedNote,
			SearchTemplate: "{date}",
			Timeout:        10 * time.Second,
		},
		LLM: LLM{
			Provider:    llm.ProviderOpenAI,
			APIBase:     "https://api.openai.com/v1",
			APIKey:      "${LLM_API_KEY}",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   2000,
			Timeout:     120 * time.Second,
		},
		Generation: Generation{
			CardsPerDay:     5,
			Difficulty:      "适中",
			MinContentChars: 50,
		},
		Anki: Anki{
			AnkiConnectURL: "http://localhost:8765",
			DeckName:       "每日学习",
			ModelName:      "问答题",
			FrontField:     "正面",
			BackField:      "背面",
			Tags:           []string{"cardgest"},
			Timeout:        10 * time.Second,
		},
		Server: Server{
			Port:   "8090",
			APIKey: "${CARDGEST_API_KEY}",
			RunTTL: time.Hour,
		},
	}
}

// Load reads configuration. cfgFile may be empty, in which case config.yaml
// is looked up in the working directory and then in $HOME/.cardgest. A
// missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("CARDGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cardgest")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	cfg.Trilium.APIToken = ResolveEnvVars(cfg.Trilium.APIToken)
	cfg.LLM.APIKey = ResolveEnvVars(cfg.LLM.APIKey)
	cfg.Server.APIKey = ResolveEnvVars(cfg.Server.APIKey)
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("trilium.server_url", d.Trilium.ServerURL)
	v.SetDefault("trilium.api_token", d.Trilium.APIToken)
	v.SetDefault("trilium.fetch_mode", d.Trilium.FetchMode)
	v.SetDefault("trilium.note_id", d.Trilium.NoteID)
	v.SetDefault("trilium.search_template", d.Trilium.SearchTemplate)
	v.SetDefault("trilium.file_path", d.Trilium.FilePath)
	v.SetDefault("trilium.timeout", d.Trilium.Timeout)

	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_base", d.LLM.APIBase)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("generation.cards_per_day", d.Generation.CardsPerDay)
	v.SetDefault("generation.difficulty", d.Generation.Difficulty)
	v.SetDefault("generation.min_content_chars", d.Generation.MinContentChars)
	v.SetDefault("generation.strip_markdown", d.Generation.StripMarkdown)

	v.SetDefault("anki.ankiconnect_url", d.Anki.AnkiConnectURL)
	v.SetDefault("anki.deck_name", d.Anki.DeckName)
	v.SetDefault("anki.model_name", d.Anki.ModelName)
	v.SetDefault("anki.front_field", d.Anki.FrontField)
	v.SetDefault("anki.back_field", d.Anki.BackField)
	v.SetDefault("anki.tags", d.Anki.Tags)
	v.SetDefault("anki.timeout", d.Anki.Timeout)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.run_ttl", d.Server.RunTTL)
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string. Unset variables
// expand to the empty string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envRef.ReplaceAllStringFunc(value, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// Validate checks that the settings needed for a run are present.
func (c *Config) Validate() error {
	var errs []error

	t := c.Trilium
	switch t.FetchMode {
	case FetchFixedNote, FetchCalendar, FetchSearch:
		if t.ServerURL == "" {
			errs = append(errs, errors.New("trilium.server_url is required"))
		}
		if t.APIToken == "" {
			errs = append(errs, errors.New("trilium.api_token is required"))
		}
		if t.FetchMode == FetchFixedNote && t.NoteID == "" {
			errs = append(errs, errors.New("trilium.note_id is required for fetch_mode fixed_note"))
		}
	case FetchFile:
		if t.FilePath == "" {
			errs = append(errs, errors.New("trilium.file_path is required for fetch_mode file"))
		} else if ext := strings.ToLower(filepath.Ext(t.FilePath)); !parser.SupportedExtensions[ext] {
			errs = append(errs, fmt.Errorf("trilium.file_path: unsupported file extension %q", ext))
		}
	default:
		errs = append(errs, fmt.Errorf("trilium.fetch_mode %q is not one of fixed_note, calendar, search, file", t.FetchMode))
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "", llm.ProviderOpenAI:
		// OpenAI-compatible local servers often take no key.
		if c.LLM.APIKey == "" && c.LLM.APIBase == "" {
			errs = append(errs, errors.New("llm.api_key or llm.api_base is required"))
		}
	case llm.ProviderAnthropic, "claude", llm.ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, errors.New("llm.api_key is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}

	if c.Generation.CardsPerDay < 0 {
		errs = append(errs, errors.New("generation.cards_per_day must not be negative"))
	}
	if c.Anki.DeckName == "" {
		errs = append(errs, errors.New("anki.deck_name is required"))
	}
	if c.Anki.FrontField == "" || c.Anki.BackField == "" {
		errs = append(errs, errors.New("anki.front_field and anki.back_field are required"))
	}
	return errors.Join(errs...)
}

// ValidateServer is Validate plus the settings serve needs.
func (c *Config) ValidateServer() error {
	err := c.Validate()
	if c.Server.APIKey == "" {
		err = errors.Join(err, errors.New("server.api_key is required"))
	}
	return err
}

// LLMConfig converts the llm section for llm.New.
func (c *Config) LLMConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		BaseURL:     c.LLM.APIBase,
		APIKey:      c.LLM.APIKey,
		Model:       c.LLM.Model,
		Temperature: c.LLM.Temperature,
		MaxTokens:   c.LLM.MaxTokens,
		Timeout:     c.LLM.Timeout,
	}
}
