// Package config resolves the pipeline configuration once at startup. The
// resulting Config is passed by pointer into every component.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	// Asia/Tokyo must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

// Quiz types accepted by QuizType.
const (
	QuizDefinition    = "definition"
	QuizPronunciation = "pronunciation"
)

// MaxQuestions is bounded by the A-Z answer letters.
const MaxQuestions = 26

// EnvPrefix is prepended to environment overrides, e.g. EASYQUIZ_LINE_USER_ID.
const EnvPrefix = "EASYQUIZ"

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "easyquiz.yaml"

// Config is the resolved pipeline configuration, built once at startup.
type Config struct {
	Locale     string     `mapstructure:"locale" yaml:"locale"`
	Timezone   string     `mapstructure:"timezone" yaml:"timezone"`
	Questions  int        `mapstructure:"questions" yaml:"questions"`
	QuizType   string     `mapstructure:"quiz_type" yaml:"quiz_type"`
	Site       Site       `mapstructure:"site" yaml:"site"`
	Listing    Listing    `mapstructure:"listing" yaml:"listing"`
	Browser    Browser    `mapstructure:"browser" yaml:"browser"`
	HTTP       HTTP       `mapstructure:"http" yaml:"http"`
	Paths      Paths      `mapstructure:"paths" yaml:"paths"`
	Dictionary Dictionary `mapstructure:"dictionary" yaml:"dictionary"`
	LINE       LINE       `mapstructure:"line" yaml:"line"`
}

// Site describes the News Web Easy DOM.
type Site struct {
	IndexURL           string `mapstructure:"index_url" yaml:"index_url"`
	ArticleMarker      string `mapstructure:"article_marker" yaml:"article_marker"`
	VocabularyIDPrefix string `mapstructure:"vocabulary_id_prefix" yaml:"vocabulary_id_prefix"`
	VocabularyAnchor   string `mapstructure:"vocabulary_anchor" yaml:"vocabulary_anchor"`
	DateSelector       string `mapstructure:"date_selector" yaml:"date_selector"`
	TitleSelector      string `mapstructure:"title_selector" yaml:"title_selector"`
	BodySelector       string `mapstructure:"body_selector" yaml:"body_selector"`
	RubyToggleClass    string `mapstructure:"ruby_toggle_class" yaml:"ruby_toggle_class"`
	TooltipSelector    string `mapstructure:"tooltip_selector" yaml:"tooltip_selector"`
}

// Listing bounds the search for a qualifying article on the index page.
type Listing struct {
	MaxAttempts   int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	MinVocabulary int           `mapstructure:"min_vocabulary" yaml:"min_vocabulary"`
	SkipFirst     int           `mapstructure:"skip_first" yaml:"skip_first"`
	Window        int           `mapstructure:"window" yaml:"window"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// Browser configures the headless Chrome session.
type Browser struct {
	Bin             string        `mapstructure:"bin" yaml:"bin"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	Width           int           `mapstructure:"width" yaml:"width"`
	Height          int           `mapstructure:"height" yaml:"height"`
	DisableImages   bool          `mapstructure:"disable_images" yaml:"disable_images"`
	PageScale       float64       `mapstructure:"page_scale" yaml:"page_scale"`
	SettleDelay     time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	TooltipTimeout  time.Duration `mapstructure:"tooltip_timeout" yaml:"tooltip_timeout"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout" yaml:"navigate_timeout"`
}

// HTTP configures the plain article fetcher.
type HTTP struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent   string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodySize int64         `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// Paths are the flat-file stores.
type Paths struct {
	Article           string `mapstructure:"article" yaml:"article"`
	PronunciationQuiz string `mapstructure:"pronunciation_quiz" yaml:"pronunciation_quiz"`
	DefinitionQuiz    string `mapstructure:"definition_quiz" yaml:"definition_quiz"`
	RunLog            string `mapstructure:"run_log" yaml:"run_log"`
	History           string `mapstructure:"history" yaml:"history"`
}

// Dictionary configures the optional JMdict fallback and reading inference.
type Dictionary struct {
	Path          string `mapstructure:"path" yaml:"path"`
	AutoDownload  bool   `mapstructure:"auto_download" yaml:"auto_download"`
	InferReadings bool   `mapstructure:"infer_readings" yaml:"infer_readings"`
}

// LINE holds the push credentials. An empty token disables pushing.
type LINE struct {
	ChannelAccessToken string `mapstructure:"channel_access_token" yaml:"channel_access_token"`
	UserID             string `mapstructure:"user_id" yaml:"user_id"`
	Endpoint           string `mapstructure:"endpoint" yaml:"endpoint"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Locale:    "ja_JP",
		Timezone:  "Asia/Tokyo",
		Questions: 5,
		QuizType:  QuizDefinition,
		Site: Site{
			IndexURL:           "https://www3.nhk.or.jp/news/easy/",
			ArticleMarker:      "k1001",
			VocabularyIDPrefix: "RSHOK-",
			VocabularyAnchor:   "a.dicWin",
			DateSelector:       "p.article-main__date",
			TitleSelector:      "h1.article-main__title",
			BodySelector:       "div.article-main__body.article-body",
			RubyToggleClass:    "easy-wrapper",
			TooltipSelector:    ".dictionary-box",
		},
		Listing: Listing{
			MaxAttempts:   10,
			MinVocabulary: 3,
			SkipFirst:     1,
			Window:        8,
			RetryDelay:    time.Second,
		},
		Browser: Browser{
			Headless:        true,
			Width:           1920,
			Height:          1080,
			DisableImages:   true,
			PageScale:       0.99,
			SettleDelay:     200 * time.Millisecond,
			TooltipTimeout:  3 * time.Second,
			NavigateTimeout: 30 * time.Second,
		},
		HTTP: HTTP{
			Timeout:     30 * time.Second,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxBodySize: 10 * 1024 * 1024,
		},
		Paths: Paths{
			Article:           filepath.Join("txt_files", "news_article.txt"),
			PronunciationQuiz: filepath.Join("txt_files", "pronunciation_quiz.txt"),
			DefinitionQuiz:    filepath.Join("txt_files", "definition_quiz.txt"),
			RunLog:            filepath.Join("txt_files", "push_log.txt"),
			History:           filepath.Join("txt_files", "past_quiz_data.txt"),
		},
	}
}

// Load reads the config file at path (or DefaultFileName when path is empty),
// applies EASYQUIZ_* environment overrides and validates the result. A missing
// default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key of def with v so that environment
// overrides apply even when the file does not mention the key.
func setDefaults(v *viper.Viper, def Config) error {
	raw, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	setTree(v, "", tree)
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Validate checks the values the pipeline relies on.
func (c *Config) Validate() error {
	if err := ValidateQuestions(c.Questions); err != nil {
		return err
	}
	if c.QuizType != QuizDefinition && c.QuizType != QuizPronunciation {
		return fmt.Errorf("quiz_type must be %q or %q, got %q: %w", QuizDefinition, QuizPronunciation, c.QuizType, apperr.ErrInvalidValue)
	}
	if c.Listing.MaxAttempts < 1 {
		return fmt.Errorf("listing.max_attempts must be positive, got %d: %w", c.Listing.MaxAttempts, apperr.ErrInvalidValue)
	}
	if c.Listing.Window < 1 || c.Listing.SkipFirst < 0 {
		return fmt.Errorf("listing window %d / skip %d out of range: %w", c.Listing.Window, c.Listing.SkipFirst, apperr.ErrInvalidValue)
	}
	if c.Site.IndexURL == "" || c.Site.ArticleMarker == "" || c.Site.VocabularyIDPrefix == "" {
		return fmt.Errorf("site.index_url, site.article_marker and site.vocabulary_id_prefix are required: %w", apperr.ErrInvalidValue)
	}
	for name, p := range map[string]string{
		"paths.article":            c.Paths.Article,
		"paths.pronunciation_quiz": c.Paths.PronunciationQuiz,
		"paths.definition_quiz":    c.Paths.DefinitionQuiz,
		"paths.run_log":            c.Paths.RunLog,
		"paths.history":            c.Paths.History,
	} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%s must be non-empty: %w", name, apperr.ErrInvalidValue)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w: %w", c.Timezone, apperr.ErrInvalidValue, err)
	}
	return nil
}

// ValidateQuestions checks a requested question count.
func ValidateQuestions(n int) error {
	if n < 1 || n > MaxQuestions {
		return fmt.Errorf("question count must be between 1 and %d, got %d: %w", MaxQuestions, n, apperr.ErrInvalidValue)
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// WriteDefault writes the default configuration as YAML to path. Existing
// files are left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists: %w", path, apperr.ErrInvalidValue)
		}
	}
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o600)
}
