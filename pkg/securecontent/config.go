// Copyright 2024-2026 Aiku AI

package securecontent

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	up "go.mau.fi/util/configupgrade"
	"gopkg.in/yaml.v3"
)

//go:embed example-config.yaml
var ExampleConfig string

// Thread backends.
const (
	BackendDiscourse  = "discourse"
	BackendMattermost = "mattermost"
)

// Config holds the service configuration.
type Config struct {
	Backend string `yaml:"backend"`

	ForumURL    string `yaml:"forum_url"`
	APIKey      string `yaml:"api_key"`
	APIUsername string `yaml:"api_username"`

	MattermostURL   string `yaml:"mattermost_url"`
	MattermostToken string `yaml:"mattermost_token"`

	// RequestTimeout is in seconds.
	RequestTimeout int    `yaml:"request_timeout"`
	ListenAddr     string `yaml:"listen_addr"`
	DefaultLocale  string `yaml:"default_locale"`
	// ThreadPageClass is the body class marking a full thread page.
	ThreadPageClass string   `yaml:"thread_page_class"`
	ReplySelectors  []string `yaml:"reply_selectors"`
	// ExcerptLength caps the plain-text excerpt in runes. Zero disables it.
	ExcerptLength int    `yaml:"excerpt_length"`
	LogLevel      string `yaml:"log_level"`

	Strings map[string]Strings `yaml:"strings"`

	logLevel zerolog.Level `yaml:"-"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess validates the config and fills in defaults.
func (c *Config) PostProcess() error {
	switch c.Backend {
	case "":
		c.Backend = BackendDiscourse
	case BackendDiscourse, BackendMattermost:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendMattermost && c.MattermostURL == "" {
		return fmt.Errorf("mattermost_url is required for the mattermost backend")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = DefaultLocale
	}
	if c.ThreadPageClass == "" {
		c.ThreadPageClass = DefaultThreadPageClass
	}
	if len(c.ReplySelectors) == 0 {
		c.ReplySelectors = DefaultReplySelectors
	}
	for _, sel := range c.ReplySelectors {
		if _, err := CompileSelector(sel); err != nil {
			return fmt.Errorf("invalid reply_selectors: %w", err)
		}
	}
	if c.ExcerptLength < 0 {
		return fmt.Errorf("excerpt_length must not be negative")
	}
	c.logLevel = zerolog.InfoLevel
	if c.LogLevel != "" {
		lvl, err := zerolog.ParseLevel(c.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid log_level: %w", err)
		}
		c.logLevel = lvl
	}
	return nil
}

// Level returns the parsed log level. Valid after PostProcess.
func (c *Config) Level() zerolog.Level {
	return c.logLevel
}

// Timeout returns the thread request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// NewFetcher builds the thread backend selected by the config.
func (c *Config) NewFetcher() ThreadFetcher {
	if c.Backend == BackendMattermost {
		return NewMattermostFetcher(c.MattermostURL, c.MattermostToken)
	}
	return NewDiscourseFetcher(c.ForumURL, c.APIKey, c.APIUsername, c.Timeout())
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "backend")
	helper.Copy(up.Str, "forum_url")
	helper.Copy(up.Str, "api_key")
	helper.Copy(up.Str, "api_username")
	helper.Copy(up.Str, "mattermost_url")
	helper.Copy(up.Str, "mattermost_token")
	helper.Copy(up.Int, "request_timeout")
	helper.Copy(up.Str, "listen_addr")
	helper.Copy(up.Str, "default_locale")
	helper.Copy(up.Str, "thread_page_class")
	helper.Copy(up.List, "reply_selectors")
	helper.Copy(up.Int, "excerpt_length")
	helper.Copy(up.Str, "log_level")
}

// ParseConfig merges a user config onto the example config, carrying over
// only known keys, and returns the post-processed result.
func ParseConfig(data []byte) (*Config, error) {
	var base yaml.Node
	if err := yaml.Unmarshal([]byte(ExampleConfig), &base); err != nil {
		return nil, fmt.Errorf("failed to parse example config: %w", err)
	}
	var overrides struct {
		Strings map[string]Strings `yaml:"strings"`
	}
	if len(data) > 0 {
		var user yaml.Node
		if err := yaml.Unmarshal(data, &user); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		if user.Kind != 0 {
			upgradeConfig(up.NewHelper(&base, &user))
			if err := user.Decode(&overrides); err != nil {
				return nil, fmt.Errorf("failed to parse string overrides: %w", err)
			}
		}
	}
	var cfg Config
	if err := base.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Strings = overrides.Strings
	if err := cfg.PostProcess(); err != nil {
		return nil, fmt.Errorf("failed to post-process config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads the config file at path. An empty path yields the example
// config.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return ParseConfig(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}
