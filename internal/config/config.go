package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

// Default timeouts, overridable via client_timeout / sniff_timeout.
const (
	DefaultClientTimeout = 60 * time.Second
	DefaultSniffTimeout  = 20 * time.Second
)

// Settings is the process-wide configuration, loaded once at startup and
// passed explicitly into every component. Components never read it ambiently.
type Settings struct {
	SortBy             string   `mapstructure:"sort_by"`             // none, artist, platform, genre
	OverwriteExisting  bool     `mapstructure:"overwrite_existing"`  // replace existing files instead of skipping
	DefaultQuality     string   `mapstructure:"default_quality"`     // best, worst, or a resolution like "720p"
	UseBrowserCookies  bool     `mapstructure:"use_browser_cookies"` // pass browser cookies to the library engine
	BrowserPath        string   `mapstructure:"browser_path"`        // browser binary used by the network sniffer
	DefaultDownloadDir string   `mapstructure:"default_download_dir"`
	UseCwdAsDefault    bool     `mapstructure:"use_cwd_as_default"`
	CustomHosts        []string `mapstructure:"custom_hosts"` // extra hosts served by the library engine
	UserAgent          string   `mapstructure:"user_agent"`
	ClientTimeout      string   `mapstructure:"client_timeout"` // Go duration string like "30s", "1m"
	SniffTimeout       string   `mapstructure:"sniff_timeout"`  // capture window for the network sniffer
	LogLevel           string   `mapstructure:"log_level"`
}

var logger zerolog.Logger

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()
}

// ConfigDir returns the path to the per-user configuration directory,
// creating it if needed.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".cerberus")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// LoadSettings reads configuration from config.yaml (working directory,
// ./config, or the user config dir) and the CERBERUS_* environment. A missing
// config file is not an error; defaults apply.
func LoadSettings() (*Settings, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	if dir, err := ConfigDir(); err == nil {
		viper.AddConfigPath(dir)
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CERBERUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("sort_by", "none")
	viper.SetDefault("overwrite_existing", false)
	viper.SetDefault("default_quality", "best")
	viper.SetDefault("use_cwd_as_default", false)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, err
	}
	if settings.UserAgent == "" {
		settings.UserAgent = DefaultUserAgent
	}

	configureLogLevel(settings.LogLevel)
	return &settings, nil
}

func configureLogLevel(configured string) {
	level := zerolog.InfoLevel
	if configured != "" {
		if parsed, err := zerolog.ParseLevel(configured); err == nil {
			level = parsed
		} else {
			logger.Warn().Str("invalid_level", configured).Msg("Invalid log level, using default 'info'")
		}
	}
	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)
}

// GetLogger returns the process logger.
func GetLogger() zerolog.Logger {
	return logger
}

// HTTPTimeout returns the configured HTTP client timeout.
func (s *Settings) HTTPTimeout() time.Duration {
	return s.duration(s.ClientTimeout, DefaultClientTimeout)
}

// SniffWindow returns the capture window for the network sniffer.
func (s *Settings) SniffWindow() time.Duration {
	return s.duration(s.SniffTimeout, DefaultSniffTimeout)
}

func (s *Settings) duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn().Err(err).Str("duration", raw).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

// DownloadRoot resolves the root download directory: an explicit override
// wins, then the working directory when use_cwd_as_default is set, then the
// configured default, then <config dir>/Downloads.
func (s *Settings) DownloadRoot(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if s.UseCwdAsDefault {
		return os.Getwd()
	}
	if s.DefaultDownloadDir != "" {
		return s.DefaultDownloadDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "Downloads"), nil
}

// ExampleConfig is the annotated sample configuration written by
// --example-config.
const ExampleConfig = `browser_path: /usr/bin/chromium
overwrite_existing: false
sort_by: none            # options: none, artist, platform, genre
default_quality: best    # e.g. best, worst, 720p
use_cwd_as_default: false
use_browser_cookies: false
default_download_dir: ""
custom_hosts:            # extra hosts handled by the library engine
  - youtu.be
client_timeout: 60s
sniff_timeout: 20s
log_level: info
`
