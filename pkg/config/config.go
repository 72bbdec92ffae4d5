package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	envPrefix         = "BOOKMETA_"
	configFileEnv     = envPrefix + "CONFIG_FILE"
	defaultConfigFile = "./bookmeta.yaml"
)

// Supported cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

type Config struct {
	ArchiveExtension string `koanf:"archive_extension" default:".epub" validate:"required,startswith=."`
	CacheBackend     string `koanf:"cache_backend" default:"file" validate:"oneof=file sqlite"`
	CacheFilePath    string `koanf:"cache_file_path" validate:"required"`
	DatabaseDebug    bool   `koanf:"database_debug"`
	VerifyMimeType   bool   `koanf:"verify_mime_type"`
	// Workers caps the number of concurrent extractions. Zero runs one
	// goroutine per file.
	Workers int `koanf:"workers" default:"0" validate:"min=0"`
	// WatchDebounce is how long watch mode waits after the last filesystem
	// event before rescanning.
	WatchDebounce time.Duration `koanf:"watch_debounce" default:"500ms"`
}

// New loads and validates the configuration.
func New() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load applies defaults, then the YAML config file (if present), then
// BOOKMETA_* environment variables. It does not validate, so callers can
// apply their own overrides first.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileEnv)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	return cfg, nil
}

// NewForTest returns a valid configuration that writes to the given cache
// file.
func NewForTest(cacheFilePath string) *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.CacheFilePath = cacheFilePath
	return cfg
}

// Validate checks the configuration. Missing required keys are reported with
// both their environment variable and config file spelling.
func (cfg *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("koanf")
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.WithStack(err)
	}

	missing := []string{}
	invalid := []string{}
	for _, fe := range verrs {
		key := toSnakeCase(fe.Field())
		if fe.Tag() == "required" {
			missing = append(missing, envName(key)+" ("+key+")")
			continue
		}
		invalid = append(invalid, key+" failed "+fe.Tag()+" validation")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return errors.Errorf("invalid config: %s", strings.Join(invalid, ", "))
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}

func envName(key string) string {
	return envPrefix + strcase.ToScreamingSnake(key)
}
