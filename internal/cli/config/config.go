// Package config loads, merges and validates the CLI configuration with the
// precedence flags > environment > config file > defaults, and assembles the
// logging stack the rest of the program logs through.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/projectdocs/pdfbatch/pkg/pipeline"
)

const (
	// DefaultConfigName is the config file stem searched for in the working
	// directory and under the user's config directories.
	DefaultConfigName = "pdfbatch"
	// EnvPrefix namespaces the environment variables read by viper, e.g.
	// PDFBATCH_CONCURRENCY.
	EnvPrefix = "PDFBATCH"
)

// MappingConfig selects the country mapping spreadsheet and its columns.
// Columns accept a header name or a zero-based index; empty means the first
// two columns.
type MappingConfig struct {
	Path          string `mapstructure:"path"`
	IDColumn      string `mapstructure:"idColumn"`
	CountryColumn string `mapstructure:"countryColumn"`
}

// ConverterConfig tunes the external converter adapter.
type ConverterConfig struct {
	Binary         string `mapstructure:"binary"`
	Retries        int    `mapstructure:"retries"`
	BackoffSeconds int    `mapstructure:"backoffSeconds"`
	SettleSeconds  int    `mapstructure:"settleSeconds"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// Config is the fully merged CLI configuration.
type Config struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
	Rename bool   `mapstructure:"rename"`

	Mapping   MappingConfig   `mapstructure:"mapping"`
	Converter ConverterConfig `mapstructure:"converter"`

	Concurrency     int `mapstructure:"concurrency"`
	BatchSize       int `mapstructure:"batchSize"`
	IdentifierPages int `mapstructure:"identifierPages"`
	LanguagePages   int `mapstructure:"languagePages"`

	LogFile    string `mapstructure:"logFile"`
	Verbose    bool   `mapstructure:"verbose"`
	NoProgress bool   `mapstructure:"noProgress"`

	ConfigFilePath string `mapstructure:"-"`
	AppVersion     string `mapstructure:"-"`
}

// flagKeys lists the flags bound into viper at the key of the same name;
// names must match those defined on the root command.
var flagKeys = []string{
	"input", "output", "rename", "concurrency", "batch-size", "verbose",
	"log-file", "no-progress",
}

// nestedFlagKeys maps flags onto nested viper keys. Binding --mapping at the
// top-level "mapping" key would shadow the mapping.* map and break Unmarshal,
// so these flags bind directly to the struct fields they set.
var nestedFlagKeys = map[string]string{
	"mapping":                "mapping.path",
	"mapping-id-column":      "mapping.idColumn",
	"mapping-country-column": "mapping.countryColumn",
	"converter-binary":       "converter.binary",
}

// LoadAndValidate merges defaults, an optional config file, PDFBATCH_*
// environment variables and command-line flags into a validated Config, and
// returns the log handler built from it. Validation failures wrap
// pipeline.ErrValidation.
func LoadAndValidate(cfgFile, appVersion string, flags *pflag.FlagSet) (Config, slog.Handler, error) {
	var cfg Config
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return cfg, nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is fine; defaults, env and flags carry the run.
	} else {
		cfg.ConfigFilePath = v.ConfigFileUsed()
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range flagKeys {
			if flag := flags.Lookup(key); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return cfg, nil, fmt.Errorf("binding flag --%s: %w", key, err)
				}
			}
		}
		for name, key := range nestedFlagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return cfg, nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}
	v.RegisterAlias("batchSize", "batch-size")
	v.RegisterAlias("logFile", "log-file")
	v.RegisterAlias("noProgress", "no-progress")

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}
	cfg.AppVersion = appVersion

	handler := BuildLogHandler(cfg.LogFile, cfg.Verbose)
	logger := slog.New(handler).With(slog.String("component", "config"))

	if err := validate(&cfg, logger); err != nil {
		return cfg, handler, err
	}

	logger.Debug("Configuration loaded",
		slog.String("configFile", cfg.ConfigFilePath),
		slog.String("input", cfg.Input),
		slog.String("output", cfg.Output),
		slog.Bool("rename", cfg.Rename))
	return cfg, handler, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rename", true)
	v.SetDefault("concurrency", 0) // 0 = derive from CPU count
	v.SetDefault("batchSize", 0)   // 0 = derive from system memory
	v.SetDefault("identifierPages", 10)
	v.SetDefault("languagePages", 3)
	v.SetDefault("logFile", "pdfbatch.log")
	v.SetDefault("verbose", false)
	v.SetDefault("noProgress", false)
	v.SetDefault("mapping.path", "")
	v.SetDefault("mapping.idColumn", "")
	v.SetDefault("mapping.countryColumn", "")
	v.SetDefault("converter.binary", "")
	v.SetDefault("converter.retries", 2)
	v.SetDefault("converter.backoffSeconds", 3)
	v.SetDefault("converter.settleSeconds", 2)
	v.SetDefault("converter.timeoutSeconds", 120)
}

// validate checks the merged configuration and normalizes paths to absolute
// form. A missing mapping file only warns; the run degrades to no country
// segments rather than refusing to start.
func validate(cfg *Config, logger *slog.Logger) error {
	if cfg.Input == "" {
		return fmt.Errorf("%w: an input directory is required (--input)", pipeline.ErrValidation)
	}
	if cfg.Output == "" {
		return fmt.Errorf("%w: an output directory is required (--output)", pipeline.ErrValidation)
	}

	absInput, err := filepath.Abs(cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: resolving input path: %w", pipeline.ErrValidation, err)
	}
	cfg.Input = absInput
	info, err := os.Stat(cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: input directory %s: %w", pipeline.ErrValidation, cfg.Input, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input path %s is not a directory", pipeline.ErrValidation, cfg.Input)
	}

	absOutput, err := filepath.Abs(cfg.Output)
	if err != nil {
		return fmt.Errorf("%w: resolving output path: %w", pipeline.ErrValidation, err)
	}
	cfg.Output = absOutput

	if cfg.Concurrency < 0 || cfg.BatchSize < 0 {
		return fmt.Errorf("%w: concurrency and batch size must not be negative", pipeline.ErrValidation)
	}

	if cfg.Mapping.Path != "" {
		if _, err := os.Stat(cfg.Mapping.Path); err != nil {
			logger.Warn("Mapping file not accessible, proceeding without country names",
				slog.String("path", cfg.Mapping.Path), slog.Any("error", err))
			cfg.Mapping.Path = ""
		}
	}
	return nil
}
