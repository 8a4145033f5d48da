package config

import (
	"strings"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultFile is read from the working directory when it exists
const DefaultFile = "napoleon.toml"

// Config describes all configuration options
type Config struct {
	Log struct {
		Level string `default:"info"`
		File  string `usage:"Write an additional, uncoloured log to this file"`
		JSON  bool   `default:"false" usage:"Output JSONND instead of pretty console messages"`
		Debug bool   `default:"false" usage:"Print error traces and every field of each log event"`
	}
	Workspace struct {
		Root   string `default:"lib" usage:"Directory containing the vendor and build folders"`
		Vendor string `default:"vendor" usage:"Checkout directory (relative to root)"`
		Build  string `default:"build" usage:"Artifact directory (relative to root)"`
	}
	Git struct {
		Exe string `default:"git" usage:"Git executable"`
	}
	Build struct {
		Command   string `default:"./gradlew build" usage:"Build command used when a dependency doesn't set build_command"`
		Artifacts string `default:"build/libs/*.jar" usage:"Artifact glob used when a dependency doesn't set artifacts"`
	}
	Stamps string `default:"lib/stamps.db" usage:"Build stamp database"`
	CI     bool   `default:"false" usage:"Disable progress bars"`
}

var logLevels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for this object.
// Without files DefaultFile is used. Command line flags are handled by cobra.
func Loader(files ...string) (*Config, *aconfig.Loader) {
	if len(files) == 0 {
		files = []string{DefaultFile}
	}

	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "NAPOLEON",
		// NAPOLEON_DEBUG and friends are read outside of the config
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads and validates the configuration
func Load(files ...string) (*Config, error) {
	cfg, loader := Loader(files...)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrap(err, "Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[strings.ToLower(cfg.Log.Level)]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	for name, value := range map[string]string{
		"workspace.root":   cfg.Workspace.Root,
		"workspace.vendor": cfg.Workspace.Vendor,
		"workspace.build":  cfg.Workspace.Build,
		"git.exe":          cfg.Git.Exe,
		"build.command":    cfg.Build.Command,
		"stamps":           cfg.Stamps,
	} {
		if strings.TrimSpace(value) == "" {
			return eris.Errorf(`Invalid value for %s: must not be empty`, name)
		}
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[strings.ToLower(cfg.Log.Level)]
}
