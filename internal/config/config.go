// Package config loads cppcell's TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/cppcell/config.toml. Keys absent from
// the file keep their defaults, unknown keys are rejected, and the result
// is checked against an embedded CUE schema.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/roach88/cppcell/internal/supervisor"
	"github.com/roach88/cppcell/internal/toolchain"
	"github.com/roach88/cppcell/internal/vin"
)

//go:embed schema.cue
var schemaSource string

// Environment variables consulted after the file is read.
const (
	EnvVinAddress = "FUSEVIN_URL"
	EnvCompiler   = "CPPCELL_COMPILER"
)

// Config is the full cppcell configuration.
type Config struct {
	Compiler     string `toml:"compiler" json:"compiler"`
	Std          string `toml:"std" json:"std"`
	LinkMath     bool   `toml:"link_math" json:"link_math"`
	Wall         bool   `toml:"wall" json:"wall"`
	Wextra       bool   `toml:"wextra" json:"wextra"`
	Werror       bool   `toml:"werror" json:"werror"`
	PrintInfos   bool   `toml:"print_infos" json:"print_infos"`
	PollInterval string `toml:"poll_interval" json:"poll_interval"`
	ReadSize     int    `toml:"read_size" json:"read_size"`

	// ArtifactRoot is where session directories are created. Empty means
	// the system temp directory.
	ArtifactRoot string `toml:"artifact_root" json:"artifact_root"`

	// Journal is the SQLite path for the submission journal.
	Journal string `toml:"journal" json:"journal"`

	VIN VINConfig `toml:"vin" json:"vin"`
}

// VINConfig configures the virtual-input service.
type VINConfig struct {
	Enabled        bool   `toml:"enabled" json:"enabled"`
	Address        string `toml:"address" json:"address"`
	Service        string `toml:"service" json:"service"`
	LineTerminator string `toml:"line_terminator" json:"line_terminator"`
	CallTimeout    string `toml:"call_timeout" json:"call_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	tc := toolchain.DefaultConfig()
	return &Config{
		Compiler:     tc.Compiler,
		Std:          tc.Std,
		LinkMath:     tc.LinkMath,
		Wall:         tc.Wall,
		Wextra:       tc.Wextra,
		Werror:       tc.Werror,
		PrintInfos:   true,
		PollInterval: supervisor.DefaultPollInterval.String(),
		ReadSize:     supervisor.DefaultReadSize,
		Journal:      ":memory:",
		VIN: VINConfig{
			Enabled:        true,
			Address:        vin.DefaultAddress,
			Service:        vin.DefaultServiceName,
			LineTerminator: vin.DefaultLineTerminator,
			CallTimeout:    vin.DefaultCallTimeout.String(),
		},
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cppcell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "cppcell")
	}
	return filepath.Join(home, ".config", "cppcell")
}

// DefaultPath returns the config file location.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.toml")
}

// Load reads the config at path, or at DefaultPath when path is empty.
// A missing default file yields the defaults; a missing explicit file is
// an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(string(data)); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults and validates the result.
func Parse(text string) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(text); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) decode(text string) error {
	md, err := toml.Decode(text, c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvVinAddress); v != "" {
		c.VIN.Address = v
	}
	if v := os.Getenv(EnvCompiler); v != "" {
		c.Compiler = v
	}
}

// Validate checks c against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// Toolchain returns the compiler settings.
func (c *Config) Toolchain() toolchain.Config {
	return toolchain.Config{
		Compiler: c.Compiler,
		Std:      c.Std,
		LinkMath: c.LinkMath,
		Wall:     c.Wall,
		Wextra:   c.Wextra,
		Werror:   c.Werror,
	}
}

// SupervisorOptions returns the drainer and poll settings.
func (c *Config) SupervisorOptions() []supervisor.Option {
	return []supervisor.Option{
		supervisor.WithPollInterval(mustDuration(c.PollInterval, supervisor.DefaultPollInterval)),
		supervisor.WithReadSize(c.ReadSize),
	}
}

// BridgeOptions returns the virtual-input bridge settings.
func (c *Config) BridgeOptions() []vin.BridgeOption {
	return []vin.BridgeOption{
		vin.WithLineTerminator(c.VIN.LineTerminator),
		vin.WithCallTimeout(mustDuration(c.VIN.CallTimeout, vin.DefaultCallTimeout)),
	}
}

// mustDuration parses a duration the schema has already accepted.
func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
