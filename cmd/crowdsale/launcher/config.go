// This file maps CLI context and config files to the launcher config.

package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-crowdsale/integration"
	"github.com/rony4d/go-opera-crowdsale/inter"
	"github.com/rony4d/go-opera-crowdsale/sale"
)

// Config aggregates everything the launcher needs.
type Config struct {
	Node    NodeConfig
	Sale    SaleConfig
	Store   StoreConfig
	Metrics MetricsConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	Logging LoggingConfig
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string `toml:",omitempty"`
}

type SaleConfig struct {
	Preset       string
	Start        int64 // unix seconds
	End          int64 // unix seconds, exclusive
	Admin        string `toml:",omitempty"`
	Wallet       string `toml:",omitempty"`
	Contributors int
}

type StoreConfig struct {
	InMemory bool
	CacheMB  int
	Handles  int
}

type MetricsConfig struct {
	Enabled  bool
	HTTPAddr string
	HTTPPort int
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(d.Node.DataDir),
			Name:    d.Node.Name,
			Logging: LoggingConfig{
				Verbosity: d.Logging.Verbosity,
				Format:    d.Logging.Format,
				Color:     d.Logging.Color,
			},
		},
		Sale: SaleConfig{
			Preset:       d.Sale.Preset,
			Start:        d.Sale.Start,
			Contributors: d.Sale.Contributors,
		},
		Store: StoreConfig{
			CacheMB: d.Storage.CacheMB,
			Handles: d.Storage.Handles,
		},
		Metrics: MetricsConfig{
			Enabled:  d.Metrics.Enable,
			HTTPAddr: d.Metrics.HTTPAddr,
			HTTPPort: d.Metrics.HTTPPort,
		},
	}
}

// MakeAllConfigs merges defaults, the optional config file and CLI overrides
// into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file, ok := stringFlag(ctx, "config"); ok && file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if cfg.Sale.End == 0 {
		cfg.Sale.End = cfg.Sale.Start + int64(DefaultSaleDuration/time.Second)
	}
	if !cfg.Store.InMemory {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// writeConfig renders cfg as TOML.
func writeConfig(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if v, ok := stringFlag(ctx, "datadir"); ok {
		cfg.Node.DataDir = resolvePath(v)
	}
	if v, ok := stringFlag(ctx, "identity"); ok {
		cfg.Node.Name = v
	}

	if v, ok := stringFlag(ctx, "log.format"); ok {
		cfg.Node.Logging.Format = v
	}
	if v, ok := intFlag(ctx, "log.verbosity"); ok {
		cfg.Node.Logging.Verbosity = v
	}
	if v, ok := boolFlag(ctx, "log.color"); ok {
		cfg.Node.Logging.Color = v
	}
	if v, ok := stringFlag(ctx, "sentry.dsn"); ok {
		cfg.Node.Logging.SentryDSN = v
	}

	if v, ok := boolFlag(ctx, "metrics"); ok {
		cfg.Metrics.Enabled = v
	}
	if v, ok := stringFlag(ctx, "metrics.addr"); ok {
		cfg.Metrics.HTTPAddr = v
	}
	if v, ok := intFlag(ctx, "metrics.port"); ok {
		cfg.Metrics.HTTPPort = v
	}

	if v, ok := boolFlag(ctx, "memory"); ok {
		cfg.Store.InMemory = v
	}
	if v, ok := intFlag(ctx, "cache"); ok {
		cfg.Store.CacheMB = v
	}
	if v, ok := intFlag(ctx, "handles"); ok {
		cfg.Store.Handles = v
	}

	if v, ok := stringFlag(ctx, "preset"); ok {
		cfg.Sale.Preset = v
	}
	if v, ok := int64Flag(ctx, "sale.start"); ok {
		cfg.Sale.Start = v
	}
	if v, ok := int64Flag(ctx, "sale.end"); ok {
		cfg.Sale.End = v
	}
	if v, ok := stringFlag(ctx, "sale.admin"); ok {
		cfg.Sale.Admin = v
	}
	if v, ok := stringFlag(ctx, "sale.wallet"); ok {
		cfg.Sale.Wallet = v
	}
	if v, ok := intFlag(ctx, "sale.contributors"); ok {
		cfg.Sale.Contributors = v
	}
}

// SaleOptions turns the launcher config into assembly options.
func (c Config) SaleOptions(clock sale.Clock) (integration.Options, error) {
	rules, err := integration.GetPresetByName(c.Sale.Preset, inter.FromUnix(c.Sale.Start), inter.FromUnix(c.Sale.End))
	if err != nil {
		return integration.Options{}, err
	}
	admin, err := parseAddress("sale.admin", c.Sale.Admin)
	if err != nil {
		return integration.Options{}, err
	}
	wallet, err := parseAddress("sale.wallet", c.Sale.Wallet)
	if err != nil {
		return integration.Options{}, err
	}
	integration.ApplyParties(&rules, admin, wallet)

	opts := integration.Options{
		Rules:        rules,
		CacheMB:      c.Store.CacheMB,
		Handles:      c.Store.Handles,
		Contributors: c.Sale.Contributors,
		Clock:        clock,
	}
	if !c.Store.InMemory {
		opts.DataDir = c.Node.DataDir
	}
	return opts, nil
}

func parseAddress(name, v string) (common.Address, error) {
	if v == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", name, v)
	}
	return common.HexToAddress(v), nil
}

// Flags may be given before or after the command name, so every lookup
// falls back to the global context.

func stringFlag(ctx *cli.Context, name string) (string, bool) {
	if ctx.IsSet(name) {
		return ctx.String(name), true
	}
	if ctx.GlobalIsSet(name) {
		return ctx.GlobalString(name), true
	}
	return "", false
}

func intFlag(ctx *cli.Context, name string) (int, bool) {
	if ctx.IsSet(name) {
		return ctx.Int(name), true
	}
	if ctx.GlobalIsSet(name) {
		return ctx.GlobalInt(name), true
	}
	return 0, false
}

func int64Flag(ctx *cli.Context, name string) (int64, bool) {
	if ctx.IsSet(name) {
		return ctx.Int64(name), true
	}
	if ctx.GlobalIsSet(name) {
		return ctx.GlobalInt64(name), true
	}
	return 0, false
}

func boolFlag(ctx *cli.Context, name string) (bool, bool) {
	if ctx.IsSet(name) {
		return ctx.Bool(name), true
	}
	if ctx.GlobalIsSet(name) {
		return ctx.GlobalBool(name), true
	}
	return false, false
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
