package launcher

import (
	"time"

	"github.com/rony4d/go-opera-crowdsale/crowdsale"
	"github.com/rony4d/go-opera-crowdsale/evmcore"
)

// DefaultSaleDuration is the window length used when no end time is given.
const DefaultSaleDuration = 30 * 24 * time.Hour

// Defaults bundles the baseline configuration values the launcher uses
// before config files and flags override them.
type Defaults struct {
	Node    NodeDefaults
	Sale    SaleDefaults
	Storage StorageDefaults
	Metrics MetricsDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures top-level settings (datadir, identity).
type NodeDefaults struct {
	DataDir string // Filesystem root holding chaindata/ and saledata/.
	Name    string // Instance name attached to every log line.
}

// SaleDefaults selects the rules and the window of the sale.
type SaleDefaults struct {
	Preset       string // Rule preset name, see crowdsale.PresetNames.
	Start        int64  // Unix seconds the sale opens at.
	Contributors int    // Fake contributor accounts funded at genesis.
}

// StorageDefaults configures database behaviour.
type StorageDefaults struct {
	CacheMB int // LevelDB cache per database.
	Handles int // Open file handles per database.
}

type MetricsDefaults struct {
	Enable   bool   // Serve Prometheus metrics.
	HTTPAddr string // Interface the metrics server binds to.
	HTTPPort int
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    // 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace.
	Format    string // text or json.
	Color     bool
}

// DefaultConfig returns a fully populated Defaults instance.
func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.crowdsale",
			Name:    "crowdsale",
		},
		Sale: SaleDefaults{
			Preset:       crowdsale.FakePreset,
			Start:        evmcore.FakeGenesisTime.Unix(),
			Contributors: 10,
		},
		Storage: StorageDefaults{
			CacheMB: 64,
			Handles: 64,
		},
		Metrics: MetricsDefaults{
			Enable:   false,
			HTTPAddr: "127.0.0.1",
			HTTPPort: 6060,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     false,
		},
	}
}
