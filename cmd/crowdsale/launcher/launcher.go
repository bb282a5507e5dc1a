package launcher

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-crowdsale/flags"
	"github.com/rony4d/go-opera-crowdsale/integration"
	"github.com/rony4d/go-opera-crowdsale/inter"
	"github.com/rony4d/go-opera-crowdsale/metrics"
	"github.com/rony4d/go-opera-crowdsale/sale"
)

var receiptsFlag = cli.IntFlag{
	Name:  "receipts",
	Usage: "Also list up to this many journaled receipts",
}

func allFlags() []cli.Flag {
	var all []cli.Flag
	all = append(all, flags.CommonFlags()...)
	all = append(all, flags.NodeFlags()...)
	all = append(all, flags.SaleFlags()...)
	return all
}

// NewApp builds the crowdsale command line application.
func NewApp() *cli.App {
	app := flags.NewApp()
	app.Flags = allFlags()
	app.Action = statusCommand
	app.Commands = []cli.Command{
		{
			Name:      "replay",
			Usage:     "Run a TOML script of whitelist and contribute steps against the sale",
			ArgsUsage: "<script.toml>",
			Flags:     allFlags(),
			Action:    replayCommand,
		},
		{
			Name:   "status",
			Usage:  "Print the sale totals",
			Flags:  append(allFlags(), receiptsFlag),
			Action: statusCommand,
		},
		{
			Name:   "dumpconfig",
			Usage:  "Show the effective configuration as TOML",
			Flags:  allFlags(),
			Action: dumpConfigCommand,
		},
	}
	return app
}

// Launch runs the application with the given os.Args style arguments.
func Launch(args []string) error {
	return NewApp().Run(args)
}

// node is a sale assembled from the command line.
type node struct {
	*integration.Sale
	cfg     Config
	log     *logrus.Entry
	metrics *metrics.Server
}

func makeNode(ctx *cli.Context, clock sale.Clock) (*node, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := SetupLogging(cfg.Node.Logging, ctx.App.ErrWriter)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.SaleOptions(clock)
	if err != nil {
		return nil, err
	}

	n := &node{
		cfg: cfg,
		log: logger.WithFields(logrus.Fields{"node": cfg.Node.Name, "sale": opts.Rules.Name}),
	}
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		opts.Registerer = reg
	}
	if n.Sale, err = integration.Assemble(opts); err != nil {
		return nil, err
	}
	if reg != nil {
		addr := net.JoinHostPort(cfg.Metrics.HTTPAddr, strconv.Itoa(cfg.Metrics.HTTPPort))
		n.metrics = metrics.NewServer(addr, reg)
		n.metrics.Start()
	}

	n.log.WithFields(logrus.Fields{
		"start": inter.FromUnix(cfg.Sale.Start),
		"end":   inter.FromUnix(cfg.Sale.End),
		"admin": n.Config.Admin.Hex(),
	}).Info("Sale ready")
	return n, nil
}

func (n *node) close() {
	if n.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.metrics.Stop(ctx); err != nil {
			n.log.WithError(err).Warn("Failed to stop metrics server")
		}
	}
	if err := n.Close(); err != nil {
		n.log.WithError(err).Error("Failed to close databases")
	}
}

func replayCommand(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("usage: %s replay <script.toml>", ctx.App.Name)
	}
	script, err := LoadScript(ctx.Args().First())
	if err != nil {
		return err
	}

	clock := sale.NewManualClock(0)
	n, err := makeNode(ctx, clock)
	if err != nil {
		return err
	}
	defer n.close()
	clock.Set(n.Config.StartTime)

	r := &replayer{s: n.Sale, cfg: n.Config, clock: clock, out: ctx.App.Writer}
	if err := r.Run(script); err != nil {
		return err
	}
	n.log.WithField("steps", len(script.Step)).Info("Replay finished")
	printStatus(ctx.App.Writer, n.Config.Name, n.Engine.Status())
	return nil
}

func statusCommand(ctx *cli.Context) error {
	n, err := makeNode(ctx, nil)
	if err != nil {
		return err
	}
	defer n.close()

	printStatus(ctx.App.Writer, n.Config.Name, n.Engine.Status())
	if limit := ctx.Int(receiptsFlag.Name); limit > 0 {
		receipts, err := n.Engine.Receipts(0, limit)
		if err != nil {
			return err
		}
		for _, r := range receipts {
			fmt.Fprintln(ctx.App.Writer, r)
		}
	}
	return nil
}

func dumpConfigCommand(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	return writeConfig(ctx.App.Writer, &cfg)
}
