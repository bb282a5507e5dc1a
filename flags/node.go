package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds knobs specific to the local instance (identity and databases).

func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Instance name used in logs",
		},
		cli.BoolFlag{
			Name:  "memory",
			Usage: "Keep all state in memory instead of under --datadir",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Megabytes of memory allocated to database caching",
			Value: 64,
		},
		cli.IntFlag{
			Name:  "handles",
			Usage: "Number of open file handles per database",
			Value: 64,
		},
	}
}
