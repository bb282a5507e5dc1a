package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// SaleFlags selects the rule preset and binds it to a window and parties.

func SaleFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "preset",
			Usage: "Sale rule preset (bitguild|earlybird|fake)",
			Value: "fake",
		},
		cli.Int64Flag{
			Name:  "sale.start",
			Usage: "Sale opening time, unix seconds",
		},
		cli.Int64Flag{
			Name:  "sale.end",
			Usage: "Sale closing time (exclusive), unix seconds; defaults to start + 30 days",
		},
		cli.StringFlag{
			Name:  "sale.admin",
			Usage: "Whitelist administrator address (defaults to the fake admin key)",
		},
		cli.StringFlag{
			Name:  "sale.wallet",
			Usage: "Address receiving the raised funds (defaults to the fake wallet key)",
		},
		cli.IntFlag{
			Name:  "sale.contributors",
			Usage: "Number of fake contributor accounts funded at genesis",
			Value: 10,
		},
	}
}
