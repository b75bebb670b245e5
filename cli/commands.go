package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/clovis-web/clovis"
	"github.com/clovis-web/clovis/core"
	"github.com/urfave/cli/v2"
)

const defaultPort = 8080

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   core.DefaultConfigPath,
		Usage:   "path to the YAML config file",
	}
}

func portFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   defaultPort,
		Usage:   "port to listen on",
	}
}

func serve(c *cli.Context, cfg clovis.RuntimeConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Port = c.Int("port")
	cfg.ConfigPath = c.String("config")
	clovis.Start(ctx, cfg)
	return nil
}

var DevCommand = &cli.Command{
	Name:  "dev",
	Usage: "Start Clovis in dev mode (no caching, live reload)",
	Flags: []cli.Flag{portFlag(), configFlag()},
	Action: func(c *cli.Context) error {
		return serve(c, clovis.RuntimeConfig{
			Env:         "dev",
			EnableCache: false,
		})
	},
}

var ProdCommand = &cli.Command{
	Name:  "prod",
	Usage: "Start Clovis in production mode (page cache on, rebuilt from templates at startup)",
	Flags: []cli.Flag{
		portFlag(),
		configFlag(),
		&cli.BoolFlag{Name: "no-cache", Usage: "render every request instead of serving cached pages"},
	},
	Action: func(c *cli.Context) error {
		return serve(c, clovis.RuntimeConfig{
			Env:         "prod",
			EnableCache: !c.Bool("no-cache"),
		})
	},
}
