// Package command wires the single-program CLI to the server (spec §6:
// one positional argument, the listen port; no subcommands, since this
// module implements only the server side of the tunnel).
package command

import (
	"fmt"
	"strconv"

	"github.com/go-zoox/cli"

	"github.com/go-zoox/httunnel/config"
	"github.com/go-zoox/httunnel/dispatch"
	"github.com/go-zoox/httunnel/janitor"
	"github.com/go-zoox/httunnel/registry"
	"github.com/go-zoox/httunnel/server"
)

// Flags returns the server's optional flags: a config file path and a
// session key override. The port itself is the single positional
// argument (spec §6), not a flag.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "optional filepath for server configuration",
			Aliases: []string{"c"},
		},
		&cli.StringFlag{
			Name:  "session-key",
			Usage: "shared secret the client's cookie must decode to",
		},
	}
}

// Run loads configuration, wires the registry/dispatcher/janitor/server,
// and blocks serving requests. It is the cli.Action for the single
// program app registers in main.go.
func Run(ctx *cli.Context) error {
	cfg := config.Default()

	if filepath := ctx.String("config"); filepath != "" {
		if err := config.LoadFile(cfg, filepath); err != nil {
			return err
		}
	}

	if key := ctx.String("session-key"); key != "" {
		cfg.SessionKey = key
	}

	port, err := parsePort(ctx)
	if err != nil {
		return err
	}
	cfg.Port = port

	reg := registry.New()
	reg.HighWaterMark = cfg.HighWaterMark
	reg.LowWaterMark = cfg.LowWaterMark

	d := dispatch.New(reg, cfg.SessionKey)
	d.ConnectTimeout = cfg.ConnectTimeout
	d.ReadCap = cfg.ReadCapBytes

	j := janitor.New(reg)
	j.IdleTimeout = cfg.IdleTimeout
	j.Interval = cfg.JanitorInterval
	if err := j.Start(); err != nil {
		return fmt.Errorf("failed to start idle janitor: %v", err)
	}
	defer j.Stop()

	return server.New(d).Run(cfg.Port)
}

// parsePort reads the port from the single positional argument (spec §6).
func parsePort(ctx *cli.Context) (int, error) {
	arg := ctx.Args().Get(0)
	if arg == "" {
		return 0, fmt.Errorf("missing required argument: port")
	}
	port, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %v", arg, err)
	}
	return port, nil
}
