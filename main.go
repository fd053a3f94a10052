package main

import (
	"github.com/go-zoox/cli"

	"github.com/go-zoox/httunnel/command"
)

const Version = "0.1.0"

func main() {
	app := cli.NewSingleProgram(&cli.SingleProgramConfig{
		Name:    "httunnel",
		Usage:   "server side of an HTTP-tunneled TCP proxy",
		Version: Version,
		Flags:   command.Flags(),
		Action:  command.Run,
	})

	app.Run()
}
