package main

import (
	"os"

	cloviscli "github.com/clovis-web/clovis/cli"
	"github.com/sirupsen/logrus"
	clilib "github.com/urfave/cli/v2"
)

func runApp(args []string) error {
	app := &clilib.App{
		Name:  "clovis",
		Usage: "A small HTML site server with layouts, components and live reload",
		Commands: []*clilib.Command{
			cloviscli.InitCommand,
			cloviscli.DevCommand,
			cloviscli.ProdCommand,
			cloviscli.CleanCommand,
			cloviscli.CheckCommand,
			cloviscli.InfoCommand,
		},
	}
	return app.Run(args)
}

func main() {
	if err := runApp(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
