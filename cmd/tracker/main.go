package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()

	app.Name = "tracker"
	app.Usage = "Follow the live price feed from a relay gateway"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "ca-file",
			Usage: "PEM bundle trusted for the gateway's certificate, in addition to the system roots",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "number of stocks printed per update, 0 prints all",
			Value: 5,
		},
	}
	app.Commands = append(
		app.Commands,
		&feedCmd,
		&detailsCmd,
	)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[tracker] %v\n", err)
		os.Exit(1)
	}
}
