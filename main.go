package main

import (
	"context"
	"fmt"
	"os"

	"github.com/opensignal/signalhub/cmd"
	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/sdk"
	"github.com/USA-RedDragon/configulator"
)

func main() {
	os.Exit(run())
}

func run() int {
	c, err := configulator.New[config.Config]().Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build configuration loader: %v\n", err)
		return 1
	}

	root := cmd.NewCommand(sdk.Version, sdk.GitCommit)
	root.SetContext(c.ToContext(context.Background()))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}
