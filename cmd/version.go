package cmd

import (
	"context"
	"fmt"

	"github.com/binaek/cling"

	"github.com/vinhphatfsg/rulemorph/constants"
	"github.com/vinhphatfsg/rulemorph/version"
)

func addVersionCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("version", versionCmd),
	)
}

func versionCmd(ctx context.Context, args []string) error {
	info := version.GetVersionInfo(
		version.WithAppDetails(constants.APPNAME, "Transforms CSV/JSON records into JSON via declarative YAML rule documents", ""),
	)
	fmt.Print(info.String())
	return nil
}
