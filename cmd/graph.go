package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/binaek/cling"

	"github.com/vinhphatfsg/rulemorph/engine"
)

func addGraphCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("graph", graphCmd).
			WithArgument(cling.NewStringCmdInput("rule").
				WithDescription("Entry rule document to build a call graph from").
				AsArgument(),
			),
	)
}

type graphCmdArgs struct {
	Rule string `cling-name:"rule"`
}

func graphCmd(ctx context.Context, args []string) error {
	input := graphCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	eng, err := engine.LoadGraph(input.Rule)
	if err != nil {
		return err
	}

	doc := engine.BuildCallGraph(eng.Graph())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
