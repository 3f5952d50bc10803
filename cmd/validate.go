package cmd

import (
	"context"
	"fmt"

	"github.com/binaek/cling"

	"github.com/vinhphatfsg/rulemorph/engine"
)

func addValidateCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("validate", validateCmd).
			WithArgument(cling.NewStringCmdInput("rule").
				WithDescription("Entry rule document to validate").
				AsArgument(),
			),
	)
}

type validateCmdArgs struct {
	Rule string `cling-name:"rule"`
}

func validateCmd(ctx context.Context, args []string) error {
	input := validateCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	eng, err := engine.LoadGraph(input.Rule)
	if err != nil {
		return err
	}

	fmt.Printf("OK: %d rule document(s) loaded and validated\n", len(eng.Graph().Order()))
	return nil
}
