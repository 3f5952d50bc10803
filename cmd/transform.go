package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/binaek/cling"

	"github.com/vinhphatfsg/rulemorph/engine"
)

func addTransformCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("transform", transformCmd).
			WithArgument(cling.NewStringCmdInput("rule").
				WithDescription("Entry rule document to run").
				AsArgument(),
			).
			WithFlag(cling.
				NewStringCmdInput("input").
				WithDefault("").
				WithDescription("Path to the CSV/JSON input file; reads stdin if omitted").
				AsFlag(),
			).
			WithFlag(cling.
				NewStringCmdInput("context").
				WithDefault("{}").
				WithDescription("JSON object bound to @context").
				AsFlag(),
			).
			WithFlag(cling.
				NewBoolCmdInput("trace").
				WithDefault(false).
				WithDescription("Emit a trace document alongside the result").
				AsFlag(),
			),
	)
}

type transformCmdArgs struct {
	Rule    string `cling-name:"rule"`
	Input   string `cling-name:"input"`
	Context string `cling-name:"context"`
	Trace   bool   `cling-name:"trace"`
}

func transformCmd(ctx context.Context, args []string) error {
	input := transformCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	eng, err := engine.LoadGraph(input.Rule)
	if err != nil {
		return err
	}
	rule := eng.Graph().Rule(eng.Graph().Entry)

	var body []byte
	if input.Input != "" {
		body, err = os.ReadFile(input.Input)
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	var contextObj map[string]any
	if err := json.Unmarshal([]byte(input.Context), &contextObj); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if input.Trace {
		stream, doc, err := eng.TransformWithTrace(rule, body, contextObj, time.Now())
		if err != nil {
			return err
		}
		return enc.Encode(struct {
			Result any `json:"result"`
			Trace  any `json:"trace"`
		}{Result: stream.All(), Trace: doc})
	}

	stream, err := eng.Transform(rule, body, contextObj)
	if err != nil {
		return err
	}
	return enc.Encode(stream.All())
}
