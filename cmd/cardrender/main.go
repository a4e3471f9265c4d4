// cardrender renders a card once and prints the result as JSON.
//
// Examples:
//
//	cardrender -f greeting.json -payload '{"user":{"name":"Ada"}}'
//	cardrender -catalog welcome -mode renderAndValidate
//	cardrender -f form.json -interaction '{"interactionType":"Submit","actionId":"go","cardInstanceId":"inst-1","rawInputs":{"name":"Ada"}}'
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/flowcard/flowcard/asset"
	"github.com/flowcard/flowcard/card"
	"github.com/flowcard/flowcard/interpreters"
	"github.com/flowcard/flowcard/render"
	"github.com/flowcard/flowcard/store"
	"github.com/flowcard/flowcard/tools"
	"github.com/flowcard/flowcard/util"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cardrender: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		cardFile    = flag.String("f", "", "card definition file (JSON or YAML)")
		catalogName = flag.String("catalog", "", "card catalog name")
		inline      = flag.String("inline", "", "inline card JSON")
		assetDir    = flag.String("assets", ".", "asset registry directory")

		payload = flag.String("payload", "", "payload JSON (or @filename)")
		session = flag.String("session", "", "session JSON (or @filename)")
		state   = flag.String("state", "", "state JSON (or @filename)")
		params  = flag.String("params", "", "template params JSON (or @filename)")

		interaction = flag.String("interaction", "", "interaction JSON (or @filename)")
		nodeID      = flag.String("node", "", "flow node id")

		mode       = flag.String("mode", "render", "render, validate, or renderAndValidate")
		validation = flag.String("validation", "warn", "off, warn, or error")

		dbFile  = flag.String("d", "", "optional bbolt file for card state")
		preview = flag.String("preview", "", "write an HTML preview to this file")
	)

	flag.BoolVar(&util.Logging, "v", false, "log lots of wonderful things")
	flag.Parse()

	ctx := context.Background()

	inv := &card.Invocation{
		NodeID:         *nodeID,
		Mode:           card.Mode(*mode),
		ValidationMode: card.ValidationMode(*validation),
	}

	switch {
	case *cardFile != "":
		inv.Source = card.SourceAsset
		inv.Spec.AssetPath = *cardFile
	case *catalogName != "":
		inv.Source = card.SourceCatalog
		inv.Spec.CatalogName = *catalogName
	case *inline != "":
		inv.Source = card.SourceInline
		inv.Spec.InlineJSON = *inline
	default:
		return fmt.Errorf("need one of -f, -catalog, or -inline")
	}

	var err error
	if inv.Payload, err = readTree(*payload); err != nil {
		return err
	}
	if inv.Session, err = readTree(*session); err != nil {
		return err
	}
	if inv.State, err = readTree(*state); err != nil {
		return err
	}
	if *params != "" {
		tree, err := readTree(*params)
		if err != nil {
			return err
		}
		m, is := tree.(map[string]interface{})
		if !is {
			return fmt.Errorf("-params must be a JSON object")
		}
		inv.Spec.TemplateParams = m
	}
	if *interaction != "" {
		bs, err := readArg(*interaction)
		if err != nil {
			return err
		}
		var in card.Interaction
		if err := json.Unmarshal(bs, &in); err != nil {
			return fmt.Errorf("bad -interaction: %s", err)
		}
		inv.Interaction = &in
	}

	engine := &render.Engine{
		Assets:       &asset.Registry{Dir: *assetDir},
		Interpreters: interpreters.Standard(),
	}

	if *dbFile != "" {
		s := store.NewBolt(*dbFile)
		if err := s.Open(ctx); err != nil {
			return err
		}
		defer s.Close(ctx)
		engine.Store = s
	}

	result, err := engine.HandleInvocation(ctx, inv)
	if err != nil {
		if result == nil {
			return err
		}
		// Validation failures still carry a result worth seeing.
		fmt.Fprintf(os.Stderr, "cardrender: %s\n", err)
		defer os.Exit(1)
	}

	js, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", js)

	if *preview != "" && result.RenderedCard != nil {
		f, err := os.Create(*preview)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := tools.RenderCardPage(result.RenderedCard, f, nil); err != nil {
			return err
		}
	}

	return nil
}

// readArg returns the argument's bytes, reading a file when the
// argument starts with @.
func readArg(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "@") {
		return os.ReadFile(arg[1:])
	}
	return []byte(arg), nil
}

func readTree(arg string) (interface{}, error) {
	if arg == "" {
		return nil, nil
	}
	bs, err := readArg(arg)
	if err != nil {
		return nil, err
	}
	var tree interface{}
	if err := json.Unmarshal(bs, &tree); err != nil {
		return nil, fmt.Errorf("bad JSON '%s': %s", arg, err)
	}
	return tree, nil
}
