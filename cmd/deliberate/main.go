package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	// Import for side effects: register all gateways via init()
	_ "github.com/praetorian-inc/deliberate/internal/gateways/anthropic"
	_ "github.com/praetorian-inc/deliberate/internal/gateways/bedrock"
	_ "github.com/praetorian-inc/deliberate/internal/gateways/ollama"
	_ "github.com/praetorian-inc/deliberate/internal/gateways/openai"
	_ "github.com/praetorian-inc/deliberate/internal/gateways/replicate"
)

func main() {
	// Parse with a custom exit handler to enforce proper exit codes:
	// 0 = success, 1 = run error, 2 = validation/usage error
	ctx := kong.Parse(&CLI,
		kong.Name("deliberate"),
		kong.Description("Deliberate - consensus statement engine"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
		kong.Exit(func(code int) {
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
