package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"
)

// CLI represents the deliberate command-line interface.
var CLI struct {
	Debug      bool          `help:"Enable debug mode." short:"d" env:"DELIBERATE_DEBUG"`
	Version    VersionCmd    `cmd:"" help:"Print version information."`
	Help       HelpCmd       `cmd:"" hidden:"" default:"1"`
	List       ListCmd       `cmd:"" help:"List registered gateways."`
	Run        RunCmd        `cmd:"" help:"Run a deliberation over a question and a set of opinions."`
	Completion CompletionCmd `cmd:"" help:"Generate shell completion scripts."`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	printVersion()
	return nil
}

// HelpCmd prints help.
type HelpCmd struct{}

func (h *HelpCmd) Run(ctx *kong.Context) error {
	appCtx := *ctx
	if len(appCtx.Path) > 1 {
		appCtx.Path = appCtx.Path[:1]
	}
	return appCtx.PrintUsage(false)
}

// ListCmd lists registered gateways.
type ListCmd struct{}

func (l *ListCmd) Run() error {
	listGateways()
	return nil
}

// RunCmd runs a deliberation against a configured model gateway.
type RunCmd struct {
	// Required
	Gateway string `arg:"" help:"Gateway name (e.g., openai.ChatCompletion, anthropic.Messages)." required:""`

	Question     string `help:"The question participants are opining on." short:"q" required:""`
	OpinionsFile string `help:"Path to a file with one opinion per line." name:"opinions-file" type:"path" required:""`

	Recursive bool `help:"Run the full hierarchical deliberation instead of one flat election." short:"r"`

	ConfigFile string `help:"YAML config file path." type:"existingfile" name:"config-file"`
	Config     string `help:"JSON config for the gateway." short:"c"`

	Seed int64 `help:"Seed for the session RNG; omit for a time-seeded run." name:"seed"`

	Timeout time.Duration `help:"Overall run timeout." default:"30m"`

	Format     string `help:"Output format." enum:"text,json" default:"text" short:"f"`
	Transcript string `help:"Write the full event transcript as JSONL to this path." name:"transcript" type:"path"`

	MetricsAddr string `help:"Serve Prometheus metrics on this address (e.g. :9090) for the duration of the run." name:"metrics-addr"`
}

func (r *RunCmd) Run() error {
	return r.execute()
}

func (r *RunCmd) Validate() error {
	if r.Gateway == "" {
		return fmt.Errorf("gateway argument is required")
	}
	if r.Question == "" {
		return fmt.Errorf("--question is required")
	}
	if r.OpinionsFile == "" {
		return fmt.Errorf("--opinions-file is required")
	}
	if r.ConfigFile != "" && r.Config != "" {
		return fmt.Errorf("cannot use both --config-file and --config")
	}
	return nil
}

// CompletionCmd generates shell completion scripts.
type CompletionCmd struct {
	Shell string `arg:"" enum:"bash,zsh,fish" help:"Shell type (bash, zsh, fish)."`
}

func (c *CompletionCmd) Run() error {
	switch c.Shell {
	case "bash":
		fmt.Println("# Bash completion for deliberate")
		fmt.Println("# Add to ~/.bashrc:")
		fmt.Println("# eval \"$(deliberate completion bash)\"")
	case "zsh":
		fmt.Println("# Zsh completion for deliberate")
		fmt.Println("# Add to ~/.zshrc:")
		fmt.Println("# eval \"$(deliberate completion zsh)\"")
	case "fish":
		fmt.Println("# Fish completion for deliberate")
		fmt.Println("# Run: deliberate completion fish | source")
	}
	return nil
}
