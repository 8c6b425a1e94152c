package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kongExit struct{ code int }

func TestCLIStructParsing(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "help flag", args: []string{"--help"}},
		{name: "version command", args: []string{"version"}},
		{name: "list command", args: []string{"list"}},
		{name: "no command (defaults to help)", args: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli struct {
				Debug   bool       `help:"Enable debug mode." short:"d"`
				Version VersionCmd `cmd:"" help:"Print version."`
				Help    HelpCmd    `cmd:"" hidden:"" default:"1"`
				List    ListCmd    `cmd:"" help:"List gateways."`
				Run     RunCmd     `cmd:"" help:"Run a deliberation."`
			}

			var stdout bytes.Buffer
			didExit := false
			exitCode := -1

			parser, err := kong.New(&cli,
				kong.Name("deliberate"),
				kong.Exit(func(code int) {
					didExit = true
					exitCode = code
					panic(kongExit{code: code})
				}),
			)
			require.NoError(t, err)
			parser.Stdout = &stdout
			parser.Stderr = &stdout

			var parseErr error
			func() {
				defer func() {
					if r := recover(); r != nil {
						if _, ok := r.(kongExit); ok {
							return
						}
						panic(r)
					}
				}()
				_, parseErr = parser.Parse(tt.args)
			}()

			assert.NoError(t, parseErr)

			if tt.name == "help flag" {
				assert.True(t, didExit)
				assert.Equal(t, 0, exitCode)
				assert.Contains(t, stdout.String(), "Usage: deliberate")
			} else {
				assert.False(t, didExit)
			}
		})
	}
}

func TestRunCmdRequiresGatewayQuestionAndOpinions(t *testing.T) {
	var cli struct {
		Run RunCmd `cmd:""`
	}

	parser, err := kong.New(&cli, kong.Name("deliberate"), kong.Exit(func(int) {}))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"run"})
	assert.Error(t, err)
}

func TestRunCmdValidate(t *testing.T) {
	tests := []struct {
		name        string
		run         RunCmd
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid minimal",
			run:  RunCmd{Gateway: "openai.ChatCompletion", Question: "what should we do?", OpinionsFile: "opinions.txt"},
		},
		{
			name:        "missing gateway",
			run:         RunCmd{Question: "q", OpinionsFile: "opinions.txt"},
			expectError: true,
			errorMsg:    "gateway argument is required",
		},
		{
			name:        "missing question",
			run:         RunCmd{Gateway: "openai.ChatCompletion", OpinionsFile: "opinions.txt"},
			expectError: true,
			errorMsg:    "--question is required",
		},
		{
			name:        "missing opinions file",
			run:         RunCmd{Gateway: "openai.ChatCompletion", Question: "q"},
			expectError: true,
			errorMsg:    "--opinions-file is required",
		},
		{
			name: "both config sources",
			run: RunCmd{
				Gateway: "openai.ChatCompletion", Question: "q", OpinionsFile: "opinions.txt",
				ConfigFile: "config.yaml", Config: `{"model":"gpt-4o"}`,
			},
			expectError: true,
			errorMsg:    "cannot use both --config-file and --config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run.Validate()
			if tt.expectError {
				assert.Error(t, err)
				if tt.errorMsg != "" {
					assert.Contains(t, err.Error(), tt.errorMsg)
				}
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRunCmdFlagParsing(t *testing.T) {
	var cli struct {
		Run RunCmd `cmd:""`
	}

	parser, err := kong.New(&cli, kong.Name("deliberate"), kong.Exit(func(int) {}))
	require.NoError(t, err)

	args := []string{
		"run", "anthropic.Messages",
		"--question", "what should we build next?",
		"--opinions-file", "opinions.txt",
		"--recursive",
		"--config", `{"model":"claude-3-5-sonnet-20241022"}`,
		"--timeout", "1h",
		"--format", "json",
		"--seed", "42",
	}

	_, err = parser.Parse(args)
	require.NoError(t, err)

	assert.Equal(t, "anthropic.Messages", cli.Run.Gateway)
	assert.Equal(t, "what should we build next?", cli.Run.Question)
	assert.Equal(t, "opinions.txt", cli.Run.OpinionsFile)
	assert.True(t, cli.Run.Recursive)
	assert.Equal(t, `{"model":"claude-3-5-sonnet-20241022"}`, cli.Run.Config)
	assert.Equal(t, time.Hour, cli.Run.Timeout)
	assert.Equal(t, "json", cli.Run.Format)
	assert.Equal(t, int64(42), cli.Run.Seed)
}

func TestRunCmdDefaults(t *testing.T) {
	var cli struct {
		Run RunCmd `cmd:""`
	}

	parser, err := kong.New(&cli, kong.Name("deliberate"), kong.Exit(func(int) {}))
	require.NoError(t, err)

	args := []string{"run", "openai.ChatCompletion", "--question", "q", "--opinions-file", "opinions.txt"}
	_, err = parser.Parse(args)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cli.Run.Timeout)
	assert.Equal(t, "text", cli.Run.Format)
	assert.False(t, cli.Run.Recursive)
}

func TestRunCmdFormatEnum(t *testing.T) {
	var cli struct {
		Run RunCmd `cmd:""`
	}

	parser, err := kong.New(&cli, kong.Name("deliberate"), kong.Exit(func(int) {}))
	require.NoError(t, err)

	args := []string{
		"run", "openai.ChatCompletion",
		"--question", "q", "--opinions-file", "opinions.txt",
		"--format", "invalid",
	}
	_, err = parser.Parse(args)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--format")
}

func TestVersionCmdRun(t *testing.T) {
	cmd := VersionCmd{}
	assert.NoError(t, cmd.Run())
}

func TestListCmdRun(t *testing.T) {
	cmd := ListCmd{}
	assert.NoError(t, cmd.Run())
}

func TestHelpCmdRun(t *testing.T) {
	var cli struct {
		Help HelpCmd `cmd:"" hidden:"" default:"1"`
		Run  RunCmd  `cmd:"" help:"Run a deliberation."`
	}

	parser, err := kong.New(&cli, kong.Name("deliberate"), kong.Description("Test CLI"))
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{})
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx.Kong.Stdout = &buf

	require.NoError(t, cli.Help.Run(ctx))
	assert.Contains(t, buf.String(), "deliberate")
	assert.Contains(t, buf.String(), "Test CLI")
}
