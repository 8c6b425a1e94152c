package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/praetorian-inc/deliberate/internal/coordinator"
	"github.com/praetorian-inc/deliberate/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opinions.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestReadOpinions_SkipsBlankAndCommentLines(t *testing.T) {
	path := writeTempFile(t, "# a comment\nfirst opinion\n\nsecond opinion\n  \nthird opinion\n")

	opinions, err := readOpinions(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first opinion", "second opinion", "third opinion"}, opinions)
}

func TestReadOpinions_RequiresAtLeastTwo(t *testing.T) {
	path := writeTempFile(t, "only one opinion\n")

	_, err := readOpinions(path)
	require.Error(t, err)
}

func TestReadOpinions_MissingFile(t *testing.T) {
	_, err := readOpinions(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	require.Error(t, err)
}

func TestRunCmd_LoadGatewayConfig_Empty(t *testing.T) {
	r := &RunCmd{}
	cfg, err := r.loadGatewayConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg)
}

func TestRunCmd_LoadGatewayConfig_ParsesJSON(t *testing.T) {
	r := &RunCmd{Config: `{"model":"gpt-4o","api_key":"sk-test"}`}
	cfg, err := r.loadGatewayConfig()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg["model"])
	assert.Equal(t, "sk-test", cfg["api_key"])
}

func TestRunCmd_LoadGatewayConfig_RejectsInvalidJSON(t *testing.T) {
	r := &RunCmd{Config: `{not json`}
	_, err := r.loadGatewayConfig()
	require.Error(t, err)
}

func TestWriteTranscript_WritesOneEventPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	transcript := []events.Event{
		{Seq: 1, Kind: events.KindLevelStart, Level: 0},
		{Seq: 2, Kind: events.KindDone, Level: 0, Payload: map[string]any{"winner": "consensus"}},
	}

	require.NoError(t, writeTranscript(path, transcript))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var lines []map[string]any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	for decoder.More() {
		var m map[string]any
		require.NoError(t, decoder.Decode(&m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "LevelStart", lines[0]["Kind"])
	assert.Equal(t, "Done", lines[1]["Kind"])
}

func TestRunCmd_PrintResult_JSON(t *testing.T) {
	r := &RunCmd{Format: "json"}
	err := r.printResult(coordinator.Result{Winner: "consensus statement", Degraded: true})
	assert.NoError(t, err)
}

func TestRunCmd_PrintResult_Text(t *testing.T) {
	r := &RunCmd{Format: "text"}
	err := r.printResult(coordinator.Result{Winner: "consensus statement"})
	assert.NoError(t, err)
}
