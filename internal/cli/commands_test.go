package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bondbreak/internal/breakage"
	"github.com/roach88/bondbreak/internal/config"
	"github.com/roach88/bondbreak/internal/ir"
)

const pairSystem = "testdata/systems/pair.cue"

// cliEnv runs root commands against one temporary database. The step token
// generator is shared so tokens stay unique across invocations.
type cliEnv struct {
	t      *testing.T
	db     string
	tokens breakage.StepTokenGenerator
}

func newCLI(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		t:      t,
		db:     filepath.Join(t.TempDir(), "bondbreak.db"),
		tokens: breakage.NewFixedGenerator("step-a", "step-b", "step-c"),
	}
}

func (c *cliEnv) run(args ...string) (stdout, stderr string, err error) {
	c.t.Helper()
	cfg := config.Config{DBPath: c.db, LogLevel: "error", Format: "text"}
	cmd := newRootCommand(cfg, &RootOptions{StepTokens: c.tokens})

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// mustRun runs a command that is expected to succeed and returns stdout.
func (c *cliEnv) mustRun(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run(args...)
	require.NoError(c.t, err, "bondbreak %s\nstdout: %s\nstderr: %s", strings.Join(args, " "), out, errOut)
	return out
}

func decodeData(t *testing.T, out string, target any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, target))
}

func TestStatus_OffByDefault(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "off\n", c.mustRun("status"))
}

func TestHandlers_ListsRegistry(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t,
		"break_collision_bond\nbreak_simple_pair_bond\nprint_queue_entry\n",
		c.mustRun("handlers"))
}

func TestAdd_PersistsChainInOrder(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("add", "print_queue_entry", "break_simple_pair_bond")
	assert.Equal(t, "print_queue_entry break_simple_pair_bond\n", out)

	out = c.mustRun("add", "print_queue_entry")
	assert.Equal(t, "print_queue_entry break_simple_pair_bond print_queue_entry\n", out)

	assert.Equal(t, out, c.mustRun("status"))
}

func TestAdd_UnknownNameAbortsBatch(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("add", "print_queue_entry", "nope", "break_simple_pair_bond")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, "Unknown handler name nope", err.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Equal(t, "print_queue_entry\n", c.mustRun("status"), "names before the bad one stay added")
}

func TestAdd_UnknownNameJSON(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("add", "Print_Queue_Entry", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, string(breakage.ErrCodeHandlerNotFound), resp.Error.Code)
	assert.Equal(t, "Unknown handler name Print_Queue_Entry", resp.Error.Message)
}

func TestOff_ClearsChain(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "break_collision_bond")

	assert.Equal(t, "off\n", c.mustRun("off"))
	assert.Equal(t, "off\n", c.mustRun("status"))
}

func TestStatus_JSON(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "break_simple_pair_bond", "print_queue_entry")

	var status ChainStatus
	decodeData(t, c.mustRun("status", "--format", "json"), &status)
	assert.Equal(t, "break_simple_pair_bond print_queue_entry", status.Status)
	assert.Equal(t, []string{"break_simple_pair_bond", "print_queue_entry"}, status.Handlers)
}

func TestLoad_ImportsSystem(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("load", pairSystem)
	assert.Contains(t, out, "✓ loaded system pair: 2 bond type(s), 5 particle(s), 4 bond(s)")
	assert.Contains(t, out, "chain: print_queue_entry break_simple_pair_bond")

	assert.Equal(t, "print_queue_entry break_simple_pair_bond\n", c.mustRun("status"))

	var bonds BondsResult
	decodeData(t, c.mustRun("bonds", "--format", "json"), &bonds)
	assert.Len(t, bonds.Bonds, 4)
	assert.NotEmpty(t, bonds.Hash)
}

func TestLoad_RequiresSystemWhenSeveral(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("load", "testdata/multi/multi.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "choose one with --system")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out := c.mustRun("load", "testdata/multi/multi.cue", "--system", "right")
	assert.Contains(t, out, "loaded system right")
	assert.Equal(t, "break_simple_pair_bond\n", c.mustRun("status"))
}

func TestLoad_MissingPath(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("load", "testdata/does-not-exist.cue")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("validate", "testdata/invalid/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ system broken invalid")
	assert.Contains(t, out, "E115")
	assert.Contains(t, out, "E120")
	assert.Contains(t, out, "Unknown handler name break_everything")
}

func TestValidate_ValidSystemWritesNothing(t *testing.T) {
	c := newCLI(t)

	assert.Equal(t, "✓ system pair valid\n", c.mustRun("validate", pairSystem))
	assert.Equal(t, "off\n", c.mustRun("status"), "validate must not import")
}

func TestBreakAndFlush_Golden(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", pairSystem)

	assert.Equal(t, "queued type=0 id1=1 id2=2 (1 pending)\n", c.mustRun("break", "0", "1", "2"))
	assert.Equal(t, "queued type=0 id1=1 id2=2 (2 pending)\n", c.mustRun("break", "0", "1", "2"))

	out := c.mustRun("flush")
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "flush_pair", []byte(out))

	bonds := c.mustRun("bonds")
	assert.NotContains(t, bonds, "owner=1 type=0 partner=2")
	assert.NotContains(t, bonds, "owner=2 type=0 partner=1")
	assert.Contains(t, bonds, "owner=1 type=0 partner=3")
	assert.Contains(t, bonds, "owner=1 type=1 partner=3")

	out = c.mustRun("flush")
	assert.Equal(t, "step 2: 0 event(s), 0 dispatch(es), 0 error(s)\n", out, "queue is empty after a flush")
}

func TestBreak_InvalidArguments(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("break", "zero", "1", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid type "zero"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = c.run("break", "0", "1")
	require.Error(t, err)
}

func TestBreak_Overstretch(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", pairSystem)

	_, _, err := c.run("break", "1", "1", "3", "--overstretch")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "bond type 1 is not breakable", err.Error())

	assert.Equal(t, "queued type=0 id1=1 id2=3 (1 pending)\n", c.mustRun("break", "0", "1", "3", "--overstretch"))

	var rec ir.FlushRecord
	decodeData(t, c.mustRun("flush", "--format", "json"), &rec)
	assert.Equal(t, []ir.BreakEvent{{Type: 0, ID1: 1, ID2: 3}}, rec.Events)
}

func TestFlush_JSONSendsHandlerOutputToStderr(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", pairSystem)
	c.mustRun("break", "0", "2", "1")

	out, errOut, err := c.run("flush", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, errOut, "bond breakage queue entry: type=0 id1=2 id2=1")

	var rec ir.FlushRecord
	decodeData(t, out, &rec)
	assert.Equal(t, int64(1), rec.Step)
	assert.Equal(t, "step-a", rec.Token)
	assert.Equal(t, 2, rec.Dispatches)
	assert.NotEqual(t, rec.HashBefore, rec.HashAfter)
}

func TestFlush_RuntimeErrorsDoNotFailCommand(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", pairSystem)
	c.mustRun("off")
	c.mustRun("add", "break_collision_bond")
	c.mustRun("break", "0", "1", "2")
	c.mustRun("break", "0", "10", "20")

	out := c.mustRun("flush")
	assert.Contains(t, out, "step 1: 2 event(s), 2 dispatch(es), 1 error(s)")
	assert.Contains(t, out, "  PRECONDITION_VIOLATION: ")

	bonds := c.mustRun("bonds")
	assert.NotContains(t, bonds, "partner=2")
	assert.NotContains(t, bonds, "owner=2 ")
	assert.Contains(t, bonds, "owner=1 type=0 partner=3")
}

func TestFlush_OffStillDrainsQueue(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", pairSystem)
	before := c.mustRun("bonds")

	c.mustRun("off")
	c.mustRun("break", "0", "1", "2")
	assert.Equal(t, "step 1: 1 event(s), 0 dispatch(es), 0 error(s)\n", c.mustRun("flush"))
	assert.Equal(t, before, c.mustRun("bonds"))

	assert.Equal(t, "step 2: 0 event(s), 0 dispatch(es), 0 error(s)\n", c.mustRun("flush"))
}

func TestHistory_Golden(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "No flushes recorded.\n", c.mustRun("history"))

	c.mustRun("load", pairSystem)
	c.mustRun("break", "0", "1", "2")
	c.mustRun("break", "0", "1", "2")
	c.mustRun("flush")
	c.mustRun("off")
	c.mustRun("add", "break_collision_bond")
	c.mustRun("break", "0", "1", "3")
	c.mustRun("flush")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "history_text", []byte(c.mustRun("history")))

	var payload struct {
		Flushes []ir.FlushRecord `json:"flushes"`
	}
	decodeData(t, c.mustRun("history", "--limit", "1", "--format", "json"), &payload)
	require.Len(t, payload.Flushes, 1)
	assert.Equal(t, int64(2), payload.Flushes[0].Step)
	assert.Equal(t, "step-b", payload.Flushes[0].Token)
	require.Len(t, payload.Flushes[0].Errors, 1)
	assert.Equal(t, "PRECONDITION_VIOLATION", payload.Flushes[0].Errors[0].Code)

	_, _, err := c.run("history", "--limit", "-1")
	require.Error(t, err)
}

func TestBonds_TextEndsWithHash(t *testing.T) {
	c := newCLI(t)
	c.mustRun("load", pairSystem)

	lines := strings.Split(strings.TrimSuffix(c.mustRun("bonds"), "\n"), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[4], "hash="), lines[4])
}
