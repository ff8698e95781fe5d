package repl

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvet/scriptcore"
	"github.com/cvet/scriptcore/script_errors"
	"github.com/cvet/scriptcore/utils"
)

func newREPL(t *testing.T) *REPL {
	rt, err := scriptcore.Open(scriptcore.Options{Logger: utils.NopLogger{}})
	require.NoError(t, err)
	repl, err := New(rt)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = repl.Close()
		_ = rt.Close()
	})
	return repl
}

func run(t *testing.T, repl *REPL, lines ...string) string {
	var out string
	for _, line := range lines {
		var err error
		out, err = repl.Execute(line)
		require.NoError(t, err, line)
	}
	return out
}

func TestSplitArgs(t *testing.T) {
	args, err := splitArgs(`set d "a b" 1`)
	require.NoError(t, err)
	assert.Equal(t, []string{"set", "d", `"a b"`, "1"}, args)

	args, err = splitArgs(`  store x "say \"hi\""  `)
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "x", `"say \"hi\""`}, args)

	_, err = splitArgs(`store x "open`)
	assert.ErrorIs(t, err, ErrBadLiteral)

	args, err = splitArgs("   ")
	require.NoError(t, err)
	assert.Empty(t, args)
}

func TestAnyCommands(t *testing.T) {
	repl := newREPL(t)

	assert.Equal(t, "void", run(t, repl, "any a", "retrieve a"))
	assert.Equal(t, "42", run(t, repl, "store a 42", "retrieve a"))
	assert.Equal(t, "42", run(t, repl, "retrieve a double"))
	assert.Equal(t, "-2", run(t, repl, "store a -2.7", "retrieve a int"))
	assert.Equal(t, `"hi there"`, run(t, repl, `store a "hi there"`, "retrieve a"))
	assert.Equal(t, `"hi there"`, run(t, repl, "retrieve a string"))
	assert.Equal(t, "#7", run(t, repl, "store a 7 ident", "retrieve a"))

	_, err := repl.Execute("retrieve a int")
	assert.ErrorIs(t, err, ErrNotConvertible)

	_, err = repl.Execute("store a 1 int8")
	assert.ErrorIs(t, err, script_errors.ErrInvalidTypeID)
}

func TestAnyHoldsHandle(t *testing.T) {
	repl := newREPL(t)

	assert.Equal(t, "@b", run(t, repl, "any a", "any b", "store a b", "retrieve a"))
	assert.Equal(t, "@b", run(t, repl, "retrieve a any@"))
	assert.Equal(t, 2, repl.vars["b"].GetRefCount())

	assert.Equal(t, "null", run(t, repl, "store a null", "retrieve a"))
	assert.Equal(t, 1, repl.vars["b"].GetRefCount())
}

func TestDictCommands(t *testing.T) {
	repl := newREPL(t)

	run(t, repl, "dict d dict<string, int>", `set d "x" 5`, `set d "a" 1`)
	assert.Equal(t, "5", run(t, repl, `get d "x"`))
	assert.Equal(t, "2", run(t, repl, "size d"))
	assert.Equal(t, "\"a\": 1\n\"x\": 5", run(t, repl, "list d"))
	assert.Equal(t, "true", run(t, repl, `del d "x"`))
	assert.Equal(t, "false", run(t, repl, `del d "x"`))

	_, err := repl.Execute(`get d "x"`)
	assert.ErrorIs(t, err, script_errors.ErrKeyNotFound)

	_, err = repl.Execute(`set d "y" nope`)
	assert.ErrorIs(t, err, ErrBadLiteral)

	_, err = repl.Execute("dict e dict<void,int>")
	assert.ErrorIs(t, err, script_errors.ErrTemplateRejected)
}

func TestHStringCommand(t *testing.T) {
	repl := newREPL(t)

	hash := run(t, repl, `hstring "door"`)
	assert.Equal(t, `"door"`, run(t, repl, "hstring "+hash))

	_, err := repl.Execute("hstring 0x1")
	assert.ErrorIs(t, err, script_errors.ErrHashUnknown)
}

func TestCycleCollectedFromConsole(t *testing.T) {
	repl := newREPL(t)

	run(t, repl, "any b", "dict e dict<int,any@>", "set e 1 b", "store b e")
	assert.Equal(t, "0 destroyed, 2 tracked", run(t, repl, "gc"))

	run(t, repl, "release b", "release e")
	assert.Equal(t, "2 destroyed, 0 tracked", run(t, repl, "gc"))
}

func TestCommandErrors(t *testing.T) {
	repl := newREPL(t)

	_, err := repl.Execute("frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = repl.Execute("set d")
	assert.ErrorIs(t, err, HelpSet)

	_, err = repl.Execute("size nothing")
	assert.ErrorIs(t, err, ErrNoVar)

	run(t, repl, "any a")
	_, err = repl.Execute("size a")
	assert.ErrorIs(t, err, ErrWrongVar)

	_, err = repl.Execute("quit")
	assert.ErrorIs(t, err, io.EOF)

	assert.Contains(t, run(t, repl, "help"), "dict NAME dict<KEY,VALUE>")
}
