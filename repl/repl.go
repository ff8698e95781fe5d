// Package repl is an interactive console over a scriptcore runtime.
package repl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ergochat/readline"

	"github.com/cvet/scriptcore"
	"github.com/cvet/scriptcore/anybox"
	"github.com/cvet/scriptcore/host"
)

// REPL per se. Every named variable holds one reference on its container.
type REPL struct {
	Runtime *scriptcore.Runtime
	rl      *readline.Instance
	vars    map[string]host.Collectable
	anyH    host.TypeID
}

var ErrUnknownCommand = errors.New("command unknown")

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("any"),
	readline.PcItem("store"),
	readline.PcItem("retrieve"),

	readline.PcItem("dict"),
	readline.PcItem("set"),
	readline.PcItem("get"),
	readline.PcItem("del"),
	readline.PcItem("list"),
	readline.PcItem("size"),

	readline.PcItem("hstring"),
	readline.PcItem("release"),
	readline.PcItem("gc"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func New(rt *scriptcore.Runtime) (*REPL, error) {
	anyH, err := rt.Registry().TypeIDByDecl(anybox.TypeName + "@")
	if err != nil {
		return nil, err
	}
	return &REPL{
		Runtime: rt,
		vars:    make(map[string]host.Collectable),
		anyH:    anyH,
	}, nil
}

func (repl *REPL) Open(history string) (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     history,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

// Close drops every variable. The runtime stays open.
func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	for name, obj := range repl.vars {
		obj.Release()
		delete(repl.vars, name)
	}
	return nil
}

// REPL reads and runs one line.
func (repl *REPL) REPL() (out string, err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return repl.Execute(line)
}

func (repl *REPL) Execute(line string) (out string, err error) {
	args, err := splitArgs(line)
	if err != nil || len(args) == 0 {
		return "", err
	}
	cmd := args[0]
	args = args[1:]
	switch cmd {
	// ----- any -----
	case "any":
		out, err = repl.CommandAny(args)
	case "store":
		out, err = repl.CommandStore(args)
	case "retrieve":
		out, err = repl.CommandRetrieve(args)
	// ----- dict -----
	case "dict":
		out, err = repl.CommandDict(args)
	case "set":
		out, err = repl.CommandSet(args)
	case "get":
		out, err = repl.CommandGet(args)
	case "del":
		out, err = repl.CommandDel(args)
	case "ls", "list":
		out, err = repl.CommandList(args)
	case "size":
		out, err = repl.CommandSize(args)
	// ----- runtime -----
	case "hstring":
		out, err = repl.CommandHString(args)
	case "release":
		out, err = repl.CommandRelease(args)
	case "gc":
		out, err = repl.CommandGC(args)
	case "help":
		out = repl.CommandHelp()
	case "exit", "quit":
		err = io.EOF
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return
}

// splitArgs splits on blanks. Double-quoted runs stay one argument,
// quotes included.
func splitArgs(line string) (args []string, err error) {
	var cur strings.Builder
	quoted, escaped, started := false, false, false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t' || r == '\r' || r == '\n'):
			if started {
				args = append(args, cur.String())
				cur.Reset()
				started = false
			}
			continue
		}
		cur.WriteRune(r)
		started = true
	}
	if quoted {
		return nil, ErrBadLiteral
	}
	if started {
		args = append(args, cur.String())
	}
	return args, nil
}
