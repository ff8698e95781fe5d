package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cvet/scriptcore"
	"github.com/cvet/scriptcore/repl"
)

func main() {
	config := flag.String("config", "", "TOML options file")
	history := flag.String("history", ".scriptcore_cmd_log.txt", "command history file")
	flag.Parse()

	var opts scriptcore.Options
	if *config != "" {
		var err error
		if opts, err = scriptcore.LoadOptions(*config); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	}
	rt, err := scriptcore.Open(opts)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer rt.Close()

	console, err := repl.New(rt)
	if err == nil {
		err = console.Open(*history)
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer console.Close()

	var out string
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
			err = nil
		} else if out != "" {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", out)
		}
		out, err = console.REPL()
	}
}
