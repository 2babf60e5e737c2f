// Package replshell implements the interactive `dalec repl`/`-i` mode
// added by SPEC_FULL.md §6 "REPL mode": a line-oriented loop that
// compiles and immediately JIT-runs one top-form at a time against a
// persistent internal/driver Unit. Grounded on internal/repl/repl.go's
// liner-backed loop, generalized from evaluating ailang expressions to
// dispatching dalec top-forms.
package replshell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/dalec/dalec/internal/driver"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Shell is one REPL session: a persistent Driver plus the liner state
// used to read lines interactively.
type Shell struct {
	drv   *driver.Driver
	count int
}

// New returns a Shell whose Driver has its root Unit already open
// (preamble declarations included, unless opts.NoCommon).
func New(opts driver.Options) *Shell {
	if opts.Loader == nil {
		opts.Loader = os.ReadFile
	}
	drv := driver.New(opts)
	s := &Shell{drv: drv}
	if rep := drv.OpenREPL("<repl>"); rep != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("Error"), rep.Message)
	}
	return s
}

// Start runs the read-eval-print loop, reading lines from the terminal
// through liner (in itself is not read), until EOF or the user types
// :quit.
func (s *Shell) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()

	historyFile := filepath.Join(os.TempDir(), ".dalec_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	line.SetMultiLineMode(true)

	fmt.Fprintf(out, "%s\n", bold("dalec"))
	fmt.Fprintln(out, dim("Type a top-level form (def/include/import/module/once); :quit to exit"))
	fmt.Fprintln(out)

	for {
		input, err := line.Prompt("dalec> ")
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("Error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":quit" || input == ":q" {
			fmt.Fprintln(out, green("Goodbye!"))
			break
		}

		for !formComplete(input) {
			cont, err := line.Prompt("...    ")
			if err == io.EOF {
				fmt.Fprintln(out, red("\nincomplete form"))
				input = ""
				break
			}
			input += "\n" + cont
		}
		if input == "" {
			continue
		}

		line.AppendHistory(input)
		s.eval(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

// eval feeds one complete top-form through the persistent Driver and
// reports what happened.
func (s *Shell) eval(input string, out io.Writer) {
	s.count++
	name := "<repl:" + strconv.Itoa(s.count) + ">"

	if rep := s.drv.EvalLine(name, []byte(input)); rep != nil {
		fmt.Fprintf(out, "%s: %s\n", red("Error"), rep.Message)
		return
	}
	if s.drv.Reporter().HasErrors() {
		s.drv.Reporter().Flush(out)
		return
	}
	fmt.Fprintf(out, "%s\n", green("ok"))
}

// formComplete is a best-effort paren-balance check over input,
// ignoring parens inside string literals, so multi-line forms prompt
// for continuation instead of erroring on an incomplete read the way
// a single-shot ReadTopForm call would.
func formComplete(input string) bool {
	depth := 0
	inString := false
	escaped := false
	for _, r := range input {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth <= 0 && !inString
}
