// Command dalec is the command-line driver: it turns the batch CLI
// surface described by the compiler's external interfaces into calls
// against internal/driver, then writes whatever artifacts the chosen
// module name and output format ask for.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/dalec/dalec/internal/driver"
	"github.com/dalec/dalec/internal/dtm"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/replshell"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// stringList accumulates repeated occurrences of a flag (-I, -L,
// --static, --cto) into an ordered slice — flag.Value's idiomatic
// repeated-flag shape, since the stdlib flag package has no slice
// flag of its own.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type config struct {
	output       string
	produce      string
	optLevel     int
	moduleName   string
	noCommon     bool
	noDRT        bool
	staticAll    bool
	staticMods   stringList
	ctoMods      stringList
	includePaths stringList
	modulePaths  stringList
	removeMacros bool
	debug        bool
	repl         bool
	files        []string
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "repl" {
		cfg := parseFlags(os.Args[2:])
		runREPL(cfg)
		return
	}

	cfg := parseFlags(os.Args[1:])
	if cfg.repl {
		runREPL(cfg)
		return
	}
	if len(cfg.files) == 0 {
		fmt.Fprintf(os.Stderr, "%s: no input files\n", red("Error"))
		printUsage()
		os.Exit(1)
	}
	compile(cfg)
}

func parseFlags(args []string) *config {
	fs := flag.NewFlagSet("dalec", flag.ExitOnError)
	cfg := &config{}

	fs.StringVar(&cfg.output, "o", "", "output path")
	fs.StringVar(&cfg.produce, "produce", "bc", "output format: ir|asm|bc")
	opt := fs.String("O", "0", "optimization level: 0,1,2,3,4")
	fs.StringVar(&cfg.moduleName, "m", "", "compile as module NAME")
	fs.BoolVar(&cfg.noCommon, "no-common", false, "suppress preamble declarations")
	fs.BoolVar(&cfg.noDRT, "no-drt", false, "suppress standard runtime import")
	fs.BoolVar(&cfg.staticAll, "static-all", false, "link every referenced module statically")
	fs.Var(&cfg.staticMods, "static", "link the named module statically (repeatable)")
	fs.Var(&cfg.ctoMods, "cto", "mark the named module compile-time-only (repeatable)")
	fs.Var(&cfg.includePaths, "I", "include search path (repeatable)")
	fs.Var(&cfg.modulePaths, "L", "module search path (repeatable)")
	fs.BoolVar(&cfg.removeMacros, "remove-macros", false, "elide macro functions from final output")
	fs.BoolVar(&cfg.debug, "debug", false, "enable extra diagnostic output")
	fs.BoolVar(&cfg.repl, "i", false, "enter interactive REPL mode")

	_ = fs.Parse(args)
	cfg.files = fs.Args()
	cfg.optLevel = clampOptLevel(*opt)
	return cfg
}

// clampOptLevel implements "3 is clamped to 2 unless 4 (which enables
// LTO passes and is remapped to 3)". Actual codegen at any level is
// the external emitter's responsibility; dalec only threads the
// resolved level through to --debug output and a future emitter hook.
func clampOptLevel(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	switch {
	case n == 4:
		return 3
	case n > 2:
		return 2
	default:
		return n
	}
}

func compile(cfg *config) {
	opts := driver.Options{
		Loader:              os.ReadFile,
		NoCommon:            cfg.noCommon,
		NoDRT:               cfg.noDRT,
		RemoveMacros:        cfg.removeMacros,
		IncludePaths:        []string(cfg.includePaths),
		ModulePaths:         []string(cfg.modulePaths),
		InstalledModulePath: installedModulePath(),
		StaticAll:           cfg.staticAll,
		StaticModules:       []string(cfg.staticMods),
		CTOModules:          []string(cfg.ctoMods),
	}
	drv := driver.New(opts)

	var res *driver.Result
	for _, path := range cfg.files {
		if !strings.HasSuffix(path, ".dt") {
			fmt.Fprintf(os.Stderr, "%s: %q is not a source file; linking precompiled bitcode is the external emitter's job\n", red("Error"), path)
			os.Exit(1)
		}
		r, rep := drv.CompileFile(path)
		if rep != nil {
			printReport(rep)
			os.Exit(1)
		}
		res = r
	}

	if drv.Reporter().HasErrors() {
		drv.Reporter().Flush(os.Stderr)
		os.Exit(1)
	}

	if cfg.debug {
		fmt.Fprintf(os.Stderr, "%s -O%d, functions: %v\n", cyan("debug:"), cfg.optLevel, res.Module.FuncNames())
	}

	moduleName := cfg.moduleName
	if moduleName != "" {
		res.ModuleName = moduleName
	}

	if res.ModuleName != "" {
		nomacros := res.Module
		if !cfg.removeMacros {
			// The primary compile already kept macro functions (the CLI
			// didn't ask to drop them); produce the -nomacros sibling from
			// a second, independent compile so the main artifacts are
			// unaffected by it.
			macroFreeOpts := opts
			macroFreeOpts.RemoveMacros = true
			macroDrv := driver.New(macroFreeOpts)
			var macroRes *driver.Result
			for _, path := range cfg.files {
				r, rep := macroDrv.CompileFile(path)
				if rep != nil {
					printReport(rep)
					os.Exit(1)
				}
				macroRes = r
			}
			nomacros = macroRes.Module
		}
		if err := writeModuleArtifacts(drv, res, nomacros); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
			os.Exit(1)
		}
	}

	if err := writeOutput(cfg, res); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
		os.Exit(1)
	}
}

// writeModuleArtifacts implements "-m NAME...produces DTM + .bc +
// -nomacros.bc + .so artifacts" (spec.md §6), minus the .so: native
// shared-library emission belongs to the external backend dalec never
// implements (spec.md §1).
func writeModuleArtifacts(drv *driver.Driver, res *driver.Result, nomacrosModule emit.Module) error {
	d := &dtm.DTM{
		Context:         res.Context,
		OnceTags:        drv.OnceTags(),
		RequiredModules: res.RequiredModules,
		CTO:             res.CTO,
		Typemap:         res.Context.Types.Typemap(),
	}

	dtmPath := dtm.LibraryFileName(res.ModuleName, "dtm")
	f, err := os.Create(dtmPath)
	if err != nil {
		return fmt.Errorf("creating %q: %w", dtmPath, err)
	}
	werr := dtm.Write(f, d)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("writing %q: %w", dtmPath, werr)
	}
	if cerr != nil {
		return fmt.Errorf("closing %q: %w", dtmPath, cerr)
	}

	manifestPath := dtm.LibraryFileName(res.ModuleName, "yaml")
	if err := dtm.WriteManifest(manifestPath, res.ModuleName, d); err != nil {
		return fmt.Errorf("writing %q: %w", manifestPath, err)
	}

	bcPath := dtm.LibraryFileName(res.ModuleName, "bc")
	if err := writeBitcode(bcPath, res.Module); err != nil {
		return err
	}

	nomacrosPath := dtm.LibraryFileName(res.ModuleName+"-nomacros", "bc")
	if err := writeBitcode(nomacrosPath, nomacrosModule); err != nil {
		return err
	}

	return nil
}

func writeBitcode(path string, m emit.Module) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	werr := m.WriteBitcode(f)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("writing %q: %w", path, werr)
	}
	return cerr
}

// writeOutput implements `-o PATH`/`--produce`. "ir"/"asm" textual
// output has no representation in the in-process interp backend (it
// never builds a printable instruction listing) — only "bc" is
// supported until a real backend is wired in.
func writeOutput(cfg *config, res *driver.Result) error {
	if cfg.output == "" {
		return nil
	}
	if cfg.produce != "bc" {
		return fmt.Errorf("--produce %s is not supported by the interpreter backend; only bc is", cfg.produce)
	}
	return writeBitcode(cfg.output, res.Module)
}

func installedModulePath() string {
	if p := os.Getenv("DALEC_MODULE_PATH"); p != "" {
		return p
	}
	return ""
}

func runREPL(cfg *config) {
	opts := driver.Options{
		Loader:              os.ReadFile,
		NoCommon:            cfg.noCommon,
		NoDRT:               cfg.noDRT,
		IncludePaths:        []string(cfg.includePaths),
		ModulePaths:         []string(cfg.modulePaths),
		InstalledModulePath: installedModulePath(),
	}
	shell := replshell.New(opts)
	shell.Start(os.Stdin, os.Stdout)
}

func printReport(rep *errors.Report) {
	fmt.Fprintf(os.Stderr, "%s %s: %s: %s\n", red("error"), rep.Phase, rep.Code, rep.Message)
	if rep.Span != nil {
		fmt.Fprintf(os.Stderr, "  %s %s:%d:%d\n", yellow("at"), rep.Span.Begin.File, rep.Span.Begin.Line, rep.Span.Begin.Column)
	}
}

func printUsage() {
	fmt.Println(bold("dalec") + " - compiler front-end/middle-end")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  dalec [flags] file.dt...")
	fmt.Println("  dalec repl [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -o PATH           output path")
	fmt.Println("  --produce FORMAT  ir|asm|bc (default bc)")
	fmt.Println("  -O LEVEL          optimization level 0-4")
	fmt.Println("  -m NAME           compile as module NAME")
	fmt.Println("  --no-common       suppress preamble declarations")
	fmt.Println("  --no-drt          suppress standard runtime import")
	fmt.Println("  --static-all      link every referenced module statically")
	fmt.Println("  --static MOD      link MOD statically (repeatable)")
	fmt.Println("  --cto MOD         mark MOD compile-time-only (repeatable)")
	fmt.Println("  -I PATH           include search path (repeatable)")
	fmt.Println("  -L PATH           module search path (repeatable)")
	fmt.Println("  --remove-macros   elide macro functions from final output")
	fmt.Println("  --debug           enable extra diagnostic output")
	fmt.Println("  -i                enter interactive REPL mode")
}
