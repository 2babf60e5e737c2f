package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/dtm"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// writeFiles materializes each path/contents pair under a fresh temp
// directory and returns (dir, diskLoader) — ResolveDTMPath stats real
// files, so every driver test drives CompileFile against disk rather
// than an in-memory fixture.
func writeFiles(t *testing.T, files map[string]string) (string, Loader) {
	t.Helper()
	dir := t.TempDir()
	for name, contents := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %q: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("writing %q: %v", name, err)
		}
	}
	loader := func(path string) ([]byte, error) {
		return os.ReadFile(path)
	}
	return dir, loader
}

func TestCompileFileDeclaresFunction(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `(def f (fn extern-c int (void) 42))`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	res, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if fns := res.Context.Root.Functions("f"); len(fns) != 1 {
		t.Fatalf("expected f to be registered, got %v", fns)
	}

	callable, ok := drv.Resolve("f")
	if !ok {
		t.Fatal("expected f to resolve against the driver's JIT")
	}
	out, err := callable(nil)
	if err != nil {
		t.Fatalf("calling f: %v", err)
	}
	if out != int64(42) {
		t.Fatalf("expected f() == 42, got %v", out)
	}
}

func TestRunGlobalInitExecutesVarInitializer(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(def counter (var extern-c int 5))
(def readCounter (fn extern-c int (void) counter))
`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	_, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	read, ok := drv.Resolve("readCounter")
	if !ok {
		t.Fatal("expected readCounter to resolve")
	}
	out, err := read(nil)
	if err != nil {
		t.Fatalf("calling readCounter: %v", err)
	}
	if out != int64(5) {
		t.Fatalf("expected counter's initializer to have stored 5, got %v", out)
	}
}

func TestIncludeMakesDeclarationsCallableAfterPop(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(include "helper.dt")
(def useIt (fn extern-c int (void) (helper)))
`,
		"helper.dt": `(def helper (fn extern-c int (void) 7))`,
	})
	drv := New(Options{Loader: loader, NoCommon: true, IncludePaths: []string{dir}})
	_, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	useIt, ok := drv.Resolve("useIt")
	if !ok {
		t.Fatal("expected useIt to resolve")
	}
	out, err := useIt(nil)
	if err != nil {
		t.Fatalf("calling useIt: %v", err)
	}
	if out != int64(7) {
		t.Fatalf("expected useIt() == 7 (via the included helper), got %v", out)
	}
}

func TestOnceRepeatPopsSecondInclusion(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(include "guarded.dt")
(include "guarded.dt")
(def done (fn extern-c int (void) 1))
`,
		"guarded.dt": `
(once GUARDED)
(def helper (fn extern-c int (void) 3))
`,
	})
	drv := New(Options{Loader: loader, NoCommon: true, IncludePaths: []string{dir}})
	_, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if fns := drv.current().ctx.Root.Functions("helper"); len(fns) != 1 {
		t.Fatalf("expected exactly one helper declaration surviving the once guard, got %v", fns)
	}
	if _, ok := drv.Resolve("done"); !ok {
		t.Fatal("expected done to resolve after the guarded second inclusion was skipped")
	}
}

func TestOnceRejectsRepeatOnTheLastOpenFile(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(once A)
(once A)
`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	// Semantic errors accumulate in the Reporter rather than aborting
	// CompileFile outright (spec.md §7 "errors recorded ⇒ driver refuses
	// emission" is the caller's policy, not driveUntilDone's).
	if _, rep := drv.CompileFile(filepath.Join(dir, "main.dt")); rep != nil {
		t.Fatalf("unexpected internal error: %v", rep)
	}
	if !drv.Reporter().HasErrors() {
		t.Fatal("expected an error repeating a once tag on the only open file")
	}
	found := false
	for _, r := range drv.Reporter().Reports() {
		if r.Code == errors.CannotOnceTheLastOpenFile {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a %s report, got %v", errors.CannotOnceTheLastOpenFile, drv.Reporter().Reports())
	}
}

func TestImportRoundTripsThroughDTM(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `(import mathutils (square))`,
	})

	reg := types.NewRegistry()
	imported := ctx.New()
	imported.Types = reg
	intType := reg.Basic(types.Int)
	imported.Root.AddFunction("square", &ctx.Function{
		Name:    "square",
		Return:  intType,
		Linkage: ctx.LinkageExternC,
		Handle:  ctx.IRHandle{Symbol: "square"},
	})

	var buf bytes.Buffer
	if err := dtm.Write(&buf, &dtm.DTM{Context: imported, Typemap: reg.Typemap()}); err != nil {
		t.Fatalf("writing fixture module: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "libmathutils.dtm"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing libmathutils.dtm: %v", err)
	}

	drv := New(Options{Loader: loader, NoCommon: true, ModulePaths: []string{dir}})
	res, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if fns := res.Context.Root.Functions("square"); len(fns) != 1 {
		t.Fatalf("expected square to be merged in from the imported module, got %v", fns)
	}
	found := false
	for _, name := range res.RequiredModules {
		if name == "mathutils" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mathutils in RequiredModules, got %v", res.RequiredModules)
	}
}

func TestImportMissingRequestedSymbolErrors(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `(import mathutils (doesNotExist))`,
	})

	reg := types.NewRegistry()
	imported := ctx.New()
	imported.Types = reg
	imported.Root.AddFunction("square", &ctx.Function{
		Name:    "square",
		Return:  reg.Basic(types.Int),
		Linkage: ctx.LinkageExternC,
		Handle:  ctx.IRHandle{Symbol: "square"},
	})
	var buf bytes.Buffer
	if err := dtm.Write(&buf, &dtm.DTM{Context: imported, Typemap: reg.Typemap()}); err != nil {
		t.Fatalf("writing fixture module: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "libmathutils.dtm"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing libmathutils.dtm: %v", err)
	}

	drv := New(Options{Loader: loader, NoCommon: true, ModulePaths: []string{dir}})
	if _, rep := drv.CompileFile(filepath.Join(dir, "main.dt")); rep != nil {
		t.Fatalf("unexpected internal error: %v", rep)
	}
	if !drv.Reporter().HasErrors() {
		t.Fatal("expected an error for a requested symbol the module does not provide")
	}
}

func TestModuleFormSetsResultNameAndCTO(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `(module mymod (cto))`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	res, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}
	if res.ModuleName != "mymod" {
		t.Fatalf("expected ModuleName %q, got %q", "mymod", res.ModuleName)
	}
	if !res.CTO {
		t.Fatal("expected CTO to be set from the (cto) attribute")
	}
}

// TestOverloadedFunctionPlusBuiltinArithmetic exercises the overload
// end-to-end scenario: two `f` overloads distinguished by arity, with
// the two-argument one adding its operands via the built-in `+` form.
func TestOverloadedFunctionPlusBuiltinArithmetic(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(def f (fn extern int ((x int)) (return x)))
(def f (fn extern int ((x int) (y int)) (return (+ x y))))
(def main (fn extern-c int (void) (return (f 1 2))))
`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	_, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	main, ok := drv.Resolve("main")
	if !ok {
		t.Fatal("expected main to resolve")
	}
	out, err := main(nil)
	if err != nil {
		t.Fatalf("calling main: %v", err)
	}
	if out != int64(3) {
		t.Fatalf("expected main() == 3, got %v", out)
	}
}

// TestCInteropCallCoercesStringLiteralToCharPointer exercises the
// C-interop end-to-end scenario: an extern-c function declared to take
// `(p char)` can be called with a string literal, which lowers as a
// `char[N]` array and must be decayed to a pointer at the call site
// rather than rejected or passed through as the raw aggregate.
func TestCInteropCallCoercesStringLiteralToCharPointer(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(def puts (fn extern-c int ((s (p char))) 0))
(def main (fn extern-c int (void) (return (puts "ok"))))
`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	_, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	main, ok := drv.Resolve("main")
	if !ok {
		t.Fatal("expected main to resolve")
	}
	out, err := main(nil)
	if err != nil {
		t.Fatalf("calling main: %v", err)
	}
	if out != int64(0) {
		t.Fatalf("expected main() == 0, got %v", out)
	}
}

// TestScopeCloseDestructsLocalsExactlyOnceInReverseOrder exercises the
// scope-close quantified property: every local declared in a
// function's body gets destroy(&v) exactly once, in reverse
// declaration order, on the ordinary (non-early-return) exit path.
func TestScopeCloseDestructsLocalsExactlyOnceInReverseOrder(t *testing.T) {
	dir, loader := writeFiles(t, map[string]string{
		"main.dt": `
(def tick (var extern-c int 0))
(def orderA (var extern-c int 0))
(def orderB (var extern-c int 0))
(def callsA (var extern-c int 0))
(def callsB (var extern-c int 0))

(def A (struct extern-c ((x int))))
(def B (struct extern-c ((x int))))

(def destroy (fn extern-c void ((p (p A)))
  (setf callsA (+ callsA 1))
  (setf tick (+ tick 1))
  (setf orderA tick)))

(def destroy (fn extern-c void ((p (p B)))
  (setf callsB (+ callsB 1))
  (setf tick (+ tick 1))
  (setf orderB tick)))

(def run (fn extern-c int (void)
  (var a A)
  (var b B)
  0))

(def readCallsA (fn extern-c int (void) callsA))
(def readCallsB (fn extern-c int (void) callsB))
(def readOrderA (fn extern-c int (void) orderA))
(def readOrderB (fn extern-c int (void) orderB))
`,
	})
	drv := New(Options{Loader: loader, NoCommon: true})
	_, rep := drv.CompileFile(filepath.Join(dir, "main.dt"))
	if rep != nil {
		t.Fatalf("unexpected error: %v", rep)
	}

	call := func(name string) int64 {
		fn, ok := drv.Resolve(name)
		if !ok {
			t.Fatalf("expected %q to resolve", name)
		}
		out, err := fn(nil)
		if err != nil {
			t.Fatalf("calling %s: %v", name, err)
		}
		return out.(int64)
	}

	run, ok := drv.Resolve("run")
	if !ok {
		t.Fatal("expected run to resolve")
	}
	if _, err := run(nil); err != nil {
		t.Fatalf("calling run: %v", err)
	}

	if got := call("readCallsA"); got != 1 {
		t.Fatalf("expected destroy(A) to be called exactly once, got %d", got)
	}
	if got := call("readCallsB"); got != 1 {
		t.Fatalf("expected destroy(B) to be called exactly once, got %d", got)
	}
	orderA, orderB := call("readOrderA"), call("readOrderB")
	if orderB >= orderA {
		t.Fatalf("expected b (declared after a) to be destroyed first (reverse declaration order), got orderA=%d orderB=%d", orderA, orderB)
	}
}
