package driver

import (
	"bytes"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/dispatch"
	"github.com/dalec/dalec/internal/dtm"
	"github.com/dalec/dalec/internal/emit"
	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"

	"golang.org/x/exp/slices"
)

// Loader supplies source bytes for a path named by a CLI argument or
// an `include` form. File discovery itself is out of scope (spec.md
// §1 "the command-line driver, file discovery...plumbing"); the
// driver only needs bytes, so cmd/dalec supplies this callback.
type Loader func(path string) ([]byte, error)

// Options configures one Driver run from the CLI surface of spec.md §6.
type Options struct {
	Loader Loader

	NoCommon     bool
	NoDRT        bool
	RemoveMacros bool

	IncludePaths        []string
	ModulePaths         []string
	InstalledModulePath string

	StaticAll     bool
	StaticModules []string
	CTOModules    []string
}

// Driver sequences one or more source files through C5 (spec.md §4.9
// "C10"), owning the state that is process-wide rather than per-Unit:
// the Type registry, the ErrorReporter, the set of once-tags seen
// across every Unit so far, and the set of modules already imported
// this run (so a diamond-shaped import chain is not read twice).
type Driver struct {
	opts Options

	registry *types.Registry
	reporter *errors.Reporter

	stack []*unit

	onceTags        map[string]bool
	importedModules map[string]*dtm.DTM
	ctoModules      map[string]bool

	accumulated emit.Module
}

// New returns a Driver ready to compile one or more source files in
// sequence (spec.md §5 "ordering between compilation units is the
// order given by the driver").
func New(opts Options) *Driver {
	d := &Driver{
		opts:            opts,
		registry:        types.NewRegistry(),
		reporter:        errors.NewReporter(),
		onceTags:        map[string]bool{},
		importedModules: map[string]*dtm.DTM{},
		ctoModules:      map[string]bool{},
	}
	for _, m := range opts.CTOModules {
		d.ctoModules[m] = true
	}
	return d
}

// Reporter returns the ErrorReporter errors from every Unit of this
// run accumulate into.
func (d *Driver) Reporter() *errors.Reporter { return d.reporter }

// Resolve looks up a defined symbol against the currently open Unit's
// JIT, the same seam RunGlobalInit uses internally. internal/replshell
// (SPEC_FULL.md §6 "REPL mode") uses this to invoke the function a
// freshly compiled top-form just declared; tests use it to observe
// that a var's initializer actually ran.
func (d *Driver) Resolve(symbol string) (emit.Callable, bool) {
	return d.current().jit.Resolve(symbol)
}

// Result is what a finished top-level CompileFile call hands back to
// cmd/dalec: the final merged Context (for DTM emission) and the IR
// module accumulated by linking every Unit that was part of it.
type Result struct {
	Context    *ctx.Context
	Module     emit.Module
	ModuleName string
	CTO        bool
	// RequiredModules is the set of module names `import`ed anywhere
	// in this compile, used verbatim as a DTM's required-modules list
	// (spec.md §6 item 3).
	RequiredModules []string
}

// current returns the Unit currently being driven (the top of the
// stack).
func (d *Driver) current() *unit {
	return d.stack[len(d.stack)-1]
}

// OpenREPL starts a persistent root Unit that EvalLine feeds one line
// at a time, for internal/replshell's interactive mode (SPEC_FULL.md
// §6 "REPL mode"). name only ever shows up in diagnostics; there is no
// file behind it.
func (d *Driver) OpenREPL(name string) *errors.Report {
	u := newUnit(name, nil, d.registry, d.reporter)
	d.stack = []*unit{u}
	if d.opts.NoCommon {
		return nil
	}
	return d.addPreamble(u)
}

// EvalLine compiles and dispatches every top-form in src as a short-
// lived child Unit pushed on top of the persistent root Unit OpenREPL
// started. Reaching the child's EOF pops it (popUnit's usual merge +
// link + reget-pointers), so by the time EvalLine returns its
// declarations are visible, and any symbol it defined is resolvable
// against the persistent Unit (current(), once the stack is back down
// to the root) via Resolve.
func (d *Driver) EvalLine(name string, src []byte) *errors.Report {
	d.stack = append(d.stack, newUnit(name, src, d.registry, d.reporter))
	return d.driveUntilDone()
}

// CompileFile drives one top-level source file to completion,
// implementing spec.md §4.9 steps 1-7 for its outermost Unit (and,
// transitively, any Unit `include` pushes on top of it).
func (d *Driver) CompileFile(path string) (*Result, *errors.Report) {
	src, err := d.opts.Loader(path)
	if err != nil {
		return nil, errors.New(errors.FileError, "driver", nil, "reading %q: %v", path, err)
	}

	u := newUnit(path, src, d.registry, d.reporter)
	d.stack = []*unit{u}

	if !d.opts.NoCommon {
		if rep := d.addPreamble(u); rep != nil {
			return nil, rep
		}
	}

	if rep := d.driveUntilDone(); rep != nil {
		return nil, rep
	}

	outer := u
	requiredModules := make([]string, 0, len(d.importedModules))
	for name := range d.importedModules {
		requiredModules = append(requiredModules, name)
	}

	if d.opts.RemoveMacros {
		eraseMacroFuncs(outer)
	}

	m := outer.builder.Finish()
	d.accumulated = d.linkInto(d.accumulated, m)

	return &Result{
		Context:         outer.ctx,
		Module:          d.accumulated,
		ModuleName:      outer.moduleName,
		CTO:             outer.cto,
		RequiredModules: requiredModules,
	}, nil
}

// addPreamble implements spec.md §4.9 step 3. There is no compiled
// "drt" runtime module shipped with this repository (no libdrt.dtm
// artifact exists to load), so the nodrt-unset path degrades to its
// own nodrt behavior: the basic native types, which need no explicit
// installation since types.Registry.Basic interns them lazily on
// first use. An actual "drt" module, once built, drops in here
// unchanged via the same importModule path `import` itself uses.
func (d *Driver) addPreamble(u *unit) *errors.Report {
	if d.opts.NoDRT {
		return nil
	}
	_, rep := d.importModule(u, "drt", nil)
	if rep != nil && rep.Code == errors.UnableToLoadModule {
		return nil
	}
	return rep
}

// driveUntilDone reads and dispatches top-forms from the current Unit
// until the outermost Unit itself hits EOF (spec.md §4.9 step 4).
func (d *Driver) driveUntilDone() *errors.Report {
	for {
		cur := d.current()
		top, rep := cur.reader.ReadTopForm()
		if rep != nil {
			d.reporter.Add(rep)
			continue
		}
		if top == nil {
			if len(d.stack) > 1 {
				d.popUnit()
				continue
			}
			return nil
		}

		if rep := dispatch.Dispatch(cur.ctx, cur.ctx.Root, cur.builder, cur.macros, d, top); rep != nil {
			d.reporter.Add(rep)
			continue
		}

		// A form can itself change the top of the stack (include pushes,
		// a repeated once pops cur via popUnit, which already finished
		// and linked it). Re-finish/re-load only the still-current unit;
		// redoing it against a unit that is no longer on the stack would
		// be redundant work against a detached object nothing reads from.
		if d.current() != cur {
			continue
		}

		// A newly declared function (in particular a macro) must be
		// JIT-resolvable before a later top-form can call it (macro.New's
		// doc comment). Finish is safe to call repeatedly: it only
		// snapshots the builder's current state into a fresh Module.
		m := cur.builder.Finish()
		if err := cur.jit.Load(m); err != nil {
			return errors.New(errors.InternalError, "driver", nil, "loading %q: %v", cur.filename, err)
		}
	}
}

// popUnit implements the pop side of spec.md §3 "Units are stacked:
// include pushes, end-of-file pops": the finishing Unit's namespace
// tree is merged into its parent exactly like an import (spec.md
// §4.2 "Merging imported Contexts"), its IR module is linked into the
// parent's JIT so parent code can call what it declared, and the
// parent's stored handles are rebound (reget-pointers) against the
// now-larger JIT.
func (d *Driver) popUnit() {
	popped := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	parent := d.current()

	ctx.Merge(parent.ctx, popped.ctx)

	m := popped.builder.Finish()
	d.accumulated = d.linkInto(d.accumulated, m)
	if err := parent.jit.Load(m); err == nil {
		ctx.RegetPointers(parent.ctx, func(symbol string) (any, bool) {
			return parent.jit.ResolveValue(symbol)
		})
	}
}

// linkInto folds next's definitions into accumulated. A collision here
// means two Units defined the same symbol without Context.Merge
// having already caught the redeclaration — a last-resort consistency
// check per emit.Module.Link's doc comment — so it is surfaced
// through the shared reporter rather than silently dropped.
func (d *Driver) linkInto(accumulated emit.Module, next emit.Module) emit.Module {
	if accumulated == nil {
		return next
	}
	if err := accumulated.Link(next); err != nil {
		d.reporter.Add(errors.New(errors.CannotLinkModules, "driver", nil, "%v", err))
	}
	return accumulated
}

func eraseMacroFuncs(u *unit) {
	var macroSymbols []string
	collectMacroSymbols(u.ctx.Root, &macroSymbols)
	for _, sym := range macroSymbols {
		u.builder.RemoveFunc(sym)
	}
	ctx.EraseMacros(u.ctx)
}

func collectMacroSymbols(ns *ctx.Namespace, out *[]string) {
	for _, name := range ns.FunctionNames() {
		for _, fn := range ns.Functions(name) {
			if fn.IsMacro {
				*out = append(*out, fn.Handle.Symbol)
			}
		}
	}
	for _, childName := range ns.ChildNames() {
		child, _ := ns.LookupChild(childName)
		collectMacroSymbols(child, out)
	}
}

// --- dispatch.Driver ---

var _ dispatch.Driver = (*Driver)(nil)

// Include implements `(include "PATH")` (spec.md §4.9 step 4 /
// §3 "Unit...include pushes"): the path is resolved against the
// configured include paths, its source is loaded, and a fresh Unit is
// pushed and becomes the one driveUntilDone reads from next.
func (d *Driver) Include(path string) *errors.Report {
	resolved, rep := d.resolveIncludePath(path)
	if rep != nil {
		return rep
	}
	src, err := d.opts.Loader(resolved)
	if err != nil {
		return errors.New(errors.FileError, "driver", nil, "including %q: %v", resolved, err)
	}
	d.stack = append(d.stack, newUnit(resolved, src, d.registry, d.reporter))
	if !d.opts.NoCommon {
		if rep := d.addPreamble(d.current()); rep != nil {
			return rep
		}
	}
	return nil
}

func (d *Driver) resolveIncludePath(path string) (string, *errors.Report) {
	for _, dir := range append([]string{"."}, d.opts.IncludePaths...) {
		candidate := joinPath(dir, path)
		if _, err := d.opts.Loader(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New(errors.FileError, "driver", nil, "unable to locate included file %q", path)
}

func joinPath(dir, file string) string {
	if dir == "." || dir == "" {
		return file
	}
	return dir + "/" + file
}

// Import implements `(import NAME [(SYM…)])` (spec.md §4.8 "import").
func (d *Driver) Import(name string, symbols []string) *errors.Report {
	_, rep := d.importModule(d.current(), name, symbols)
	return rep
}

// importModule resolves, reads, filters and merges one named module
// into u, recursively importing its own required modules first
// (spec.md §4.8 import steps 1-9). Already-imported modules are read
// only once per Driver run; a repeated import filters and merges the
// cached Context into u again.
func (d *Driver) importModule(u *unit, name string, symbols []string) (*dtm.DTM, *errors.Report) {
	if existing, ok := d.importedModules[name]; ok {
		if rep := dtm.FilterSymbols(existing.Context, symbols); rep != nil {
			return nil, rep
		}
		ctx.Merge(u.ctx, existing.Context)
		return existing, nil
	}

	path, rep := dtm.ResolveDTMPath(name, d.opts.ModulePaths, d.opts.InstalledModulePath)
	if rep != nil {
		return nil, rep
	}
	raw, err := d.opts.Loader(path)
	if err != nil {
		return nil, errors.New(errors.FileError, "driver", nil, "reading module %q: %v", path, err)
	}

	imported, rerr := dtm.Read(bytes.NewReader(raw), d.registry)
	if rerr != nil {
		return nil, errors.New(errors.UnableToLoadModule, "driver", nil, "parsing module %q: %v", name, rerr)
	}

	for _, req := range imported.RequiredModules {
		if _, rep := d.importModule(u, req, nil); rep != nil {
			return nil, rep
		}
	}

	activeOnceTags := make([]string, 0, len(d.onceTags))
	for tag := range d.onceTags {
		activeOnceTags = append(activeOnceTags, tag)
	}
	if rep := dtm.FilterSymbols(imported.Context, symbols); rep != nil {
		return nil, rep
	}
	if rep := dtm.MergeImport(u.ctx, imported, activeOnceTags); rep != nil {
		return nil, rep
	}
	for _, tag := range imported.OnceTags {
		d.onceTags[tag] = true
	}
	if imported.CTO {
		d.ctoModules[name] = true
	}
	d.importedModules[name] = imported

	ctx.RegetPointers(u.ctx, func(symbol string) (any, bool) {
		return u.jit.ResolveValue(symbol)
	})

	return imported, nil
}

// SetModuleName implements `(module NAME [(attr…)])` (spec.md §6
// "compile as module NAME"); `cto` is the only recognized attribute.
func (d *Driver) SetModuleName(name string, attrs []string) *errors.Report {
	if rep := dtm.ValidateModuleName(name); rep != nil {
		return rep
	}
	cur := d.current()
	cur.moduleName = name
	cur.cto = slices.Contains(attrs, "cto")
	return nil
}

// Once implements `(once TAG)` (spec.md §4.8 "once"): a fresh tag is
// just recorded; a repeat pops the current Unit, unless it is the
// last one open.
func (d *Driver) Once(tag string) (bool, *errors.Report) {
	if d.onceTags[tag] {
		if len(d.stack) == 1 {
			return false, errors.New(errors.CannotOnceTheLastOpenFile, "driver", nil,
				"cannot once the last open file")
		}
		d.popUnit()
		return true, nil
	}
	d.onceTags[tag] = true
	d.current().onceTag = tag
	return false, nil
}

// RunGlobalInit implements dispatch.Driver's hook for a top-level
// var's initializer wrapper: resolve it against the current Unit's
// JIT and invoke it immediately (Generator.cpp's pattern of running
// each global's initializer as soon as it is parsed).
func (d *Driver) RunGlobalInit(symbol string) *errors.Report {
	cur := d.current()
	m := cur.builder.Finish()
	if err := cur.jit.Load(m); err != nil {
		return errors.New(errors.InternalError, "driver", nil, "loading %q before running %q: %v", cur.filename, symbol, err)
	}
	fn, ok := cur.jit.Resolve(symbol)
	if !ok {
		return errors.New(errors.InternalError, "driver", nil, "initializer %q did not resolve", symbol)
	}
	if _, err := fn(nil); err != nil {
		return errors.New(errors.InternalError, "driver", nil, "running initializer %q: %v", symbol, err)
	}
	return nil
}

// OnceTags returns every once-tag recorded over the life of this
// Driver run (both declared directly and inherited from imported
// modules), the set a packaged DTM's own OnceTags field is built from
// (spec.md §6 "DTM file format" item 2) so a later importer can erase
// the same guarded content exactly as this run did.
func (d *Driver) OnceTags() []string {
	tags := make([]string, 0, len(d.onceTags))
	for tag := range d.onceTags {
		tags = append(tags, tag)
	}
	return tags
}

// StaticModuleNames returns the imported modules eligible for static
// linking per `--static-all`/`--static MOD`, excluding any module
// marked `cto` (spec.md §4.9 "excluding cto modules"). Actually
// linking their compiled code into a final executable is the external
// emitter's job (spec.md §1 "module linking" is listed as an
// out-of-scope emitter responsibility); this only decides which names
// qualify.
func (d *Driver) StaticModuleNames() []string {
	var names []string
	if d.opts.StaticAll {
		for name := range d.importedModules {
			if !d.ctoModules[name] {
				names = append(names, name)
			}
		}
		return names
	}
	for _, name := range d.opts.StaticModules {
		if !d.ctoModules[name] {
			names = append(names, name)
		}
	}
	return names
}
