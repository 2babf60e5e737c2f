package dtm

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dalec/dalec/internal/ctx"
	"github.com/dalec/dalec/internal/errors"
)

// moduleNameAllowed is the character set of the "Module-name rule"
// (spec.md §6): alphanumerics, -, _, . only. The on-disk "lib" prefix
// is added by LibraryFileName and must never appear in NAME itself.
func moduleNameAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}

// ValidateModuleName rejects a name that isn't alphanumerics/-/_/. only,
// or that already carries the "lib" on-disk prefix a caller must not
// supply themselves (spec.md §6 "must not be part of the user-visible
// name").
func ValidateModuleName(name string) *errors.Report {
	if name == "" {
		return errors.New(errors.InvalidModuleName, "dtm", nil, "module name must not be empty")
	}
	if strings.HasPrefix(name, "lib") {
		return errors.New(errors.InvalidModuleName, "dtm", nil, "module name %q must not include the on-disk lib prefix", name)
	}
	for _, r := range name {
		if !moduleNameAllowed(r) {
			return errors.New(errors.InvalidModuleName, "dtm", nil, "module name %q contains a disallowed character %q", name, r)
		}
	}
	return nil
}

// LibraryFileName returns the libNAME.EXT sibling file name for one of
// the DTM's three sibling artifacts (spec.md §6 "Sibling files").
func LibraryFileName(name, ext string) string {
	return "lib" + name + "." + ext
}

// ResolveDTMPath implements the search order of spec.md §4.8 step 1 /
// §6 "current directory is searched before CLI paths": the current
// directory, then the caller-supplied module paths in order, then the
// installed module directory. installedModulePath may be empty when
// the driver was built without one configured.
func ResolveDTMPath(name string, modulePaths []string, installedModulePath string) (string, *errors.Report) {
	fileName := LibraryFileName(name, "dtm")
	search := append([]string{"."}, modulePaths...)
	if installedModulePath != "" {
		search = append(search, installedModulePath)
	}
	for _, dir := range search {
		candidate := filepath.Join(dir, fileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.New(errors.UnableToLoadModule, "dtm", nil, "unable to locate module %q (searched %s)", name, strings.Join(search, ", "))
}

// FilterSymbols implements spec.md §4.8 step 8: when a symbol list is
// given, every declaration not named by it is dropped from imported's
// namespace tree, and it is an error — naming every symbol missing in
// one report — if any requested symbol could not be found anywhere in
// the tree.
func FilterSymbols(imported *ctx.Context, symbols []string) *errors.Report {
	if len(symbols) == 0 {
		return nil
	}
	found := make(map[string]bool, len(symbols))
	filterNamespace(imported.Root, symbols, found)

	var missing []string
	for _, s := range symbols {
		if !found[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return errors.New(errors.ModuleDoesNotProvideForms, "dtm", nil,
			"module does not provide the requested forms: %s", strings.Join(missing, ", "))
	}
	return nil
}

func filterNamespace(ns *ctx.Namespace, keep []string, found map[string]bool) {
	for _, name := range ns.FunctionNames() {
		if !slices.Contains(keep, name) {
			ns.RemoveFunctions(name)
			continue
		}
		found[name] = true
	}
	for _, name := range ns.VariableNames() {
		if !slices.Contains(keep, name) {
			ns.RemoveVariable(name)
			continue
		}
		found[name] = true
	}
	for _, name := range ns.StructNames() {
		if !slices.Contains(keep, name) {
			ns.RemoveStruct(name)
			continue
		}
		found[name] = true
	}
	for _, name := range ns.EnumNames() {
		if !slices.Contains(keep, name) {
			ns.RemoveEnum(name)
			continue
		}
		found[name] = true
	}
	for _, childName := range ns.ChildNames() {
		child, _ := ns.LookupChild(childName)
		filterNamespace(child, keep, found)
	}
}

// MergeImport implements the tail of spec.md §4.8 import (steps 7-9):
// compute the once-tag union, erase any form in imported carrying one
// of those tags, then merge what remains into dst. It applies no
// symbol filter; internal/driver calls FilterSymbols on imported
// before calling MergeImport. Recursive required-module import, the already-
// imported/cto bookkeeping, and .so loading (steps 2, 4-6) are the
// driver's Unit-stack responsibility and live in internal/driver, since
// they depend on state (the set of modules already imported this unit,
// the JIT engine) that dtm itself does not own.
func MergeImport(dst *ctx.Context, imported *DTM, activeOnceTags []string) *errors.Report {
	union := append(append([]string{}, activeOnceTags...), imported.OnceTags...)
	ctx.EraseOnceTags(imported.Context, union)
	ctx.Merge(dst, imported.Context)
	return nil
}
