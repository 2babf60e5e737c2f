package ctx

import (
	"fmt"

	"github.com/dalec/dalec/internal/errors"
	"github.com/dalec/dalec/internal/types"
)

// Resolution is the outcome of overload resolution for a single call
// site (spec.md §4.2).
type Resolution struct {
	Function *Function
	IsMacro  bool
	// ExactMatches is the number of supplied arguments that matched
	// their parameter type exactly, used only for tie-breaking among
	// candidates of the same arity/variadic class.
	ExactMatches int
}

// ResolveOverload implements spec.md §4.2 steps 1-5. argTypes is the
// type of every (already-lowered) argument in call order; any argument
// whose lowering failed should be passed as nil, which the "pointer to
// Node" relaxation means is treated as matching only macro parameters
// (callers in internal/macro special-case nil entries themselves by
// retrying with the macro found).
func ResolveOverload(c *Context, name string, argTypes []*types.Type) (*Resolution, *errors.Report) {
	candidates := c.LookupFunctions(name)
	if len(candidates) == 0 {
		return nil, errors.New(errors.OverloadedFunctionOrMacroNotInScope, "ctx", nil,
			"no function or macro named %q is in scope", name)
	}

	var matches []*Resolution
	for _, cand := range candidates {
		if res, ok := matchCandidate(cand, argTypes, c.Native); ok {
			matches = append(matches, res)
		}
	}

	if len(matches) == 0 {
		// Step 4: the single extern-c relaxation.
		if res, ok := tryExternCRelaxation(candidates, argTypes, c.Native); ok {
			return res, nil
		}
		nearest := nearestMatchHint(candidates)
		if nearest != "" {
			return nil, errors.New(errors.OverloadedFunctionOrMacroNearestMatch, "ctx", nil,
				"no overload of %q matches the supplied arguments (nearest: %s)", name, nearest)
		}
		return nil, errors.New(errors.OverloadedFunctionOrMacroNotInScope, "ctx", nil,
			"no overload of %q matches the supplied arguments", name)
	}

	best := pickBest(matches)
	return best, nil
}

func matchCandidate(cand *Function, argTypes []*types.Type, native types.NativeTypes) (*Resolution, bool) {
	params := cand.UserParams()
	variadic := len(params) > 0 && params[len(params)-1].Type.Kind() == types.KindBasic && params[len(params)-1].Type.Base() == types.Varargs

	required := len(params)
	if variadic {
		required--
	}
	if variadic {
		if len(argTypes) < required {
			return nil, false
		}
	} else if len(argTypes) != required {
		return nil, false
	}

	if cand.IsMacro {
		// Every argument converts to a DNode at the call (spec.md §4.7
		// "Call": "each argument is converted to a DNode"), so a
		// macro's declared parameter types carry no typechecking
		// weight — only arity (already checked above) decides whether
		// a macro candidate matches.
		return &Resolution{Function: cand, IsMacro: true}, true
	}

	exact := 0
	for i, at := range argTypes {
		if at == nil {
			// An argument that failed to lower only matches a macro's
			// pointer-to-Node parameter slot (spec.md §4.7 step 3); a
			// macro candidate already returned above, so reaching here
			// with a nil argType is always a non-match.
			return nil, false
		}
		if i >= required {
			// trailing variadic argument: anything matches after
			// C-style promotion (spec.md §4.6).
			continue
		}
		pt := params[i].Type
		if pt.Kind() == types.KindBasic && pt.Base() == types.Varargs {
			continue
		}
		if types.Equal(at, pt, true) {
			exact++
			continue
		}
		if types.CanCoerce(at, pt, native) {
			continue
		}
		return nil, false
	}

	return &Resolution{Function: cand, IsMacro: cand.IsMacro, ExactMatches: exact}, true
}

// pickBest applies the tie-breaking order of spec.md §4.2 step 3:
// (a) non-variadic over variadic, (b) exact-match count descending,
// (c) first-declared among ties (matches is already in declaration
// order since LookupFunctions/Functions preserve append order).
func pickBest(matches []*Resolution) *Resolution {
	best := matches[0]
	for _, m := range matches[1:] {
		if betterCandidate(m, best) {
			best = m
		}
	}
	return best
}

func betterCandidate(a, b *Resolution) bool {
	aVariadic := isVariadicFn(a.Function)
	bVariadic := isVariadicFn(b.Function)
	if aVariadic != bVariadic {
		return !aVariadic // non-variadic wins
	}
	return a.ExactMatches > b.ExactMatches
}

func isVariadicFn(f *Function) bool {
	p := f.UserParams()
	return len(p) > 0 && p[len(p)-1].Type.Kind() == types.KindBasic && p[len(p)-1].Type.Base() == types.Varargs
}

// tryExternCRelaxation implements spec.md §4.2 step 4: if exactly one
// extern-c candidate exists with the name, attempt implicit
// integer/bool casts on every argument; succeed iff all casts succeed.
func tryExternCRelaxation(candidates []*Function, argTypes []*types.Type, native types.NativeTypes) (*Resolution, bool) {
	var externC *Function
	count := 0
	for _, c := range candidates {
		if c.Linkage == LinkageExternC {
			externC = c
			count++
		}
	}
	if count != 1 {
		return nil, false
	}
	params := externC.UserParams()
	if len(argTypes) != len(params) {
		return nil, false
	}
	for i, at := range argTypes {
		if at == nil {
			return nil, false
		}
		if !integerOrBoolCastable(at, params[i].Type) {
			return nil, false
		}
	}
	return &Resolution{Function: externC, IsMacro: false}, true
}

func integerOrBoolCastable(from, to *types.Type) bool {
	if types.Equal(from, to, true) {
		return true
	}
	return (types.IsInteger(from) || from.Base() == types.Bool) &&
		(types.IsInteger(to) || to.Base() == types.Bool)
}

func nearestMatchHint(candidates []*Function) string {
	if len(candidates) == 0 {
		return ""
	}
	c := candidates[0]
	params := make([]string, 0, len(c.UserParams()))
	for _, p := range c.UserParams() {
		params = append(params, p.Type.Pretty())
	}
	return fmt.Sprintf("%s(%v)", c.Name, params)
}
