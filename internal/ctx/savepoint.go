package ctx

// SavePoint snapshots the active namespace path, the current
// namespace's four declaration-table sizes, and the used-namespaces
// stack depth (spec.md §5 "A Context save point captures..."; §9
// "Context save point"). It is used by the macro engine to undo any
// side effects from a failed argument-lowering attempt (spec.md §4.7
// step 4 "Rollback").
type SavePoint struct {
	usedDepth int
	ns        *Namespace
	mark      namespaceMark
}

// Mark captures a SavePoint for the Context's currently active
// (top-of-stack) namespace.
func (c *Context) Mark() SavePoint {
	active := c.used[0]
	return SavePoint{
		usedDepth: len(c.used),
		ns:        active,
		mark:      active.mark(),
	}
}

// Restore rewinds the used-namespaces stack to the recorded depth and
// truncates the active namespace's declaration tables back to their
// recorded sizes, dropping anything added since Mark.
func (c *Context) Restore(sp SavePoint) {
	if len(c.used) > sp.usedDepth {
		c.used = c.used[len(c.used)-sp.usedDepth:]
	}
	sp.ns.restore(sp.mark)
}
