package simt

// Interconnect is the shared fabric a GLUL's cores contend over each tick.
// Cache hierarchies, coherence, and interconnect timing are explicitly out
// of scope; this is a trivial round-robin tick counter satisfying the
// "advance the interconnect" step of a GLUL's execute phase without
// modeling contention.
type Interconnect struct {
	ticks uint64
}

// Tick advances the interconnect by one step.
func (ic *Interconnect) Tick() {
	ic.ticks++
}

// Ticks returns the number of Tick calls so far, useful for tests asserting
// the interconnect is driven once per GLUL execute step.
func (ic *Interconnect) Ticks() uint64 {
	return ic.ticks
}
