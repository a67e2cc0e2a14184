package resolver

// ResolutionPolicy controls how a component treats references that do not
// resolve to an inventory row.
type ResolutionPolicy string

const (
	// DropUnmatched silently discards unresolved references. This is the
	// default everywhere: device snapshots routinely name object kinds the
	// snapshot itself does not carry (dynamic address groups, predefined
	// services), and a resync must not fail on them.
	DropUnmatched ResolutionPolicy = "drop-unmatched"

	// FailUnmatched turns an unresolved reference into an error. Useful for
	// validating curated snapshots where every reference should resolve.
	FailUnmatched ResolutionPolicy = "fail-unmatched"
)
