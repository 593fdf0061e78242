package catalog

// Kind is the kind of an entity occupying grid cells. Kinds are closed: the set below
// is everything the simulation knows how to place, block with, or solidify into.
type Kind string

const (
	DIRT        Kind = "DIRT"
	STONE       Kind = "STONE"
	DOODAD      Kind = "DOODAD"
	ICE         Kind = "ICE"
	STEEL       Kind = "STEEL"
	IRON        Kind = "IRON"
	COAL        Kind = "COAL"
	GLASS       Kind = "GLASS"
	SULPHUR     Kind = "SULPHUR"
	TURBINE     Kind = "TURBINE"
	TOKEN       Kind = "TOKEN"
	FOOD_SOURCE Kind = "FOOD_SOURCE"
	ANT         Kind = "ANT"
)

// Capability is a bit set describing what an entity kind does on the grid.
type Capability uint8

const (
	// Emitter kinds are standing sources of a fixed quantity of one substance.
	Emitter Capability = 1 << iota
	// Blocking kinds are solids agents and fluids cannot pass through.
	Blocking
	// Occupant kinds are registered in the occupant set of every cell of their footprint.
	Occupant
)

// Has reports whether every bit of other is set.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

var capabilities = map[Kind]Capability{
	DIRT:        Blocking | Occupant,
	STONE:       Blocking | Occupant,
	DOODAD:      Blocking | Occupant,
	ICE:         Blocking | Occupant,
	STEEL:       Blocking | Occupant,
	IRON:        Blocking | Occupant,
	COAL:        Blocking | Occupant,
	GLASS:       Blocking | Occupant,
	SULPHUR:     Blocking | Occupant,
	TURBINE:     Occupant,
	TOKEN:       Emitter | Occupant,
	FOOD_SOURCE: Emitter | Occupant,
	ANT:         Occupant,
}

// Capabilities returns the capability set of the kind; unknown kinds have none.
func (k Kind) Capabilities() Capability {
	return capabilities[k]
}

// Kinds returns every known entity kind.
func Kinds() []Kind {
	return []Kind{
		DIRT, STONE, DOODAD, ICE, STEEL, IRON, COAL, GLASS, SULPHUR,
		TURBINE, TOKEN, FOOD_SOURCE, ANT,
	}
}

// The solids which stop propagation of most substances. Heat and cold pass through
// anything that is itself the product of a phase change.
var (
	NonMoltenBlockers = []Kind{DIRT, STONE, DOODAD}
	DefaultBlockers   = append(append([]Kind{}, NonMoltenBlockers...), ICE, STEEL, IRON)
)
