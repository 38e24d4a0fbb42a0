package closureiter

// Config carries the pass-wide choices that spec.md's Open Questions leave
// to the implementation, plus the debug-tracing toggle. It's built with
// functional options (the same CompileOption shape the teacher package
// uses for its own compiler-wide switches, see coroc/compiler/compile.go's
// CompileOption and compiler/options.go).
type Config struct {
	// ExcTableWidth is the integer width used for the exception table's
	// elements (§4.E). spec.md's Open Questions note the original fixes
	// this at 16 bits and would silently overflow past 32767 states; this
	// implementation preserves that choice by default (ExcTableInt16) but
	// lets a host that expects pathologically large functions opt into
	// ExcTableInt32 instead.
	ExcTableWidth ExcTableWidth

	// FoldEmptyStates disables §4.G when false. Default true.
	FoldEmptyStates bool

	// Debug enables trace logging of state allocation through the
	// Reporter's Tracef, which only emits when the Reporter's own Debug
	// field is also set.
	Debug bool

	// CallGraph, when non-nil, lets Transform also compute SPEC_FULL.md's
	// call-graph coloring supplement (color.go): every transitive caller of
	// a yielding function needs the same hidden-variable plumbing threaded
	// through, even though it contains no lexical yield of its own.
	// FnID identifies fn within CallGraph (required whenever CallGraph is
	// set); YieldRoots seeds ColorCallers with any other functions the host
	// already knows contain a yield, beyond fn itself.
	CallGraph  CallGraph
	FnID       FuncID
	YieldRoots []FuncID
}

// ExcTableWidth selects the element width of the exception table §4.E
// builds.
type ExcTableWidth int

const (
	ExcTableInt16 ExcTableWidth = iota
	ExcTableInt32
)

// Option configures a Config.
type Option func(*Config)

// DefaultConfig returns the configuration this pass uses when no options
// are given: 16-bit exception table entries (matching spec.md's documented
// choice) and empty-state folding enabled.
func DefaultConfig() Config {
	return Config{
		ExcTableWidth:   ExcTableInt16,
		FoldEmptyStates: true,
	}
}

// WithExcTableWidth overrides the exception table's element width.
func WithExcTableWidth(w ExcTableWidth) Option {
	return func(c *Config) { c.ExcTableWidth = w }
}

// WithFoldEmptyStates toggles §4.G.
func WithFoldEmptyStates(enabled bool) Option {
	return func(c *Config) { c.FoldEmptyStates = enabled }
}

// WithDebug toggles trace logging.
func WithDebug(enabled bool) Option {
	return func(c *Config) { c.Debug = enabled }
}

// WithCallGraph opts Transform into color.go's caller-coloring supplement:
// fnID identifies the function being transformed within cg, and roots
// seeds any other already-known yielding functions (fnID itself is added
// automatically when this routine turns out to contain a lexical yield).
func WithCallGraph(cg CallGraph, fnID FuncID, roots ...FuncID) Option {
	return func(c *Config) {
		c.CallGraph = cg
		c.FnID = fnID
		c.YieldRoots = roots
	}
}
