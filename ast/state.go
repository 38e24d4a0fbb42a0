package ast

// HandlerKind classifies a State's exception handler link (spec.md §3/§4.D):
// a state can have no handler in scope, a finally handler, or an except
// handler.
type HandlerKind int

const (
	NoHandler HandlerKind = iota
	FinallyHandler
	ExceptHandler
)

// Handler is a State's excHandler field. The zero value is NoHandler.
type Handler struct {
	Kind   HandlerKind
	Target *State
}

// sentinelID is the provisional id new State records are stamped with
// before §4.G renumbers them, chosen far enough past any plausible state
// count that an unrenumbered record is easy to spot in a debugger. This
// assumes a single function is never split into 2^30 or more states; no
// runtime check enforces that.
const sentinelID = 1 << 30

// State is one labeled basic block of the synthesized state machine.
//
// Body must, for every non-exit State, end with exactly one control
// transfer: a GotoState, a yield immediately followed by a GotoState, a
// Return, or a Raise. That invariant is established by §4.D and is not
// enforced by this type or checked anywhere at run time.
type State struct {
	basePos
	ID      int
	Body    []Stmt
	Handler Handler
}

func (*State) stmtNode() {}

// NewState allocates a State with the provisional sentinel id; its final
// id is assigned by §4.G's compaction pass.
func NewState() *State { return &State{ID: sentinelID} }

// ExitState is the single, shared representation of the virtual "exit"
// state: id -1, never itself appended to a state list, every GotoState
// built with no further state to run eventually resolves to it.
var ExitState = &State{ID: -1}

// StateRef is an expression that stands in for the (possibly not yet final)
// integer id of Target. §4.D and §4.C synthesize these wherever a hidden
// variable must be assigned a state id before that state's final id is
// known (afterUnroll, unrollUntil); §4.F's state-assignment lowering pass
// resolves every StateRef to a plain BasicLit once §4.G has compacted the
// state list, in place, the same way GotoState's own Target resolves late.
type StateRef struct {
	basePos
	Target *State
}

func (*StateRef) exprNode() {}

// GotoState is an unresolved jump. Target is ordinarily a *StateRef (a
// forward/back reference to another State record, resolved to a literal by
// §4.F), but it may instead be an arbitrary Expr that reads a hidden
// variable holding a state id computed at runtime — the one case being the
// "goto_state afterUnroll" step of the end-of-finally sequence (spec.md
// §4.D), where the jump target isn't known until the partial-unroll break
// site ran. §4.F tells the two apart by type-switching on Target.
type GotoState struct {
	basePos
	Target Expr
}

func (*GotoState) stmtNode() {}

// NewGotoState constructs a static jump to target. A nil target means
// "fall through to the exit state".
func NewGotoState(target *State) *GotoState {
	if target == nil {
		target = ExitState
	}
	return &GotoState{Target: &StateRef{Target: target}}
}

// NewDynamicGotoState constructs a jump whose destination is read from expr
// at run time rather than fixed at compile time.
func NewDynamicGotoState(expr Expr) *GotoState {
	return &GotoState{Target: expr}
}

// StaticTarget returns the State a GotoState statically targets, and true,
// if Target is a *StateRef; otherwise it returns (nil, false) — the jump is
// dynamic.
func (g *GotoState) StaticTarget() (*State, bool) {
	if ref, ok := g.Target.(*StateRef); ok {
		return ref.Target, true
	}
	return nil, false
}
