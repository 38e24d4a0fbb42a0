package closureiter

import (
	"github.com/dispatchrun/closureiter/ast"
	"github.com/dispatchrun/closureiter/diag"
	"github.com/dispatchrun/closureiter/symtab"
)

// splitExprs is the statement-list-expression lowering pass of spec.md
// §4.B. It rewrites stmts so that the postcondition "no expression subtree
// contains a yield" holds, by hoisting every yielding subexpression into a
// preceding statement that materializes it into a temporary.
//
// It is grounded on the teacher's compiler/desugar.go: a precomputed "may this
// subtree yield" membership set stands in for spec.md's bottom-up
// needsSplit boolean, and decomposeWorklist below adapts that file's
// worklist-based decomposeExpression to this package's node kinds. One
// piece couldn't carry over unchanged: desugar.go emits hoisted temporaries
// in flat reverse-discovery order, which only recovers correct ordering for
// a single chain of nesting. spec.md's §4.B call-sibling rule (see
// decomposeWorklist's *ast.Call case below) requires independent call-kind
// siblings to keep their own left-to-right order even when one of them
// nests further yielding subexpressions, so decomposeWorklist instead
// records each hoist's parent and assembles the final statement sequence
// with an explicit post-order walk of that tree.
func splitExprs(p *pass, stmts []ast.Stmt) []ast.Stmt {
	mayYield, sawYield := computeMayYield(stmts)
	p.sawYield = sawYield
	d := &exprSplitter{p: p, mayYield: mayYield}
	return d.rewriteList(stmts)
}

// computeMayYield marks every node that transitively contains a Yield, and
// separately reports whether any Yield node was found at all — distinct
// from "is stmts[i] in the map", since the map also holds every ancestor of
// a yield, not just yields themselves.
func computeMayYield(stmts []ast.Stmt) (m map[ast.Node]bool, sawYield bool) {
	m = make(map[ast.Node]bool)
	var visit func(ast.Node) bool
	visit = func(n ast.Node) bool {
		if n == nil {
			return false
		}
		yields := false
		if _, ok := n.(*ast.Yield); ok {
			yields = true
			sawYield = true
		}
		for _, c := range ast.Children(n) {
			if visit(c) {
				yields = true
			}
		}
		if yields {
			m[n] = true
		}
		return yields
	}
	for _, s := range stmts {
		visit(s)
	}
	return m, sawYield
}

type exprSplitter struct {
	p        *pass
	mayYield map[ast.Node]bool
}

func (d *exprSplitter) yields(n ast.Node) bool {
	if n == nil {
		return false
	}
	return d.mayYield[n]
}

// rewriteList is spec.md §4.B applied to a statement sequence: each
// statement first has its own expressions decomposed (flatMap), and the
// resulting, possibly-lengthened sequence is then recursed into for nested
// control-flow bodies.
func (d *exprSplitter) rewriteList(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, d.flatMap(s)...)
	}
	return out
}

// flatMap decomposes one statement's own expressions and recurses into its
// nested bodies, returning the prerequisite statements followed by the
// (possibly replaced) statement itself.
func (d *exprSplitter) flatMap(stmt ast.Stmt) []ast.Stmt {
	if !d.yields(stmt) {
		return []ast.Stmt{stmt}
	}

	switch s := stmt.(type) {
	case *ast.Assign:
		rhs, pre := d.decompose(s.Rhs, 0)
		s.Rhs = rhs
		return append(pre, s)

	case *ast.MultiAssign:
		var pre []ast.Stmt
		for i, e := range s.Lhs {
			var p []ast.Stmt
			s.Lhs[i], p = d.decompose(e, multiExprStmt)
			pre = append(pre, p...)
		}
		for i, e := range s.Rhs {
			var p []ast.Stmt
			s.Rhs[i], p = d.decompose(e, multiExprStmt)
			pre = append(pre, p...)
		}
		return append(pre, s)

	case *ast.ExprStmt:
		if y, ok := s.X.(*ast.Yield); ok {
			// A bare `yield e`: e itself may still need decomposing, but
			// the yield never needs to be hoisted out of its own
			// ExprStmt — it already is a statement.
			if y.Value != nil {
				v, pre := d.decompose(y.Value, 0)
				y.Value = v
				return append(pre, s)
			}
			return []ast.Stmt{s}
		}
		x, pre := d.decompose(s.X, 0)
		s.X = x
		return append(pre, s)

	case *ast.Return:
		if s.Value == nil {
			return []ast.Stmt{s}
		}
		v, pre := d.decompose(s.Value, 0)
		s.Value = v
		return append(pre, s)

	case *ast.Raise:
		if s.X == nil {
			return []ast.Stmt{s}
		}
		x, pre := d.decompose(s.X, 0)
		s.X = x
		return append(pre, s)

	case *ast.VarSection:
		var pre []ast.Stmt
		for _, b := range s.Bindings {
			if b.Init == nil {
				continue
			}
			var p []ast.Stmt
			b.Init, p = d.decompose(b.Init, 0)
			pre = append(pre, p...)
		}
		return append(pre, s)

	case *ast.If:
		if s.Init != nil {
			s.Init = firstOf(d.flatMap(s.Init))
		}
		if d.yields(s.Cond) {
			cond, pre := d.decompose(s.Cond, 0)
			s.Cond = cond
			s.Then = d.rewriteList(s.Then)
			s.Else = d.rewriteList(s.Else)
			return append(pre, s)
		}
		s.Then = d.rewriteList(s.Then)
		s.Else = d.rewriteList(s.Else)
		return []ast.Stmt{s}

	case *ast.Case:
		tag, pre := d.decompose(s.Tag, 0)
		s.Tag = tag
		for _, c := range s.Clauses {
			c.Body = d.rewriteList(c.Body)
		}
		return append(pre, s)

	case *ast.While:
		s.Body = d.rewriteList(s.Body)
		if !d.yields(s.Cond) {
			return []ast.Stmt{s}
		}
		// Wrap in a fresh labeled block so a yielding condition can be
		// evaluated by statements guarded with an explicit break,
		// per spec.md §4.B's "while with yielding condition" rule.
		label := d.p.newLabel()
		cond, condPre := d.decompose(s.Cond, 0)
		guard := &ast.If{
			Cond: &ast.Unary{Op: "not", X: cond},
			Then: []ast.Stmt{&ast.Break{Label: label}},
		}
		body := append(append([]ast.Stmt{}, condPre...), guard)
		body = append(body, s.Body...)
		inner := &ast.While{Cond: &ast.BasicLit{Kind: ast.BoolLit, Value: "true"}, Body: body}
		return []ast.Stmt{&ast.Block{Label: label, Body: []ast.Stmt{inner}}}

	case *ast.Block:
		s.Body = d.rewriteList(s.Body)
		return []ast.Stmt{s}

	case *ast.Try:
		s.Body = d.rewriteList(s.Body)
		for _, h := range s.Handlers {
			h.Body = d.rewriteList(h.Body)
		}
		if s.Finally != nil {
			s.Finally.Body = d.rewriteList(s.Finally.Body)
		}
		return []ast.Stmt{s}

	case *ast.StmtList:
		return d.rewriteList(s.List)

	default:
		return []ast.Stmt{s}
	}
}

func firstOf(stmts []ast.Stmt) ast.Stmt {
	if len(stmts) == 1 {
		return stmts[0]
	}
	return &ast.StmtList{List: stmts}
}

// exprFlags mirrors the teacher's exprFlags: multiExprStmt is set when the
// enclosing statement has more than one top-level expression, which forces
// the *first* yielding subexpression hoisted out to also be hoisted even
// when it is itself the statement's very first operand — because once any
// sibling needs a temporary, the relative order of side effects across all
// siblings must be nailed down by statements, not implicit expression
// evaluation order.
type exprFlags int

const multiExprStmt exprFlags = 1 << 0

// decompose hoists every yielding subexpression of expr into a preceding
// assignment to a fresh temporary, returning the rewritten expression
// (itself yield-free) and the statements that must run before it.
func (d *exprSplitter) decompose(expr ast.Expr, flags exprFlags) (ast.Expr, []ast.Stmt) {
	if !d.yields(expr) {
		return expr, nil
	}

	switch e := expr.(type) {
	case *ast.Yield:
		return d.hoistYield(e)

	case *ast.If, *ast.Case, *ast.Try:
		return d.decomposeValueStmt(expr)

	case *ast.Call:
		if e.Magic == ast.MagicAnd || e.Magic == ast.MagicOr {
			return d.decomposeShortCircuit(e)
		}
		return d.decomposeWorklist(expr, flags)

	default:
		return d.decomposeWorklist(expr, flags)
	}
}

// hoistYield implements §4.B's "yield inside an expression" rule for the
// case where the yield itself, not merely some expression containing one,
// is what needs hoisting: the yield becomes its own statement, and
// whatever value the iterator is resumed with is read back from the
// compiler's closure-iterator-result slot (symtab.Compiler.GetClosureIter-
// Result) into a fresh temporary that stands in for the yield everywhere
// it was used as a value.
func (d *exprSplitter) hoistYield(y *ast.Yield) (ast.Expr, []ast.Stmt) {
	var pre []ast.Stmt
	if y.Value != nil {
		v, vpre := d.decompose(y.Value, 0)
		y.Value = v
		pre = append(pre, vpre...)
	}
	pre = append(pre, &ast.ExprStmt{X: y})
	tmp := d.p.env.newTempVar(symtab.Any)
	pre = append(pre, &ast.Assign{Lhs: tmp, Rhs: d.p.env.closureIterResultAccess()})
	return tmp, pre
}

// decomposeValueStmt implements §4.B's "if/case with value" and "try with
// value" rule: introduce a temporary, rewrite every branch so its trailing
// ExprStmt assigns into that temporary instead of producing a value, strip
// HasValue, and return a read of the temporary.
func (d *exprSplitter) decomposeValueStmt(expr ast.Expr) (ast.Expr, []ast.Stmt) {
	t := d.p.typeInfo.TypeOf(expr)
	if t == nil {
		t = symtab.Any
	}
	tmp := d.p.env.newTempVar(t)

	assignTail := func(body []ast.Stmt) []ast.Stmt {
		if len(body) == 0 {
			return body
		}
		last, ok := body[len(body)-1].(*ast.ExprStmt)
		if !ok {
			d.p.fatal("exprsplit", diag.PostconditionFailure,
				"value-producing branch does not end in an expression statement")
		}
		// The tail's own replacement (a freshly synthesized Assign) isn't
		// in the precomputed mayYield set rewriteList's flatMap consults,
		// so it must be decomposed explicitly here rather than folded
		// into the generic d.rewriteList(body) pass below.
		body = d.rewriteList(body[:len(body)-1])
		rhs, pre := d.decompose(last.X, 0)
		body = append(body, pre...)
		body = append(body, &ast.Assign{Lhs: tmp, Rhs: rhs})
		return body
	}

	switch s := expr.(type) {
	case *ast.If:
		s.HasValue = false
		s.Then = assignTail(s.Then)
		s.Else = assignTail(s.Else)
		return tmp, []ast.Stmt{s}
	case *ast.Case:
		s.HasValue = false
		for _, c := range s.Clauses {
			c.Body = assignTail(c.Body)
		}
		return tmp, []ast.Stmt{s}
	case *ast.Try:
		s.HasValue = false
		s.Body = assignTail(s.Body)
		for _, h := range s.Handlers {
			h.Body = assignTail(h.Body)
		}
		return tmp, []ast.Stmt{s}
	default:
		d.p.fatal("exprsplit", diag.UnsupportedConstruct, "decomposeValueStmt: unexpected %T", expr)
		return nil, nil
	}
}

// decomposeShortCircuit implements §4.B's and/or rule.
func (d *exprSplitter) decomposeShortCircuit(call *ast.Call) (ast.Expr, []ast.Stmt) {
	lhs, pre := d.decompose(call.Args[0], 0)
	tmp := d.p.env.newTempVar(symtab.Bool)
	pre = append(pre, &ast.Assign{Lhs: tmp, Rhs: lhs})

	rhs, rhsPre := d.decompose(call.Args[1], 0)
	rhsPre = append(rhsPre, &ast.Assign{Lhs: tmp, Rhs: rhs})

	var cond ast.Expr = tmp
	if call.Magic == ast.MagicOr {
		cond = &ast.Unary{Op: "not", X: tmp}
	}
	guard := &ast.If{Cond: cond, Then: rhsPre}
	pre = append(pre, guard)
	return tmp, pre
}

// decomposeWorklist is the general-purpose structural decomposer, adapted
// from compiler/desugar.go's decomposeExpression: a worklist of
// expressions to visit, each of whose yielding children are replaced by a
// fresh temporary and pushed back onto the worklist. The corresponding
// assignments are emitted via a post-order walk of the parent/child
// relationships recorded in children (see emit below), which keeps
// sibling temporaries in their original left-to-right order while still
// placing a temporary's own nested prerequisites before it.
func (d *exprSplitter) decomposeWorklist(expr ast.Expr, flags exprFlags) (ast.Expr, []ast.Stmt) {
	queue := []ast.Expr{expr}
	var tmps []*ast.Ident

	// children maps a queue index to the tmp indices pushed while that
	// queue entry was being visited — i.e. its direct structural children.
	// The worklist is a tree (queue[0] the root), not a single chain: two
	// temporaries pushed while visiting the same parent are siblings, not
	// nested in each other, and must keep their original left-to-right
	// order relative to one another even though one of them may have its
	// own further-nested children that need assigning first. currentParent
	// tracks which queue index push is currently attributed to.
	children := map[int][]int{}
	currentParent := 0

	// push unconditionally materializes e into a fresh temporary and queues
	// it for its own traversal; hoist gates this on d.yields(e) (the
	// ordinary "only pull out subexpressions that actually need splitting"
	// rule), while forceHoist skips the gate — used where spec.md §4.B
	// requires a sibling hoisted regardless of whether it itself yields, so
	// that its evaluation stays pinned before a yielding sibling's
	// suspension point instead of sliding after it.
	push := func(e ast.Expr) ast.Expr {
		t := d.p.typeInfo.TypeOf(e)
		if t == nil {
			t = symtab.Any
		}
		tmp := d.p.env.newTempVar(t)
		idx := len(tmps)
		tmps = append(tmps, tmp)
		queue = append(queue, e)
		children[currentParent] = append(children[currentParent], idx)
		return tmp
	}
	hoist := func(e ast.Expr) ast.Expr {
		if e == nil || !d.yields(e) {
			return e
		}
		return push(e)
	}
	forceHoist := func(e ast.Expr) ast.Expr {
		if e == nil {
			return e
		}
		return push(e)
	}

	for i := 0; i < len(queue); i++ {
		currentParent = i
		switch e := queue[i].(type) {
		case *ast.Binary:
			e.X = hoist(e.X)
			e.Y = hoist(e.Y)
		case *ast.Unary:
			e.X = hoist(e.X)
		case *ast.Paren:
			e.X = hoist(e.X)
		case *ast.Dot:
			e.X = hoist(e.X)
		case *ast.Bracket:
			e.X = hoist(e.X)
			e.Index = hoist(e.Index)
		case *ast.Deref:
			e.X = hoist(e.X)
		case *ast.Cast:
			e.X = hoist(e.X)
		case *ast.CheckedRange:
			e.X = hoist(e.X)
			e.Low = hoist(e.Low)
			e.High = hoist(e.High)
		case *ast.Container:
			d.decomposeContainer(e, hoist, forceHoist)
		case *ast.Call:
			if i == 0 && flags&multiExprStmt != 0 {
				queue[i] = hoist(e)
				continue
			}
			// spec.md §4.B's "Calls..." rule: once any call-kind argument
			// needs splitting, every remaining call-kind argument must be
			// hoisted too, even if it doesn't itself yield — otherwise that
			// sibling's side effects would run after the yielding one's
			// suspension/resume instead of in their original left-to-right
			// order.
			anyCallHoisted := false
			for _, a := range e.Args {
				if _, ok := a.(*ast.Call); ok && d.yields(a) {
					anyCallHoisted = true
					break
				}
			}
			e.Fun = hoist(e.Fun)
			for j, a := range e.Args {
				if anyCallHoisted {
					if _, ok := a.(*ast.Call); ok {
						e.Args[j] = forceHoist(a)
						continue
					}
				}
				e.Args[j] = hoist(a)
			}
		case *ast.Yield:
			e.Value = hoist(e.Value)
		default:
			d.p.fatal("exprsplit", diag.UnsupportedConstruct, "decompose: unsupported expression %T", e)
		}
	}

	// Each hoisted tmp contributes a group of one or more statements that
	// must stay together and in order; a yield's group is its own
	// ExprStmt followed by the read of its result, everything else is a
	// single assignment. Groups are assembled by a post-order walk of the
	// children tree recorded above: a tmp's own nested children (if it had
	// any further yielding subexpressions of its own) are materialized
	// immediately before the tmp's own assignment, but siblings — tmps
	// pushed while visiting the same parent — keep the left-to-right order
	// they were discovered in, so independent call arguments like g() and
	// h(yield 1) in f(g(), h(yield 1)) stay in their original evaluation
	// order instead of being silently reversed relative to each other.
	var prereqs []ast.Stmt
	var emit func(parentIdx int)
	emit = func(parentIdx int) {
		for _, tmpIdx := range children[parentIdx] {
			qIdx := tmpIdx + 1
			emit(qIdx)
			if y, ok := queue[qIdx].(*ast.Yield); ok {
				prereqs = append(prereqs, &ast.ExprStmt{X: y}, &ast.Assign{Lhs: tmps[tmpIdx], Rhs: d.p.env.closureIterResultAccess()})
				continue
			}
			prereqs = append(prereqs, &ast.Assign{Lhs: tmps[tmpIdx], Rhs: queue[qIdx]})
		}
	}
	emit(0)
	return queue[0], prereqs
}

// decomposeContainer applies §4.B's container-constructor rule: elements
// that may yield are hoisted normally, but once any *ast.Call sibling has
// been hoisted, every other Call-kind sibling is force-hoisted too (via
// forceHoist, which — unlike hoist — doesn't gate on the element itself
// yielding), so that the relative order of their side effects remains
// pinned by statements rather than by incidental expression-evaluation
// order.
func (d *exprSplitter) decomposeContainer(c *ast.Container, hoist, forceHoist func(ast.Expr) ast.Expr) {
	anyCallHoisted := false
	for _, e := range c.Elems {
		if _, ok := e.(*ast.Call); ok && d.yields(e) {
			anyCallHoisted = true
			break
		}
	}
	for i, e := range c.Elems {
		if anyCallHoisted {
			if _, ok := e.(*ast.Call); ok {
				c.Elems[i] = forceHoist(e)
				continue
			}
		}
		c.Elems[i] = hoist(e)
	}
	for i, k := range c.Keys {
		if k != nil {
			c.Keys[i] = hoist(k)
		}
	}
}
