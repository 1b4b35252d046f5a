package ir

import (
	"strconv"
)

// Expr is a sealed boolean expression tree over requirement indices.
// Only Term, Lit, Not, And and Or implement it.
//
// A Term(i) is true when the i-th requirement of a rule was satisfied.
// Indices beyond the evaluated vector read as false; load-time validation
// rejects them before evaluation ever sees them.
type Expr interface {
	Eval(vals []bool) bool
	String() string
	expr() // Sealed
}

// Term references requirement i.
type Term int

// Lit is a constant true or false.
type Lit bool

// Not negates X.
type Not struct{ X Expr }

// And is true when both sides are true.
type And struct{ L, R Expr }

// Or is true when either side is true.
type Or struct{ L, R Expr }

func (Term) expr() {}
func (Lit) expr() {}
func (Not) expr() {}
func (And) expr() {}
func (Or) expr() {}

func (t Term) Eval(vals []bool) bool {
	i := int(t)
	return i >= 0 && i < len(vals) && vals[i]
}

func (l Lit) Eval([]bool) bool { return bool(l) }
func (n Not) Eval(vals []bool) bool { return !n.X.Eval(vals) }
func (a And) Eval(vals []bool) bool { return a.L.Eval(vals) && a.R.Eval(vals) }
func (o Or) Eval(vals []bool) bool { return o.L.Eval(vals) || o.R.Eval(vals) }
func (t Term) String() string { return strconv.Itoa(int(t)) }
func (n Not) String() string { return "not " + n.X.String() }
func (a And) String() string { return "(" + a.L.String() + " and " + a.R.String() + ")" }
func (o Or) String() string { return "(" + o.L.String() + " or " + o.R.String() + ")" }

func (l Lit) String() string {
	if l {
		return "true"
	}
	return "false"
}

// AllOf returns the conjunction of Term(0) through Term(n-1).
// AllOf(0) is Lit(true).
func AllOf(n int) Expr {
	if n <= 0 {
		return Lit(true)
	}
	var e Expr = Term(0)
	for i := 1; i < n; i++ {
		e = And{L: e, R: Term(i)}
	}
	return e
}

// MaxIndex returns the largest Term index in e, or -1 when e has none.
func MaxIndex(e Expr) int {
	switch x := e.(type) {
	case Term:
		return int(x)
	case Not:
		return MaxIndex(x.X)
	case And:
		return max(MaxIndex(x.L), MaxIndex(x.R))
	case Or:
		return max(MaxIndex(x.L), MaxIndex(x.R))
	default:
		return -1
	}
}
