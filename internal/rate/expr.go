package rate

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is a node in a parsed rate expression tree.
type Expr interface {
	String() string
}

// Number is a numeric literal. Host-language suffixes (Fortran d0, C f)
// are stripped during lexing.
type Number struct {
	Value float64
}

func (n Number) String() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// Ident is an unresolved name. Resolve replaces it with a typed reference.
type Ident struct {
	Name string
}

func (i Ident) String() string { return i.Name }

// SpeciesRef indexes into the per-trajectory species state vector.
type SpeciesRef struct {
	Index int
}

func (s SpeciesRef) String() string { return fmt.Sprintf("y[%d]", s.Index) }

// ParamRef indexes into the per-trajectory parameter table.
type ParamRef struct {
	Index int
}

func (p ParamRef) String() string { return fmt.Sprintf("p[%d]", p.Index) }

// ObsRef references an observable, a linear combination of species counts.
type ObsRef struct {
	Index int
}

func (o ObsRef) String() string { return fmt.Sprintf("obs[%d]", o.Index) }

// ExprRef references a named sub-expression, inlined on emission.
type ExprRef struct {
	Index int
}

func (e ExprRef) String() string { return fmt.Sprintf("expr[%d]", e.Index) }

// Unary is negation.
type Unary struct {
	X Expr
}

func (u Unary) String() string { return "-(" + u.X.String() + ")" }

// Binary is one of + - * / ^.
type Binary struct {
	Op byte
	X  Expr
	Y  Expr
}

func (b Binary) String() string {
	return "(" + b.X.String() + string(b.Op) + b.Y.String() + ")"
}

// Call is a function application. pow is normalized to Binary{'^'} during
// resolution; the remaining calls map onto device intrinsics.
type Call struct {
	Name string
	Args []Expr
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return c.Name + "(" + strings.Join(args, ",") + ")"
}

// Observable is a named linear combination of species counts.
type Observable struct {
	Name         string
	Species      []int
	Coefficients []int
}

// Table maps names to their resolved meaning within one reaction network.
// Name spaces are shared: a name is a parameter, species, observable or
// sub-expression, never more than one.
type Table struct {
	Species     map[string]int
	Parameters  map[string]int
	Observables []Observable
	obsIndex    map[string]int
	Expressions []Expr
	exprIndex   map[string]int
}

// NewTable builds a symbol table. Sub-expressions are added afterwards with
// AddExpression so they may reference earlier ones.
func NewTable(species, parameters []string, observables []Observable) (*Table, error) {
	t := &Table{
		Species:    make(map[string]int, len(species)),
		Parameters: make(map[string]int, len(parameters)),
		obsIndex:   make(map[string]int, len(observables)),
		exprIndex:  make(map[string]int),
	}
	for i, s := range species {
		if err := t.checkFree(s); err != nil {
			return nil, err
		}
		t.Species[s] = i
	}
	for i, p := range parameters {
		if err := t.checkFree(p); err != nil {
			return nil, err
		}
		t.Parameters[p] = i
	}
	for i, o := range observables {
		if err := t.checkFree(o.Name); err != nil {
			return nil, err
		}
		t.obsIndex[o.Name] = i
	}
	t.Observables = observables
	return t, nil
}

func (t *Table) checkFree(name string) error {
	if name == "" {
		return fmt.Errorf("rate: empty symbol name")
	}
	if _, ok := t.Species[name]; ok {
		return fmt.Errorf("rate: duplicate symbol %q", name)
	}
	if _, ok := t.Parameters[name]; ok {
		return fmt.Errorf("rate: duplicate symbol %q", name)
	}
	if _, ok := t.obsIndex[name]; ok {
		return fmt.Errorf("rate: duplicate symbol %q", name)
	}
	if _, ok := t.exprIndex[name]; ok {
		return fmt.Errorf("rate: duplicate symbol %q", name)
	}
	return nil
}

// AddExpression parses and resolves a named sub-expression against the
// table so far, then registers it.
func (t *Table) AddExpression(name, formula string) error {
	if err := t.checkFree(name); err != nil {
		return err
	}
	e, err := Parse(formula)
	if err != nil {
		return fmt.Errorf("rate: expression %s: %w", name, err)
	}
	r, err := t.Resolve(e)
	if err != nil {
		return fmt.Errorf("rate: expression %s: %w", name, err)
	}
	t.exprIndex[name] = len(t.Expressions)
	t.Expressions = append(t.Expressions, r)
	return nil
}

// ExpressionIndex returns the index of a named sub-expression.
func (t *Table) ExpressionIndex(name string) (int, bool) {
	i, ok := t.exprIndex[name]
	return i, ok
}

// ObservableIndex returns the index of a named observable.
func (t *Table) ObservableIndex(name string) (int, bool) {
	i, ok := t.obsIndex[name]
	return i, ok
}

// Resolve replaces Ident nodes with typed references and normalizes
// pow(x,n) calls to the '^' operator. Unknown names are an error.
func (t *Table) Resolve(e Expr) (Expr, error) {
	switch v := e.(type) {
	case Number:
		return v, nil
	case Ident:
		if i, ok := t.Parameters[v.Name]; ok {
			return ParamRef{Index: i}, nil
		}
		if i, ok := t.Species[v.Name]; ok {
			return SpeciesRef{Index: i}, nil
		}
		if i, ok := t.obsIndex[v.Name]; ok {
			return ObsRef{Index: i}, nil
		}
		if i, ok := t.exprIndex[v.Name]; ok {
			return ExprRef{Index: i}, nil
		}
		return nil, fmt.Errorf("rate: unknown symbol %q", v.Name)
	case Unary:
		x, err := t.Resolve(v.X)
		if err != nil {
			return nil, err
		}
		return Unary{X: x}, nil
	case Binary:
		x, err := t.Resolve(v.X)
		if err != nil {
			return nil, err
		}
		y, err := t.Resolve(v.Y)
		if err != nil {
			return nil, err
		}
		return Binary{Op: v.Op, X: x, Y: y}, nil
	case Call:
		args := make([]Expr, len(v.Args))
		for i, a := range v.Args {
			r, err := t.Resolve(a)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		if (v.Name == "pow" || v.Name == "powf") && len(args) == 2 {
			return Binary{Op: '^', X: args[0], Y: args[1]}, nil
		}
		if _, ok := intrinsics[v.Name]; !ok {
			return nil, fmt.Errorf("rate: unknown function %q", v.Name)
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("rate: %s expects 1 argument, got %d", v.Name, len(args))
		}
		return Call{Name: v.Name, Args: args}, nil
	}
	return nil, fmt.Errorf("rate: unexpected node %T", e)
}

// intrinsics are single-argument functions with both a host and a device
// implementation.
var intrinsics = map[string]string{
	"exp":  "expf",
	"log":  "logf",
	"sqrt": "sqrtf",
}

// intPower reports whether e is a non-negative integer literal, returning
// its value.
func intPower(e Expr) (int, bool) {
	n, ok := e.(Number)
	if !ok {
		return 0, false
	}
	v := int(n.Value)
	if float64(v) != n.Value || v < 0 {
		return 0, false
	}
	return v, true
}
