package rate

import (
	"fmt"
	"strings"
)

// EmitCUDA renders a resolved expression as CUDA C operating on a per-thread
// state array. Species become y[j] reads, parameters become PARAM(q,tid)
// table lookups, observables expand into linear combinations, named
// sub-expressions inline recursively. Integer powers of a species expand
// combinatorially (sampling without replacement); other integer powers
// expand into repeated multiplication since the device has no integer-power
// intrinsic. Real powers use powf. Output carries no whitespace.
func (t *Table) EmitCUDA(e Expr) string {
	var b strings.Builder
	t.emit(&b, e)
	return b.String()
}

func (t *Table) emit(b *strings.Builder, e Expr) {
	switch v := e.(type) {
	case Number:
		b.WriteString(v.String())
	case SpeciesRef:
		fmt.Fprintf(b, "y[%d]", v.Index)
	case ParamRef:
		fmt.Fprintf(b, "PARAM(%d,tid)", v.Index)
	case ObsRef:
		t.emitObservable(b, t.Observables[v.Index])
	case ExprRef:
		b.WriteByte('(')
		t.emit(b, t.Expressions[v.Index])
		b.WriteByte(')')
	case Unary:
		b.WriteString("-(")
		t.emit(b, v.X)
		b.WriteByte(')')
	case Binary:
		if v.Op == '^' {
			t.emitPower(b, v)
			return
		}
		b.WriteByte('(')
		t.emit(b, v.X)
		b.WriteByte(v.Op)
		t.emit(b, v.Y)
		b.WriteByte(')')
	case Call:
		b.WriteString(intrinsics[v.Name])
		b.WriteByte('(')
		t.emit(b, v.Args[0])
		b.WriteByte(')')
	}
}

func (t *Table) emitObservable(b *strings.Builder, o Observable) {
	if len(o.Species) > 1 {
		b.WriteByte('(')
	}
	for i, s := range o.Species {
		if i > 0 {
			b.WriteByte('+')
		}
		if o.Coefficients[i] != 1 {
			fmt.Fprintf(b, "%d*", o.Coefficients[i])
		}
		fmt.Fprintf(b, "y[%d]", s)
	}
	if len(o.Species) > 1 {
		b.WriteByte(')')
	}
}

func (t *Table) emitPower(b *strings.Builder, v Binary) {
	if n, ok := intPower(v.Y); ok {
		if n == 0 {
			b.WriteString("1")
			return
		}
		if s, ok := v.X.(SpeciesRef); ok {
			// combinatorial propensity: y^n -> y*(y-1)*...*(y-n+1)
			b.WriteByte('(')
			fmt.Fprintf(b, "y[%d]", s.Index)
			for i := 1; i < n; i++ {
				fmt.Fprintf(b, "*(y[%d]-%d)", s.Index, i)
			}
			b.WriteByte(')')
			return
		}
		b.WriteByte('(')
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteByte('*')
			}
			b.WriteByte('(')
			t.emit(b, v.X)
			b.WriteByte(')')
		}
		b.WriteByte(')')
		return
	}
	b.WriteString("powf(")
	t.emit(b, v.X)
	b.WriteByte(',')
	t.emit(b, v.Y)
	b.WriteByte(')')
}
