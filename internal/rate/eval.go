package rate

import "math"

// Eval computes a resolved expression against concrete species counts and
// parameter values. The arithmetic mirrors EmitCUDA exactly, including the
// combinatorial expansion of integer species powers, so the host evaluator
// and the generated device code define the same hazard function.
func (t *Table) Eval(e Expr, species func(int) float64, param func(int) float64) float64 {
	switch v := e.(type) {
	case Number:
		return v.Value
	case SpeciesRef:
		return species(v.Index)
	case ParamRef:
		return param(v.Index)
	case ObsRef:
		o := t.Observables[v.Index]
		sum := 0.0
		for i, s := range o.Species {
			sum += float64(o.Coefficients[i]) * species(s)
		}
		return sum
	case ExprRef:
		return t.Eval(t.Expressions[v.Index], species, param)
	case Unary:
		return -t.Eval(v.X, species, param)
	case Binary:
		if v.Op == '^' {
			return t.evalPower(v, species, param)
		}
		x := t.Eval(v.X, species, param)
		y := t.Eval(v.Y, species, param)
		switch v.Op {
		case '+':
			return x + y
		case '-':
			return x - y
		case '*':
			return x * y
		case '/':
			return x / y
		}
	case Call:
		x := t.Eval(v.Args[0], species, param)
		switch v.Name {
		case "exp":
			return math.Exp(x)
		case "log":
			return math.Log(x)
		case "sqrt":
			return math.Sqrt(x)
		}
	}
	return math.NaN()
}

func (t *Table) evalPower(v Binary, species func(int) float64, param func(int) float64) float64 {
	if n, ok := intPower(v.Y); ok {
		if n == 0 {
			return 1
		}
		if s, ok := v.X.(SpeciesRef); ok {
			y := species(s.Index)
			prod := y
			for i := 1; i < n; i++ {
				prod *= y - float64(i)
			}
			return prod
		}
		x := t.Eval(v.X, species, param)
		prod := x
		for i := 1; i < n; i++ {
			prod *= x
		}
		return prod
	}
	return math.Pow(t.Eval(v.X, species, param), t.Eval(v.Y, species, param))
}
