package recurrence

import (
	"github.com/gnolang/asymptote/internal/types"
)

// Select picks the solving method. A preferred method is validated against
// the recurrence shape and used as is; otherwise a linear shift with two or
// more recursive terms goes to the characteristic equation, a single
// subtraction term to iteration and divide and conquer to the master
// theorem.
func Select(r *types.Recurrence, preferred types.Method) (types.Method, error) {
	if preferred != types.MethodAuto {
		if err := Applicable(r, preferred); err != nil {
			return "", types.Errorf(types.CodeInvalidPreferredMethod,
				"%s cannot solve %s", preferred.Title(), r).Wrap(err)
		}
		return preferred, nil
	}
	switch r.Form {
	case types.LinearShift:
		if r.Calls() >= 2 {
			return types.MethodCharacteristic, nil
		}
		return types.MethodIteration, nil
	case types.DivideConquer:
		return types.MethodMaster, nil
	}
	return "", types.Errorf(types.CodeNoApplicableMethod, "unknown recurrence form %q", r.Form)
}

// Applicable checks the precondition of a method.
func Applicable(r *types.Recurrence, m types.Method) error {
	switch m {
	case types.MethodMaster, types.MethodRecursionTree:
		if r.Form != types.DivideConquer {
			return types.Errorf(types.CodeNoApplicableMethod, "%s needs T(n) = a·T(n/b) + f(n)", m.Title())
		}
		if r.A < 1 || r.B < 2 {
			return types.Errorf(types.CodeNoApplicableMethod, "%s needs a >= 1 and b >= 2", m.Title())
		}
	case types.MethodIteration:
		if r.Form == types.DivideConquer {
			return nil
		}
		if len(r.Coefficients) != 1 {
			return types.Errorf(types.CodeNoApplicableMethod, "iteration needs a single recursive term")
		}
	case types.MethodCharacteristic:
		if r.Form != types.LinearShift {
			return types.Errorf(types.CodeNoApplicableMethod, "the characteristic equation needs T(n) = Σ c_i·T(n-i) + g(n)")
		}
	default:
		return types.Errorf(types.CodeInvalidPreferredMethod, "unknown method %q", m)
	}
	return nil
}
