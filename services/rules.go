package services

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// RuleInput is the data a coupon eligibility rule can see.
type RuleInput struct {
	Subtotal    int64
	HolderID    string
	IsGuest     bool
	Redemptions int
}

// ruleEvaluator compiles CEL eligibility rules once and caches the programs.
type ruleEvaluator struct {
	once     sync.Once
	env      *cel.Env
	envErr   error
	programs sync.Map // expr -> cel.Program
}

func (r *ruleEvaluator) init() {
	r.once.Do(func() {
		r.env, r.envErr = cel.NewEnv(
			cel.Variable("subtotal", cel.IntType),
			cel.Variable("holder_id", cel.StringType),
			cel.Variable("is_guest", cel.BoolType),
			cel.Variable("redemptions", cel.IntType),
		)
	})
}

func (r *ruleEvaluator) program(expr string) (cel.Program, error) {
	if p, ok := r.programs.Load(expr); ok {
		return p.(cel.Program), nil
	}
	r.init()
	if r.envErr != nil {
		return nil, errors.Wrap(r.envErr, "cel env")
	}
	ast, iss := r.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrap(iss.Err(), "compile eligibility rule")
	}
	prg, err := r.env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "build eligibility rule")
	}
	r.programs.Store(expr, prg)
	return prg, nil
}

// Check reports whether expr compiles.
func (r *ruleEvaluator) Check(expr string) error {
	_, err := r.program(expr)
	return err
}

// Eval runs expr against in. Non-boolean results are errors.
func (r *ruleEvaluator) Eval(expr string, in RuleInput) (bool, error) {
	prg, err := r.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"subtotal":    in.Subtotal,
		"holder_id":   in.HolderID,
		"is_guest":    in.IsGuest,
		"redemptions": int64(in.Redemptions),
	})
	if err != nil {
		return false, errors.Wrap(err, "evaluate eligibility rule")
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, errors.Errorf("eligibility rule returned %T, want bool", out.Value())
	}
	return ok, nil
}
