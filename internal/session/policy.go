package session

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// LoginPolicy is an optional gate evaluated against the principal
// attributes of every login event. The expression sees `subject` (string)
// and `attributes` (map) and must yield a boolean.
type LoginPolicy struct {
	source  string
	program *vm.Program
}

// CompileLoginPolicy compiles the policy expression. An empty source
// returns a nil policy, meaning every validated login is admitted.
func CompileLoginPolicy(source string) (*LoginPolicy, error) {
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling login policy: %w", err)
	}
	return &LoginPolicy{source: source, program: program}, nil
}

// Allows evaluates the policy for one login event.
func (p *LoginPolicy) Allows(subject string, attributes map[string]any) (bool, error) {
	if attributes == nil {
		attributes = map[string]any{}
	}
	out, err := expr.Run(p.program, map[string]any{
		"subject":    subject,
		"attributes": attributes,
	})
	if err != nil {
		return false, fmt.Errorf("evaluating login policy: %w", err)
	}
	allowed, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("login policy returned %T, expected bool", out)
	}
	return allowed, nil
}

func (p *LoginPolicy) Source() string {
	return p.source
}
