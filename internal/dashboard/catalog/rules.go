package catalog

import (
	"fmt"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/shared/utils"

	"github.com/google/cel-go/cel"
)

// Action is the kind of access being checked.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// RoleAdmin bypasses every access rule.
const RoleAdmin = "admin"

type compiledRules struct {
	read  cel.Program
	write cel.Program
}

var ruleEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("auth", cel.DynType),
		cel.Variable("doc", cel.DynType),
	)
	if err != nil {
		panic(fmt.Sprintf("create rule environment: %v", err))
	}
	ruleEnv = env
}

func compileRules(r model.AccessRules) (*compiledRules, error) {
	read, err := compileRule(r.Read)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}
	write, err := compileRule(r.Write)
	if err != nil {
		return nil, fmt.Errorf("write rule: %w", err)
	}
	return &compiledRules{read: read, write: write}, nil
}

func compileRule(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, nil
	}
	ast, iss := ruleEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	return ruleEnv.Program(ast)
}

// Allowed evaluates the kind's rule for action. Admins and system
// principals always pass; a kind without a rule admits any tenant member.
// A rule that fails to evaluate denies.
func (c *Catalog) Allowed(p utils.Principal, kind string, action Action, data map[string]interface{}) (bool, error) {
	if p.System || p.Role == RoleAdmin {
		return true, nil
	}
	rules, ok := c.rules[kind]
	if !ok {
		return false, fmt.Errorf("no rules for kind %q", kind)
	}
	prg := rules.read
	if action == ActionWrite {
		prg = rules.write
	}
	if prg == nil {
		return true, nil
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"auth": map[string]interface{}{
			"uid":   p.UserID,
			"email": p.Email,
			"role":  p.Role,
		},
		"doc": docValue(data),
	})
	if err != nil {
		return false, err
	}
	allowed, ok := out.Value().(bool)
	return ok && allowed, nil
}

func docValue(data map[string]interface{}) interface{} {
	if data == nil {
		return map[string]interface{}{}
	}
	return celValue(data)
}

// celValue converts payload values into types the CEL runtime adapts.
func celValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = celValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = celValue(t[i])
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return t
	}
}
