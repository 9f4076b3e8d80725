package matching

import (
	"encoding/json"
	"fmt"

	"github.com/expr-lang/expr"
)

// exprEnv builds the environment an expr body matcher evaluates against.
// The body is exposed both raw ("body") and, when it parses as JSON,
// decoded ("json").
func exprEnv(body []byte) map[string]any {
	env := map[string]any{
		"body": string(body),
		"json": nil,
	}
	var decoded any
	if json.Unmarshal(body, &decoded) == nil {
		env["json"] = decoded
	}
	return env
}

// matchExpr evaluates an expr program against the request body. The
// program must yield a boolean; anything else fails the match.
func matchExpr(program string, body []byte) bool {
	out, err := expr.Eval(program, exprEnv(body))
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

// ValidateExpr checks that a program compiles and yields a boolean.
func ValidateExpr(program string) error {
	_, err := expr.Compile(program, expr.Env(map[string]any{}), expr.AsBool())
	if err != nil {
		return fmt.Errorf("invalid expr program %q: %w", program, err)
	}
	return nil
}
