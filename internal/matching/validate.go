package matching

import (
	"fmt"

	"github.com/getstubd/stubd/pkg/stub"
)

// ValidatePattern checks the matcher expressions a pattern carries beyond
// what structural validation covers: JSONPath and expr syntax.
func ValidatePattern(p *stub.RequestPattern) error {
	for i, bm := range p.Body {
		switch bm.Kind {
		case stub.BodyJSONPath:
			if err := ValidateJSONPath(bm.Value); err != nil {
				return fmt.Errorf("request.body[%d]: %w", i, err)
			}
		case stub.BodyExpr:
			if err := ValidateExpr(bm.Value); err != nil {
				return fmt.Errorf("request.body[%d]: %w", i, err)
			}
		}
	}
	return nil
}
