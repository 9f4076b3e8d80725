package matching

import (
	"fmt"
	"sort"

	"github.com/getstubd/stubd/pkg/stub"
)

// NearMiss describes how close a non-matching mapping came to matching a
// request, with a per-constraint breakdown.
type NearMiss struct {
	MappingID     string        `json:"mappingId"`
	MappingName   string        `json:"mappingName,omitempty"`
	MatchedFields int           `json:"matchedFields"`
	TotalFields   int           `json:"totalFields"`
	Fields        []FieldResult `json:"fields"`
	Reason        string        `json:"reason"`
}

// DefaultNearMissLimit bounds how many near misses diagnostics include.
const DefaultNearMissLimit = 3

// CollectNearMisses evaluates every mapping against the request and
// returns the closest non-matching ones, best first. Mappings that match
// fully are skipped; they would have been selected.
func CollectNearMisses(mappings []*stub.StubMapping, req *Request, limit int) []NearMiss {
	if limit <= 0 {
		limit = DefaultNearMissLimit
	}

	var misses []NearMiss
	for _, m := range mappings {
		fields, _ := breakdown(&m.Request, req)
		if len(fields) == 0 {
			continue
		}

		matched := 0
		reason := ""
		for _, f := range fields {
			if f.Matched {
				matched++
			} else if reason == "" {
				reason = explain(f)
			}
		}
		if matched == len(fields) {
			continue
		}

		misses = append(misses, NearMiss{
			MappingID:     m.ID,
			MappingName:   m.Name,
			MatchedFields: matched,
			TotalFields:   len(fields),
			Fields:        fields,
			Reason:        reason,
		})
	}

	sort.SliceStable(misses, func(i, j int) bool {
		if misses[i].MatchedFields != misses[j].MatchedFields {
			return misses[i].MatchedFields > misses[j].MatchedFields
		}
		return misses[i].TotalFields < misses[j].TotalFields
	})

	if len(misses) > limit {
		misses = misses[:limit]
	}
	return misses
}

func explain(f FieldResult) string {
	if f.Actual == "" {
		return fmt.Sprintf("%s: expected %s, got nothing", f.Field, f.Expected)
	}
	return fmt.Sprintf("%s: expected %s, got %q", f.Field, f.Expected, f.Actual)
}
