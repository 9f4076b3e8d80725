// Package matching evaluates request patterns against incoming requests.
// Evaluation is pure: it never mutates the pattern or the request, so
// callers may evaluate concurrently.
//
// A pattern constraint that is absent matches anything and contributes
// nothing to specificity. Specificity is the number of configured
// constraints a fully matching pattern satisfied; the selection layer uses
// it to prefer more precise mappings.
package matching
