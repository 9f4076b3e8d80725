// Package engine ties the stub repository, matcher, renderer, scenario
// tracker and journal together behind an http.Handler. An Engine is
// constructed explicitly and owns no global state; tests routinely run
// several engines side by side.
package engine
