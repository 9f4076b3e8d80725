// Package stub defines the stub mapping data model: the request pattern a
// mapping declares, the response definition it renders, and the optional
// scenario binding that gates when it is eligible.
package stub
