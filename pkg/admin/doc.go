// Package admin exposes the management REST API: stub mapping CRUD,
// scenario control, journal queries and recording management. It runs on
// its own listener, separate from stub traffic, so admin calls can never
// collide with a registered mapping.
package admin
