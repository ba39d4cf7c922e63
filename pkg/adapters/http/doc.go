// Package http exposes form sessions over a JSON API.
//
// A client creates a session from a served definition, then forwards its
// input events (change, blur, submit, reset) and renders the returned state.
// GET /forms/{id}/events streams every state snapshot as server-sent events.
package http
