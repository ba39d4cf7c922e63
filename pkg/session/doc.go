/*
Package session keeps the live forms of a server process.

Each session owns exactly one form. Requests for the same session are
serialised through a reference-counted per-session lock, so the form sees
its events in arrival order; different sessions proceed in parallel.
Discarding a session (the dialog was closed) closes its form, which cancels
any pending debounced validation.
*/
package session
