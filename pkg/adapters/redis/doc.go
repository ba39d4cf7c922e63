// Package redis keeps uniqueness indexes in Redis sets.
//
// An Index backs the asynchronous "unique" rule, which reports a value as
// taken while the user types, and ClaimOnSubmit, which atomically claims the
// values when the form is submitted so two concurrent submissions cannot
// both win.
package redis
