/*
Package observability exports form activity as Prometheus metrics.

Metrics plugs into the lifecycle hooks of a form, so every field validation
and submission attempt is counted and timed without the engine knowing about
Prometheus. Hooks from several sources can be combined with Chain.
*/
package observability
