/*
Package domain contains the value types shared by the form engine and its adapters.

It defines what flows through a form, not how the form behaves: field values, UI
events, rule outcomes, state snapshots and lifecycle hooks. The package is kept pure
and free of I/O so that rules, adapters and the runtime can all depend on it.

# Key Entities

  - Values: the field name to value map of a form.
  - Rule: a (possibly blocking) check producing a Result for one field.
  - Result: the outcome of a rule, either Ok or Fail(message).
  - State: an immutable snapshot of values, errors, touched flags and progress flags.
  - FieldAccessor: the read-only binding of a single field for a UI layer.
*/
package domain
