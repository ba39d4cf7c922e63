/*
Package formwork is a schema-driven form validation engine for create/edit
dialogs: client records, quotes, orders, messaging, user registration.

A Form tracks field values, errors, touched flags and progress flags, and
orchestrates when validation runs. It does not decide what a field must
satisfy; that is the job of the rules in its Schema.

# Concept

  - Changes store the new value, clear the field's error at once, and
    schedule a debounced validation of that field.
  - Blurs mark the field touched and validate it immediately.
  - Submission marks every field touched, validates the whole form, and calls
    the submit handler only when nothing fails.
  - Errors are visible (FieldProps) only once their field is touched.

Each field's validations are ordered by sequence number: a result is written
only if no newer validation of the same field was started in the meantime.

# Usage

	form := formwork.New(
		domain.Values{"email": ""},
		schema.Schema{"email": {rules.Required("required"), rules.Email("invalid format")}},
		formwork.WithDebounce(200*time.Millisecond),
	)
	defer form.Close()

	form.HandleChange(domain.Event{Name: "email", Value: "a@b.com"})
	form.HandleBlur(ctx, domain.Event{Name: "email"})

	res, err := form.Submit(ctx, func(ctx context.Context, v domain.Values, h domain.Helpers) error {
		if taken(v["email"]) {
			h.SetFieldError("email", "email already exists")
		}
		return nil
	})
*/
package formwork
