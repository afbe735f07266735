package validator

// Validator validates structs annotated with `validate` tags.
type Validator interface {
	// Validate returns nil when data satisfies its rules, otherwise an error
	// describing every failing field.
	Validate(data any) error
}
