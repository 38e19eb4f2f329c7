package model

// ValidationKind is the severity of a form validation result.
type ValidationKind string

const (
	ValidationOK      ValidationKind = "ok"
	ValidationWarning ValidationKind = "warning"
	ValidationError   ValidationKind = "error"
)

// ValidationResult is returned by credential type descriptors when checking
// user-submitted fields before a credential is saved.
type ValidationResult struct {
	Kind    ValidationKind
	Message string
}

// ValidationOKResult returns a passing result.
func ValidationOKResult() ValidationResult {
	return ValidationResult{Kind: ValidationOK}
}

// ValidationErrorResult returns a failing result carrying msg.
func ValidationErrorResult(msg string) ValidationResult {
	return ValidationResult{Kind: ValidationError, Message: msg}
}

// OK reports whether the result allows the credential to be saved.
// Warnings do not block saving.
func (r ValidationResult) OK() bool {
	return r.Kind != ValidationError
}
