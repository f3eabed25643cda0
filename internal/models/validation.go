package models

// ValidationResult collects blocking errors and advisory warnings.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func NewValidationResult() *ValidationResult {
	return &ValidationResult{Errors: []string{}, Warnings: []string{}}
}

func (v *ValidationResult) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
}

func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}

// Finish sets IsValid from the collected errors and returns the result.
func (v *ValidationResult) Finish() *ValidationResult {
	v.IsValid = len(v.Errors) == 0
	return v
}
