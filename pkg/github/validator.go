package github

import (
	"fmt"
	"strings"
)

// ValidationError is one problem with one entry of a repository list
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Field, e.Value, e.Message)
}

// ValidationErrors collects every problem found in a repository list
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	messages := make([]string, 0, len(e))
	for i := range e {
		messages = append(messages, e[i].Error())
	}

	switch len(e) {
	case 0:
		return "invalid repository list"
	case 1:
		return "invalid repository list: " + messages[0]
	default:
		return fmt.Sprintf("invalid repository list, %d problems: %s", len(e), strings.Join(messages, "; "))
	}
}

// Add records a problem with field
func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, ValidationError{Field: field, Value: value, Message: message})
}

// HasErrors reports whether any problem was recorded
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// IsValidRepositories reports whether repos is non-empty and every entry names both an owner and a repository
func IsValidRepositories(repos []Repository) bool {
	return ValidateRepositories(repos) == nil
}

// ValidateRepositories returns every problem found in repos as ValidationErrors
func ValidateRepositories(repos []Repository) error {
	var errs ValidationErrors

	if len(repos) == 0 {
		errs.Add("repositories", "", "at least one repository is required")
		return errs
	}

	for i, repo := range repos {
		if strings.TrimSpace(repo.Owner) == "" {
			errs.Add(fmt.Sprintf("repositories[%d].owner", i), repo.Repository, "owner is required")
		}
		if strings.TrimSpace(repo.Repository) == "" {
			errs.Add(fmt.Sprintf("repositories[%d].repository", i), repo.Owner, "repository is required")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
