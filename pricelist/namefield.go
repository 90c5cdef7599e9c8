package pricelist

import (
	"fmt"
	"regexp"
)

var (
	nameFormDoseRegex = regexp.MustCompile(`(?s)^(.*?), (.*), (.*)$`)
	nameFormRegex     = regexp.MustCompile(`(?s)^(.*?), (.*)$`)
)

// NameField is the combined "name, form, dose" column split into its parts.
type NameField struct {
	Name string
	Form string
	Dose *string // nil when the field only holds "name, form"
}

// MalformedNameFieldError is returned for a name field without any ", "
// separator. It is fatal for an ingestion run.
type MalformedNameFieldError struct {
	Value string
}

func (e *MalformedNameFieldError) Error() string {
	return fmt.Sprintf("malformed name field %q: expected \"name, form[, dose]\"", e.Value)
}

// SplitNameField splits the combined column. The name stops at the first
// ", " and the dose starts after the last one; everything between is the form.
func SplitNameField(s string) (NameField, error) {
	if m := nameFormDoseRegex.FindStringSubmatch(s); m != nil {
		dose := m[3]
		return NameField{Name: m[1], Form: m[2], Dose: &dose}, nil
	}

	if m := nameFormRegex.FindStringSubmatch(s); m != nil {
		return NameField{Name: m[1], Form: m[2]}, nil
	}

	return NameField{}, &MalformedNameFieldError{Value: s}
}
