package contents

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medprices/medprices-api/pricelist/entities"
)

// ErrShapeMismatch is returned when a string is parsed with a shape it does not have.
var ErrShapeMismatch = errors.New("contents do not match the requested shape")

// MalformedNumberError reports a value that passed a structural check but
// could not be converted to a number. It is fatal for an ingestion run.
type MalformedNumberError struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedNumberError) Error() string {
	return fmt.Sprintf("malformed number %q in %s: %v", e.Value, e.Field, e.Err)
}

func (e *MalformedNumberError) Unwrap() error {
	return e.Err
}

// UnclassifiableGroupError reports a group whose contents strings do not
// share a single shape. The group is dropped and processing continues.
type UnclassifiableGroupError struct {
	Key      entities.GroupKey
	Contents []string
}

func (e *UnclassifiableGroupError) Error() string {
	dose := "<none>"
	if e.Key.HasDose {
		dose = e.Key.Dose
	}
	return fmt.Sprintf("unclassifiable contents for group (%s | %s | %s): %s",
		e.Key.Substance, e.Key.Form, dose, strings.Join(e.Contents, "; "))
}
