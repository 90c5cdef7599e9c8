package pricelist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNameField(t *testing.T) {
	tests := []struct {
		input string
		name  string
		form  string
		dose  *string
	}{
		{"Aspirin, tablet, 500mg", "Aspirin", "tablet", strPtr("500mg")},
		{"Aspirin, tablet", "Aspirin", "tablet", nil},
		{"Apap, tabl. powl., 500 mg", "Apap", "tabl. powl.", strPtr("500 mg")},
		{"Augmentin, proszek, do sporządzania, 1 g", "Augmentin", "proszek, do sporządzania", strPtr("1 g")},
		{"Lek, forma, ", "Lek", "forma", strPtr("")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SplitNameField(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.name, got.Name)
			assert.Equal(t, tt.form, got.Form)
			assert.Equal(t, tt.dose, got.Dose)
		})
	}
}

func TestSplitNameField_Malformed(t *testing.T) {
	for _, input := range []string{"Aspirin", "Aspirin,tablet", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := SplitNameField(input)
			var nameErr *MalformedNameFieldError
			require.True(t, errors.As(err, &nameErr))
			assert.Equal(t, input, nameErr.Value)
		})
	}
}

func strPtr(s string) *string { return &s }
