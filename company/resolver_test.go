package company

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := NewResolver(map[string]string{
		"5909990000011":  "Polpharma",
		"05909990000028": "Adamed",
	})

	tests := []struct {
		name string
		code string
		want string
	}{
		{"exact match", "5909990000011", "Polpharma"},
		{"leading zeros match integer form", "05909990000011", "Polpharma"},
		{"raw match with leading zeros", "05909990000028", "Adamed"},
		{"integer form not stored", "5909990000028", FallbackCompany},
		{"unknown code", "1234", FallbackCompany},
		{"non numeric code", "ABC-1", FallbackCompany},
		{"empty code", "", FallbackCompany},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.code))
		})
	}
}

func TestParseCompanies(t *testing.T) {
	input := "\ufeff5909990000011#Polpharma S.A.\n\n  42 # Bayer \n42#Duplicate\n"

	r, err := ParseCompanies(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "Polpharma S.A.", r.Resolve("5909990000011"))
	assert.Equal(t, "Bayer", r.Resolve("0042"))
}

func TestParseCompanies_MalformedLine(t *testing.T) {
	_, err := ParseCompanies(strings.NewReader("123#Ok\nno separator here\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadCompanies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.txt")
	require.NoError(t, os.WriteFile(path, []byte("7#Gedeon Richter\n"), 0o644))

	r, err := LoadCompanies(path)
	require.NoError(t, err)
	assert.Equal(t, "Gedeon Richter", r.Resolve("007"))
}

func TestLoadCompanies_MissingFile(t *testing.T) {
	r, err := LoadCompanies(filepath.Join(t.TempDir(), "absent.txt"))
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	assert.Equal(t, FallbackCompany, r.Resolve("5909990000011"))
}

func TestResolve_UnknownCodeIsOtherCompany(t *testing.T) {
	r := NewResolver(map[string]string{"1": "Acme"})
	assert.Equal(t, "Other company", r.Resolve("999"))
	assert.Equal(t, "Acme", r.Resolve("0001"))
}
