// Package validation validates API query input and reports on the quality
// of ingested price rows.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/pricelist/entities"
)

// maxSampleCodes bounds the product code lists kept in a report
const maxSampleCodes = 10

// Dangerous patterns as strings (faster than regex for simple substring matching)
var dangerousPatterns = []string{
	"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
	"eval(", "expression(", "../", "..\\", "%2e%2e", "file://",
}

// Compile-time check to ensure DataValidatorImpl implements QueryValidator
var _ interfaces.QueryValidator = (*DataValidatorImpl)(nil)

// CompanyQuery is the input of the medicines endpoint.
type CompanyQuery struct {
	Company string `query:"company" validate:"required,max=200,safetext"`
}

// GroupQuery is the input of the group endpoint. A nil dose selects rows
// without a dose.
type GroupQuery struct {
	Substance string  `query:"substance" validate:"required,max=300,safetext"`
	Form      string  `query:"form" validate:"required,max=300,safetext"`
	Dose      *string `query:"dose" validate:"omitempty,max=200,safetext"`
}

// DataValidatorImpl implements the interfaces.QueryValidator interface
type DataValidatorImpl struct {
	validate *validator.Validate
}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.QueryValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.RegisterValidation("safetext", isSafeText); err != nil {
		panic(fmt.Sprintf("failed to register safetext validation: %v", err))
	}

	// Use query parameter names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &DataValidatorImpl{validate: v}
}

// isSafeText rejects control characters and markup or path tricks
func isSafeText(fl validator.FieldLevel) bool {
	value := fl.Field().String()

	for _, r := range value {
		if unicode.IsControl(r) {
			return false
		}
	}

	lower := strings.ToLower(value)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	return true
}

// ValidateCompany validates the company query parameter
func (v *DataValidatorImpl) ValidateCompany(company string) error {
	return v.validateStruct(CompanyQuery{Company: company})
}

// ValidateGroupQuery validates the group query parameters
func (v *DataValidatorImpl) ValidateGroupQuery(substance, form string, dose *string) error {
	return v.validateStruct(GroupQuery{Substance: substance, Form: form, Dose: dose})
}

func (v *DataValidatorImpl) validateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, describeFieldError(fe))
	}

	return errors.New(strings.Join(messages, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s is too long: maximum %s characters", fe.Field(), fe.Param())
	case "safetext":
		return fmt.Sprintf("%s contains invalid characters", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// ReportDataQuality summarizes issues in an ingested table. None of them
// stops a run; they are logged so the source lists can be checked.
func (v *DataValidatorImpl) ReportDataQuality(rows []entities.NormalizedRow, fallbackCompany string) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateProductDates: []string{},
		UnknownCompanyCodes:   []string{},
	}

	seen := make(map[string]int)
	unknownCodes := make(map[string]bool)

	for _, row := range rows {
		code := strings.TrimSpace(row.ProductCode)

		if code == "" {
			report.RowsWithoutProductCode++
		} else {
			seen[code+"@"+row.Date.Format("2006-01-02")]++
		}

		if row.Company == fallbackCompany {
			report.UnknownCompanyRows++
			if code != "" && !unknownCodes[code] && len(report.UnknownCompanyCodes) < maxSampleCodes {
				unknownCodes[code] = true
				report.UnknownCompanyCodes = append(report.UnknownCompanyCodes, code)
			}
		}

		if row.Price <= 0 {
			report.NonPositivePrices++
		}
	}

	for key, count := range seen {
		if count > 1 {
			report.DuplicateProductDates = append(report.DuplicateProductDates, key)
		}
	}
	sort.Strings(report.DuplicateProductDates)

	return report
}
