package entities

// GroupKey identifies rows describing the same product line: identical
// substance, form and dose. A missing dose is distinct from an empty one.
type GroupKey struct {
	Substance string
	Form      string
	Dose      string
	HasDose   bool
}

func NewGroupKey(substance, form string, dose *string) GroupKey {
	key := GroupKey{Substance: substance, Form: form}
	if dose != nil {
		key.Dose = *dose
		key.HasDose = true
	}
	return key
}

// DosePtr returns the dose as a nullable value.
func (k GroupKey) DosePtr() *string {
	if !k.HasDose {
		return nil
	}
	d := k.Dose
	return &d
}
