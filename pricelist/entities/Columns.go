package entities

// ColumnMapping names the source headers that feed the five RawRow fields.
type ColumnMapping struct {
	Substance   string
	NameField   string
	Contents    string
	ProductCode string
	Price       string
}

// Headers returns the mapped headers in RawRow field order.
func (m ColumnMapping) Headers() []string {
	return []string{m.Substance, m.NameField, m.Contents, m.ProductCode, m.Price}
}
