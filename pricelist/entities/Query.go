package entities

// Medicine is one distinct product line sold by a company.
type Medicine struct {
	Name      string  `json:"name"`
	Substance string  `json:"substance"`
	Form      string  `json:"form"`
	Dose      *string `json:"dose"`
}

// PricePoint is one stored row as returned by the group query.
type PricePoint struct {
	Company      string  `json:"company"`
	Name         string  `json:"name"`
	Substance    string  `json:"substance"`
	Form         string  `json:"form"`
	Dose         *string `json:"dose"`
	Contents     string  `json:"contents"`
	ProductCode  string  `json:"product_code"`
	Price        float64 `json:"price"`
	Date         string  `json:"date"` // YYYY-MM-DD
	Amount       float64 `json:"amount"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
}

// ProductBucket holds the price history of one product code, oldest first.
type ProductBucket struct {
	ProductCode string       `json:"product_code"`
	Rows        []PricePoint `json:"rows"`
}

// Latest returns the most recent price point of the bucket.
func (b ProductBucket) Latest() PricePoint {
	return b.Rows[len(b.Rows)-1]
}
