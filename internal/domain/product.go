package domain

import "github.com/shopspring/decimal"

type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is a catalog record keyed by the uid written on its RFID tag.
// CatalogID is the backend record id and is what the transaction service expects.
type Product struct {
	UID          string          `json:"uid"`
	CatalogID    string          `json:"catalog_id"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Status       ProductStatus   `json:"status"`
}

func (p Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
