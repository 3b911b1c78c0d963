package catalog

import (
	"sort"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
)

// Snapshot is the read-only uid -> product index built once per boot.
// It is never mutated after NewSnapshot returns, so it can be shared
// between the scanner goroutine and the controller without locking.
type Snapshot struct {
	byUID map[string]domain.Product
}

// NewSnapshot indexes the active products by tag uid. Inactive products,
// products without a uid and products with a negative price are skipped.
// A later duplicate uid replaces an earlier one.
func NewSnapshot(products []domain.Product) *Snapshot {
	byUID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		if !p.IsActive() || p.UID == "" || p.SellingPrice.IsNegative() {
			continue
		}
		byUID[p.UID] = p
	}
	return &Snapshot{byUID: byUID}
}

func (s *Snapshot) Lookup(uid string) (domain.Product, error) {
	p, ok := s.byUID[uid]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *Snapshot) Len() int {
	return len(s.byUID)
}

// Products returns every indexed product ordered by name, then uid.
func (s *Snapshot) Products() []domain.Product {
	products := make([]domain.Product, 0, len(s.byUID))
	for _, p := range s.byUID {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].UID < products[j].UID
	})
	return products
}
