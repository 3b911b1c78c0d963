package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const ProductsPath = "/api/products/data/getwithstatus"

type productDTO struct {
	ID           string          `json:"_id"`
	UID          tagUID          `json:"uid"`
	Status       string          `json:"status"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

// tagUID accepts both "uid": "123" and "uid": 123 from the backend.
type tagUID string

func (u *tagUID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*u = tagUID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "uid must be a string or a number")
	}
	*u = tagUID(n.String())
	return nil
}

func (d productDTO) toDomain() domain.Product {
	return domain.Product{
		UID:          string(d.UID),
		CatalogID:    d.ID,
		Name:         d.Name,
		SellingPrice: d.SellingPrice,
		Status:       domain.ProductStatus(d.Status),
	}
}

// Loader fetches the product list from the catalog service.
type Loader struct {
	client *http.Client
	url    string
	log    *zap.Logger
	sfg    singleflight.Group // concurrent operator retries share one request
}

func NewLoader(client *http.Client, baseURL string, log *zap.Logger) *Loader {
	return &Loader{
		client: client,
		url:    strings.TrimRight(baseURL, "/") + ProductsPath,
		log:    log,
	}
}

// Load performs a single fetch and builds a Snapshot of the active products.
// Every failure wraps domain.ErrCatalogUnavailable; Load never retries.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	v, err, shared := l.sfg.Do("catalog", func() (interface{}, error) {
		return l.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		l.log.Debug("catalog load shared with concurrent caller")
	}
	return v.(*Snapshot), nil
}

func (l *Loader) fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrCatalogUnavailable, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrCatalogUnavailable, "GET %s: %v", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(domain.ErrCatalogUnavailable, "server returned %d", resp.StatusCode)
	}

	var dtos []productDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, errors.Wrapf(domain.ErrCatalogUnavailable, "decode products: %v", err)
	}

	products := make([]domain.Product, 0, len(dtos))
	for _, d := range dtos {
		p := d.toDomain()
		if p.SellingPrice.IsNegative() {
			l.log.Warn("skipping product with negative price",
				zap.String("id", p.CatalogID),
				zap.String("uid", p.UID),
				zap.String("price", p.SellingPrice.String()))
			continue
		}
		products = append(products, p)
	}
	snapshot := NewSnapshot(products)
	l.log.Info("catalog loaded",
		zap.Int("received", len(dtos)),
		zap.Int("active", snapshot.Len()))
	return snapshot, nil
}
