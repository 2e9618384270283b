// Package catalog holds the read-only store and product reference data.
package catalog

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var (
	// ErrStoreNotFound is returned when a requested store does not exist.
	ErrStoreNotFound = errors.New("store not found")
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
)

// Store is a physical shop with its UPI collection account.
type Store struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UPIID         string `json:"upiId"`
	UPIQRTemplate string `json:"upiQrTemplate"`
}

// Product is a scannable catalog item.
type Product struct {
	ID       string          `json:"id"`
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

// Filter narrows ListProducts. Zero value matches everything.
type Filter struct {
	Category string
}

// barcodeFPR is the false positive rate of the barcode prefilter.
const barcodeFPR = 0.001

// Catalog is an immutable in-memory index over stores and products.
// It is safe for concurrent use.
type Catalog struct {
	stores      []Store
	storeByID   map[string]int
	products    []Product
	productByID map[string]int
	byBarcode   map[string]int
	barcodes    *bloom.BloomFilter
}

// New validates the seed data and builds the lookup indexes.
func New(stores []Store, products []Product) (*Catalog, error) {
	c := &Catalog{
		stores:      append([]Store(nil), stores...),
		storeByID:   make(map[string]int, len(stores)),
		products:    append([]Product(nil), products...),
		productByID: make(map[string]int, len(products)),
		byBarcode:   make(map[string]int, len(products)),
		barcodes:    bloom.NewWithEstimates(uint(max(len(products), 1)), barcodeFPR),
	}

	for i, s := range c.stores {
		if s.ID == "" {
			return nil, errors.Errorf("store #%d: empty id", i)
		}
		if _, dup := c.storeByID[s.ID]; dup {
			return nil, errors.Errorf("duplicate store id %q", s.ID)
		}
		c.storeByID[s.ID] = i
	}

	for i, p := range c.products {
		switch {
		case p.ID == "":
			return nil, errors.Errorf("product #%d: empty id", i)
		case p.Price.IsNegative():
			return nil, errors.Errorf("product %q: negative price %s", p.ID, p.Price)
		case p.Barcode == "":
			return nil, errors.Errorf("product %q: empty barcode", p.ID)
		}
		if _, dup := c.productByID[p.ID]; dup {
			return nil, errors.Errorf("duplicate product id %q", p.ID)
		}
		c.productByID[p.ID] = i

		if _, dup := c.byBarcode[p.Barcode]; dup {
			return nil, errors.Errorf("duplicate barcode %q (product %q)", p.Barcode, p.ID)
		}
		c.byBarcode[p.Barcode] = i
		c.barcodes.AddString(p.Barcode)
	}

	return c, nil
}

// ListStores returns every store in seed order.
func (c *Catalog) ListStores() []Store {
	return append([]Store(nil), c.stores...)
}

// GetStore returns a store by ID.
func (c *Catalog) GetStore(id string) (Store, error) {
	i, ok := c.storeByID[id]
	if !ok {
		return Store{}, ErrStoreNotFound
	}
	return c.stores[i], nil
}

// ListProducts returns products matching the filter in seed order.
// Category matching is case-insensitive.
func (c *Catalog) ListProducts(f Filter) []Product {
	if f.Category == "" {
		return append([]Product(nil), c.products...)
	}
	return lo.Filter(c.products, func(p Product, _ int) bool {
		return strings.EqualFold(p.Category, f.Category)
	})
}

// GetProduct returns a product by ID.
func (c *Catalog) GetProduct(id string) (Product, error) {
	i, ok := c.productByID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

// GetProductByBarcode returns the product carrying the given barcode.
func (c *Catalog) GetProductByBarcode(code string) (Product, error) {
	if !c.barcodes.TestString(code) {
		return Product{}, ErrProductNotFound
	}
	i, ok := c.byBarcode[code]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return c.products[i], nil
}

// SearchProducts returns products whose name, brand or category contains
// query, ignoring case. An empty query matches nothing.
func (c *Catalog) SearchProducts(query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Product{}
	}
	return lo.Filter(c.products, func(p Product, _ int) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) ||
			strings.Contains(strings.ToLower(p.Category), q)
	})
}

// Len reports the number of stores and products loaded.
func (c *Catalog) Len() (stores, products int) {
	return len(c.stores), len(c.products)
}
