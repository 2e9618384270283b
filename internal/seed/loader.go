// Package seed loads the static catalog sources the service starts from.
package seed

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/scan-and-go/db"
	"github.com/xenking/scan-and-go/internal/domain/catalog"
)

// Bundled seed file names inside db.Seed.
const (
	bundledStores   = "seed/stores.json"
	bundledProducts = "seed/products.json"
)

// Source points at the store and product documents. An empty path selects
// the copy bundled with the binary. Paths ending in ".gz" are gunzipped.
type Source struct {
	StoresFile   string
	ProductsFile string
}

// Data holds the decoded catalog documents.
type Data struct {
	Stores   []catalog.Store
	Products []catalog.Product
}

// Load reads both documents concurrently.
func Load(ctx context.Context, src Source) (*Data, error) {
	var (
		data Data
		g, _ = errgroup.WithContext(ctx)
	)
	g.Go(func() error {
		return decodeFile(open(src.StoresFile, bundledStores), &data.Stores)
	})
	g.Go(func() error {
		return decodeFile(open(src.ProductsFile, bundledProducts), &data.Products)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(data.Stores) == 0 {
		return nil, errors.New("no stores in seed data")
	}
	if len(data.Products) == 0 {
		return nil, errors.New("no products in seed data")
	}

	zctx.From(ctx).Info("Catalog seed loaded",
		zap.Int("stores", len(data.Stores)),
		zap.Int("products", len(data.Products)),
	)
	return &data, nil
}

// Catalog loads the source and builds a validated catalog from it.
func Catalog(ctx context.Context, src Source) (*catalog.Catalog, error) {
	data, err := Load(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "load seed")
	}
	c, err := catalog.New(data.Stores, data.Products)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog")
	}
	return c, nil
}

type file struct {
	name string
	open func() (io.ReadCloser, error)
}

func open(name, bundled string) file {
	if name == "" {
		return file{name: bundled, open: func() (io.ReadCloser, error) {
			return db.Seed.Open(bundled)
		}}
	}
	return file{name: name, open: func() (io.ReadCloser, error) {
		return os.Open(name)
	}}
}

func decodeFile(f file, dst any) (err error) {
	rc, err := f.open()
	if err != nil {
		return errors.Wrapf(err, "open %s", f.name)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", f.name)
		}
	}()

	var r io.Reader = rc
	if strings.EqualFold(path.Ext(f.name), ".gz") {
		zr, err := pgzip.NewReader(rc)
		if err != nil {
			return errors.Wrapf(err, "gunzip %s", f.name)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return errors.Wrapf(err, "decode %s", f.name)
	}
	return nil
}
