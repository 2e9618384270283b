package seed

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/scan-and-go/internal/domain/catalog"
)

// Pack validates src as a catalog and writes it to dir as stores.json.gz and
// products.json.gz. It returns a Source pointing at the written files.
func Pack(ctx context.Context, src Source, dir string) (Source, error) {
	data, err := Load(ctx, src)
	if err != nil {
		return Source{}, errors.Wrap(err, "load seed")
	}
	if _, err := catalog.New(data.Stores, data.Products); err != nil {
		return Source{}, errors.Wrap(err, "build catalog")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Source{}, errors.Wrap(err, "create output dir")
	}

	out := Source{
		StoresFile:   filepath.Join(dir, "stores.json.gz"),
		ProductsFile: filepath.Join(dir, "products.json.gz"),
	}
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return writeGzip(out.StoresFile, data.Stores) })
	g.Go(func() error { return writeGzip(out.ProductsFile, data.Products) })
	if err := g.Wait(); err != nil {
		return Source{}, err
	}

	zctx.From(ctx).Info("Catalog packed",
		zap.String("stores", out.StoresFile),
		zap.String("products", out.ProductsFile),
	)
	return out, nil
}

func writeGzip(name string, v any) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", name)
		}
	}()

	zw := pgzip.NewWriter(f)
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "gzip %s", name)
	}
	return nil
}
