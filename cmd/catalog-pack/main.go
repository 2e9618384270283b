// Command catalog-pack validates store and product seed documents and writes
// them gzipped, ready for SCANGO_CATALOG_STORES_FILE and
// SCANGO_CATALOG_PRODUCTS_FILE.
package main

import (
	"context"
	"flag"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/scan-and-go/internal/seed"
)

func main() {
	var (
		stores   = flag.String("stores", "", "stores JSON file (bundled data when empty)")
		products = flag.String("products", "", "products JSON file (bundled data when empty)")
		out      = flag.String("out", "dist/seed", "output directory")
	)
	flag.Parse()

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		ctx = zctx.Base(ctx, lg)
		packed, err := seed.Pack(ctx, seed.Source{StoresFile: *stores, ProductsFile: *products}, *out)
		if err != nil {
			return errors.Wrap(err, "pack catalog")
		}
		lg.Info("Done", zap.String("stores", packed.StoresFile), zap.String("products", packed.ProductsFile))
		return nil
	})
}
