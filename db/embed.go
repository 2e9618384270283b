// Package db provides the embedded database schema and catalog seed files.
package db

import "embed"

// Schema contains the DDL statements for all order tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Seed holds the catalog bundled with the binary: seed/stores.json and
// seed/products.json.
//
//go:embed seed/*.json
var Seed embed.FS
