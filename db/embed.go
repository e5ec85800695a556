// Package db provides the embedded database schema and seed data.
package db

import "embed"

// Schema contains the DDL statements for all application tables. Every
// statement is idempotent.
//
//go:embed migrations/001_schema.sql
var Schema string

// Seed holds the default customers.json and products.json fixtures.
//
//go:embed seed/*.json
var Seed embed.FS
