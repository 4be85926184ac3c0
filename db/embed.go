// Package db provides the embedded database schema and default seed data.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Seed is the default seed data set used by cmd/seed-db.
//
//go:embed seed/catalog.json
var Seed []byte
