package migrations

import "embed"

// FS contains the embedded card ledger migrations.
//
//go:embed *.sql
var FS embed.FS
