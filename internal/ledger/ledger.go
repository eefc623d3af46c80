// Package ledger records which media have already been reposted.
//
// Every backend behaves as a set: Insert of a known identifier is a no-op, so
// an identifier appears at most once. Load returns identifiers in insertion
// order.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"igbot/pkg/config"
	"igbot/pkg/social"
)

// Ledger is the durable set of reposted media identifiers
type Ledger interface {
	Contains(ctx context.Context, id social.MediaID) (bool, error)
	Insert(ctx context.Context, id social.MediaID) error
	Load(ctx context.Context) ([]social.MediaID, error)
	Flush(ctx context.Context) error
	Close() error
}

// Open returns the backend selected in cfg. postedPath is the flat file used
// by the file backend.
func Open(cfg config.LedgerConfig, postedPath string) (Ledger, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "file":
		return OpenFile(postedPath)
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}
