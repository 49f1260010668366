// Package display renders registry records, on-chain session state,
// monitor updates and period IDs as tables, JSON or one-line text.
package display

import (
	"io"

	"github.com/0xmhha/sso-session/pkg/monitor"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/store"
)

// Format represents an output format.
type Format string

const (
	// FormatAuto picks table on a terminal and JSON otherwise.
	FormatAuto Format = "auto"

	FormatTable  Format = "table"
	FormatJSON   Format = "json"
	FormatSimple Format = "simple"
)

// Formatter writes session data in one output format.
type Formatter interface {
	// FormatRecords writes a registry listing.
	FormatRecords(w io.Writer, records []*store.Record) error

	// FormatRecord writes one record including its session config.
	FormatRecord(w io.Writer, rec *store.Record) error

	// FormatState writes the on-chain state of one session.
	FormatState(w io.Writer, hash string, state *policy.SessionState) error

	// FormatUpdates writes one round of monitor results.
	FormatUpdates(w io.Writer, updates []monitor.Update) error

	// FormatPeriodIDs writes period IDs in payload order
	// (fee, value, then one per constraint).
	FormatPeriodIDs(w io.Writer, ids []uint64) error
}

// Config contains formatter configuration.
type Config struct {
	// Format specifies the output format. Default: FormatTable.
	Format Format

	// Compact enables compact output (less whitespace).
	Compact bool
}
