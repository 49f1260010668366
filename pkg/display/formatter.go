package display

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"golang.org/x/term"
)

// New creates a formatter. FormatAuto must be resolved first; it falls
// back to table here.
func New(cfg Config) Formatter {
	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatSimple:
		return &simpleFormatter{config: cfg}
	default:
		return &tableFormatter{config: cfg}
	}
}

// ParseFormat validates a format name. The empty string means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatTable, FormatJSON, FormatSimple:
		return f, nil
	default:
		return "", fmt.Errorf("unknown display format %q", s)
	}
}

// Resolve replaces FormatAuto with table when out is a terminal and JSON
// otherwise. Other formats are returned unchanged.
func Resolve(f Format, out *os.File) Format {
	if f != FormatAuto && f != "" {
		return f
	}
	if out != nil && term.IsTerminal(int(out.Fd())) {
		return FormatTable
	}
	return FormatJSON
}

// periodLabel names the limit a period ID belongs to.
func periodLabel(i int) string {
	switch i {
	case 0:
		return "fee"
	case 1:
		return "value"
	default:
		return fmt.Sprintf("constraint[%d]", i-2)
	}
}

// formatAmount writes an integer with thousand separators.
func formatAmount(v *big.Int) string {
	if v == nil {
		return "-"
	}

	s := v.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// shortHash abbreviates a 0x hash to 0x1234...abcd.
func shortHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:6] + "..." + h[len(h)-4:]
}

func writeHeader(w io.Writer, title string, compact bool) error {
	if compact {
		_, err := fmt.Fprintf(w, "%s\n", title)
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	return err
}
