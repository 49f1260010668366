package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/monitor"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/store"
)

const timeLayout = "2006-01-02 15:04:05"

type tableFormatter struct {
	config Config
}

func (f *tableFormatter) FormatRecords(w io.Writer, records []*store.Record) error {
	if err := writeHeader(w, "Sessions", f.config.Compact); err != nil {
		return err
	}

	rows := make([][]string, len(records))
	for i, rec := range records {
		revoked := ""
		if rec.Revoked() {
			revoked = rec.RevokedAt.Format(timeLayout)
		}
		rows[i] = []string{
			rec.Hash,
			rec.Name,
			rec.Account,
			rec.Source,
			rec.CreatedAt.Format(timeLayout),
			revoked,
		}
	}

	return f.writeTable(w, []string{"Hash", "Name", "Account", "Source", "Created", "Revoked"}, rows)
}

func (f *tableFormatter) FormatRecord(w io.Writer, rec *store.Record) error {
	if err := writeHeader(w, "Session "+shortHash(rec.Hash), f.config.Compact); err != nil {
		return err
	}

	rows := [][]string{
		{"Hash", rec.Hash},
		{"Name", rec.Name},
		{"Account", rec.Account},
		{"Source", rec.Source},
		{"Created", rec.CreatedAt.Format(timeLayout)},
		{"Updated", rec.UpdatedAt.Format(timeLayout)},
	}
	if rec.Revoked() {
		rows = append(rows, []string{"Revoked", rec.RevokedAt.Format(timeLayout)})
	}
	if err := f.writeTable(w, []string{"Field", "Value"}, rows); err != nil {
		return err
	}

	var spec bytes.Buffer
	if err := json.Indent(&spec, rec.Spec, "", "  "); err != nil {
		spec.Reset()
		spec.Write(rec.Spec)
	}
	_, err := fmt.Fprintf(w, "%s\n", spec.String())
	return err
}

func (f *tableFormatter) FormatState(w io.Writer, hash string, state *policy.SessionState) error {
	title := "Session State"
	if hash != "" {
		title += " " + shortHash(hash)
	}
	if err := writeHeader(w, title, f.config.Compact); err != nil {
		return err
	}

	if err := f.writeTable(w, []string{"Field", "Value"}, [][]string{
		{"Status", state.Status.String()},
		{"Fees Remaining", formatAmount(state.FeesRemaining)},
	}); err != nil {
		return err
	}

	var rows [][]string
	for _, l := range state.TransferValue {
		rows = append(rows, []string{"transfer", l.Target.Hex(), "", "", formatAmount(l.Remaining)})
	}
	for _, l := range state.CallValue {
		rows = append(rows, []string{"call value", l.Target.Hex(), hexutil.Encode(l.Selector[:]), "", formatAmount(l.Remaining)})
	}
	for _, l := range state.CallParams {
		rows = append(rows, []string{"call param", l.Target.Hex(), hexutil.Encode(l.Selector[:]), l.Index.String(), formatAmount(l.Remaining)})
	}
	if len(rows) == 0 {
		return nil
	}

	return f.writeTable(w, []string{"Limit", "Target", "Selector", "Index", "Remaining"}, rows)
}

func (f *tableFormatter) FormatUpdates(w io.Writer, updates []monitor.Update) error {
	rows := make([][]string, len(updates))
	for i, u := range updates {
		row := []string{u.Name, shortHash(u.Hash), "", "", "", ""}
		if u.Err != nil {
			row[5] = u.Err.Error()
			rows[i] = row
			continue
		}

		row[2] = u.State.Status.String()
		if u.Delta.StatusChanged {
			row[2] = u.Delta.PreviousStatus.String() + " -> " + row[2]
		}
		row[3] = formatAmount(u.State.FeesRemaining)
		if u.Delta.FeesSpent != nil {
			row[4] = formatAmount(u.Delta.FeesSpent)
		}
		rows[i] = row
	}

	return f.writeTable(w, []string{"Name", "Hash", "Status", "Fees Remaining", "Spent", "Error"}, rows)
}

func (f *tableFormatter) FormatPeriodIDs(w io.Writer, ids []uint64) error {
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{fmt.Sprintf("%d", i), periodLabel(i), fmt.Sprintf("%d", id)}
	}
	return f.writeTable(w, []string{"#", "Limit", "Period ID"}, rows)
}

func (f *tableFormatter) writeTable(w io.Writer, header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data")
		return err
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	if err := f.writeRow(w, header, widths); err != nil {
		return err
	}

	if !f.config.Compact {
		separator := make([]string, len(header))
		for i, width := range widths {
			separator[i] = strings.Repeat("-", width)
		}
		if err := f.writeRow(w, separator, widths); err != nil {
			return err
		}
	}

	for _, row := range rows {
		if err := f.writeRow(w, row, widths); err != nil {
			return err
		}
	}

	if !f.config.Compact {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func (f *tableFormatter) writeRow(w io.Writer, cells []string, widths []int) error {
	gap := "  "
	if f.config.Compact {
		gap = " "
	}

	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteString(gap)
		}
		if i == len(cells)-1 {
			b.WriteString(cell)
			continue
		}
		fmt.Fprintf(&b, "%-*s", widths[i], cell)
	}

	_, err := fmt.Fprintln(w, b.String())
	return err
}
