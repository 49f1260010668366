package display

import (
	"fmt"
	"io"

	"github.com/0xmhha/sso-session/pkg/monitor"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/store"
)

// simpleFormatter writes one line per item.
type simpleFormatter struct {
	config Config
}

func (f *simpleFormatter) FormatRecords(w io.Writer, records []*store.Record) error {
	for _, rec := range records {
		name := rec.Name
		if name == "" {
			name = "-"
		}
		status := ""
		if rec.Revoked() {
			status = " (revoked)"
		}
		if _, err := fmt.Fprintf(w, "%s %s%s\n", rec.Hash, name, status); err != nil {
			return err
		}
	}
	return nil
}

func (f *simpleFormatter) FormatRecord(w io.Writer, rec *store.Record) error {
	if err := f.FormatRecords(w, []*store.Record{rec}); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s\n", rec.Spec)
	return err
}

func (f *simpleFormatter) FormatState(w io.Writer, hash string, state *policy.SessionState) error {
	prefix := ""
	if hash != "" {
		prefix = hash + " "
	}
	_, err := fmt.Fprintf(w, "%sstatus=%s fees=%s limits=%d\n",
		prefix,
		state.Status,
		state.FeesRemaining,
		len(state.TransferValue)+len(state.CallValue)+len(state.CallParams))
	return err
}

func (f *simpleFormatter) FormatUpdates(w io.Writer, updates []monitor.Update) error {
	for _, u := range updates {
		var err error
		switch {
		case u.Err != nil:
			_, err = fmt.Fprintf(w, "%s error=%q\n", u.Hash, u.Err.Error())
		case u.Delta.FeesSpent != nil:
			_, err = fmt.Fprintf(w, "%s status=%s fees=%s spent=%s\n",
				u.Hash, u.State.Status, u.State.FeesRemaining, u.Delta.FeesSpent)
		default:
			_, err = fmt.Fprintf(w, "%s status=%s fees=%s\n",
				u.Hash, u.State.Status, u.State.FeesRemaining)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *simpleFormatter) FormatPeriodIDs(w io.Writer, ids []uint64) error {
	for _, id := range ids {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}
