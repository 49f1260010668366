package display

import (
	"encoding/json"
	"io"

	"github.com/0xmhha/sso-session/pkg/monitor"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/store"
)

type jsonFormatter struct {
	config Config
}

func (f *jsonFormatter) encode(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	if !f.config.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

func (f *jsonFormatter) FormatRecords(w io.Writer, records []*store.Record) error {
	views := make([]recordView, len(records))
	for i, rec := range records {
		views[i] = newRecordView(rec, false)
	}
	return f.encode(w, views)
}

func (f *jsonFormatter) FormatRecord(w io.Writer, rec *store.Record) error {
	return f.encode(w, newRecordView(rec, true))
}

func (f *jsonFormatter) FormatState(w io.Writer, hash string, state *policy.SessionState) error {
	return f.encode(w, newStateView(hash, state))
}

func (f *jsonFormatter) FormatUpdates(w io.Writer, updates []monitor.Update) error {
	views := make([]updateView, len(updates))
	for i, u := range updates {
		views[i] = newUpdateView(u)
	}
	return f.encode(w, views)
}

func (f *jsonFormatter) FormatPeriodIDs(w io.Writer, ids []uint64) error {
	return f.encode(w, newPeriodViews(ids))
}
