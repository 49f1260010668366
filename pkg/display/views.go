package display

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/0xmhha/sso-session/pkg/monitor"
	"github.com/0xmhha/sso-session/pkg/policy"
	"github.com/0xmhha/sso-session/pkg/store"
)

// JSON shapes. Integers are decimal strings so uint256 values survive
// JavaScript consumers.

type limitView struct {
	Target    string `json:"target"`
	Selector  string `json:"selector,omitempty"`
	Index     string `json:"index,omitempty"`
	Remaining string `json:"remaining"`
}

type stateView struct {
	Hash          string      `json:"hash,omitempty"`
	Status        string      `json:"status"`
	FeesRemaining string      `json:"feesRemaining"`
	TransferValue []limitView `json:"transferValue"`
	CallValue     []limitView `json:"callValue"`
	CallParams    []limitView `json:"callParams"`
}

type updateView struct {
	Timestamp      time.Time  `json:"timestamp"`
	Hash           string     `json:"hash"`
	Name           string     `json:"name,omitempty"`
	Account        string     `json:"account,omitempty"`
	State          *stateView `json:"state,omitempty"`
	FeesSpent      string     `json:"feesSpent,omitempty"`
	StatusChanged  bool       `json:"statusChanged,omitempty"`
	PreviousStatus string     `json:"previousStatus,omitempty"`
	Error          string     `json:"error,omitempty"`
}

type periodView struct {
	Limit    string `json:"limit"`
	PeriodID uint64 `json:"periodId"`
}

type recordView struct {
	Hash      string          `json:"hash"`
	Name      string          `json:"name,omitempty"`
	Account   string          `json:"account,omitempty"`
	Source    string          `json:"source,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	RevokedAt *time.Time      `json:"revokedAt,omitempty"`
	Spec      json.RawMessage `json:"spec,omitempty"`
}

func newRecordView(rec *store.Record, withSpec bool) recordView {
	v := recordView{
		Hash:      rec.Hash,
		Name:      rec.Name,
		Account:   rec.Account,
		Source:    rec.Source,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		RevokedAt: rec.RevokedAt,
	}
	if withSpec {
		v.Spec = rec.Spec
	}
	return v
}

func newStateView(hash string, s *policy.SessionState) *stateView {
	if s == nil {
		return nil
	}
	return &stateView{
		Hash:          hash,
		Status:        s.Status.String(),
		FeesRemaining: s.FeesRemaining.String(),
		TransferValue: newLimitViews(s.TransferValue, false),
		CallValue:     newLimitViews(s.CallValue, true),
		CallParams:    newLimitViews(s.CallParams, true),
	}
}

func newLimitViews(in []policy.LimitState, call bool) []limitView {
	out := make([]limitView, len(in))
	for i, l := range in {
		out[i] = limitView{Target: l.Target.Hex(), Remaining: l.Remaining.String()}
		if call {
			out[i].Selector = hexutil.Encode(l.Selector[:])
			if l.Index != nil && l.Index.Sign() != 0 {
				out[i].Index = l.Index.String()
			}
		}
	}
	return out
}

func newUpdateView(u monitor.Update) updateView {
	v := updateView{
		Timestamp:     u.Timestamp,
		Hash:          u.Hash,
		Name:          u.Name,
		State:         newStateView("", u.State),
		StatusChanged: u.Delta.StatusChanged,
	}
	if u.Account != (common.Address{}) {
		v.Account = u.Account.Hex()
	}
	if u.Delta.FeesSpent != nil {
		v.FeesSpent = u.Delta.FeesSpent.String()
	}
	if u.Delta.StatusChanged {
		v.PreviousStatus = u.Delta.PreviousStatus.String()
	}
	if u.Err != nil {
		v.Error = u.Err.Error()
	}
	return v
}

func newPeriodViews(ids []uint64) []periodView {
	out := make([]periodView, len(ids))
	for i, id := range ids {
		out[i] = periodView{Limit: periodLabel(i), PeriodID: id}
	}
	return out
}
