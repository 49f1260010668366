package session

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/sso-session/pkg/abicodec"
	"github.com/0xmhha/sso-session/pkg/policy"
)

var (
	transferTarget = common.HexToAddress("0xdeBbD4CE2Bd6BD869D3ac93666A0D5F4fc06FC72")
	callTarget     = common.HexToAddress("0x111C3E89Ce80e62EE88318C2804920D4c96f92bb")
	transferSel    = [4]byte{0xa9, 0x05, 0x9c, 0xbb}
)

func goldenSpec() *policy.SessionSpec {
	return &policy.SessionSpec{
		Signer:    common.HexToAddress("0x9BbC92a33F193174bf6Cc09c4b4055500d972479"),
		ExpiresAt: big.NewInt(1749040108),
		FeeLimit:  policy.Lifetime(big.NewInt(100000000000000000)),
		TransferPolicies: []policy.TransferSpec{{
			Target:         transferTarget,
			MaxValuePerUse: big.NewInt(10000000000000000),
			ValueLimit:     policy.Unlimited(),
		}},
	}
}

// mixedSpec has one transfer policy and one call policy with two constraints.
func mixedSpec() *policy.SessionSpec {
	spec := goldenSpec()
	spec.FeeLimit = policy.Allowance(big.NewInt(1e15), big.NewInt(3600))
	spec.CallPolicies = []policy.CallSpec{{
		Target:         callTarget,
		Selector:       transferSel,
		MaxValuePerUse: big.NewInt(0),
		ValueLimit:     policy.Lifetime(big.NewInt(0)),
		Constraints: []policy.Constraint{
			{Condition: policy.ConditionEqual, Index: 0, Limit: policy.Unlimited()},
			{Condition: policy.ConditionLessEqual, Index: 1, Limit: policy.Allowance(big.NewInt(100), big.NewInt(86400))},
		},
	}}
	return spec
}

func u64(v uint64) *uint64 { return &v }

func TestHashGolden(t *testing.T) {
	hash, err := Hash(goldenSpec())
	require.NoError(t, err)
	assert.Equal(t, "0xc424e4a2319b9e449d85c13d6511e63eb383fb975dc68a96d5d7fcdcbbce675a", hash.Hex())

	again, err := Hash(goldenSpec())
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}

func TestHashSensitivity(t *testing.T) {
	base, err := Hash(mixedSpec())
	require.NoError(t, err)

	mutations := map[string]func(*policy.SessionSpec){
		"signer":    func(s *policy.SessionSpec) { s.Signer[19] ^= 1 },
		"expiresAt": func(s *policy.SessionSpec) { s.ExpiresAt.Add(s.ExpiresAt, big.NewInt(1)) },
		"fee type":  func(s *policy.SessionSpec) { s.FeeLimit.LimitType = policy.LimitLifetime },
		"selector":  func(s *policy.SessionSpec) { s.CallPolicies[0].Selector[3] ^= 1 },
		"condition": func(s *policy.SessionSpec) { s.CallPolicies[0].Constraints[0].Condition = policy.ConditionGreater },
		"ref value": func(s *policy.SessionSpec) { s.CallPolicies[0].Constraints[0].RefValue[0] = 1 },
		"constraint order": func(s *policy.SessionSpec) {
			c := s.CallPolicies[0].Constraints
			c[0], c[1] = c[1], c[0]
		},
		"transfer value": func(s *policy.SessionSpec) {
			s.TransferPolicies[0].MaxValuePerUse = big.NewInt(1)
		},
	}

	seen := map[common.Hash]string{base: "base"}
	for name, mutate := range mutations {
		spec := mixedSpec()
		mutate(spec)

		hash, err := Hash(spec)
		require.NoError(t, err, name)
		prev, dup := seen[hash]
		assert.False(t, dup, "%s collides with %s", name, prev)
		seen[hash] = name
	}
}

func TestHashErrors(t *testing.T) {
	_, err := Hash(nil)
	assert.ErrorIs(t, err, ErrMissingSpec)

	spec := goldenSpec()
	spec.ExpiresAt = nil
	_, err = Hash(spec)
	assert.ErrorIs(t, err, abicodec.ErrMissingValue)
}

func TestPeriodIDs(t *testing.T) {
	const ts = uint64(1714500000)
	sel := transferSel

	tests := []struct {
		name     string
		target   common.Address
		selector *[4]byte
		want     []uint64
		wantErr  error
	}{
		{
			name:   "transfer",
			target: transferTarget,
			want:   []uint64{ts / 3600, 0},
		},
		{
			name:     "call with constraints",
			target:   callTarget,
			selector: &sel,
			want:     []uint64{ts / 3600, 0, 0, ts / 86400},
		},
		{
			name:    "unlisted transfer target",
			target:  common.HexToAddress("0x01"),
			wantErr: ErrNoMatchingPolicy,
		},
		{
			name:     "call to transfer-only target",
			target:   transferTarget,
			selector: &sel,
			wantErr:  ErrNoMatchingPolicy,
		},
		{
			name:     "unknown selector",
			target:   callTarget,
			selector: &[4]byte{1, 2, 3, 4},
			wantErr:  ErrNoMatchingPolicy,
		},
		{
			name:    "plain transfer to call-only target",
			target:  callTarget,
			wantErr: ErrNoMatchingPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodIDs(mixedSpec(), tt.target, tt.selector, u64(ts))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodIDsAllowanceBucket(t *testing.T) {
	spec := goldenSpec()
	spec.TransferPolicies[0].ValueLimit = policy.Allowance(big.NewInt(1), big.NewInt(3600))

	got, err := PeriodIDs(spec, transferTarget, nil, u64(1714500000))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 476250}, got)
}

func TestPeriodIDsLifetimeIgnoresTimestamp(t *testing.T) {
	for _, ts := range []uint64{0, 1, 1714500000, ^uint64(0)} {
		got, err := PeriodIDs(goldenSpec(), transferTarget, nil, u64(ts))
		require.NoError(t, err)
		assert.Equal(t, []uint64{0, 0}, got)
	}
}

func TestPeriodIDsFirstMatchWins(t *testing.T) {
	spec := goldenSpec()
	spec.TransferPolicies = append(spec.TransferPolicies, policy.TransferSpec{
		Target:         transferTarget,
		MaxValuePerUse: big.NewInt(1),
		ValueLimit:     policy.Allowance(big.NewInt(1), big.NewInt(10)),
	})

	got, err := PeriodIDs(spec, transferTarget, nil, u64(1000))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0}, got)
}

func TestPeriodIDsDefaultsToNow(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Unix(7200, 0) }
	t.Cleanup(func() { now = orig })

	got, err := PeriodIDs(mixedSpec(), transferTarget, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 0}, got)
}

func TestPeriodIDsZeroPeriod(t *testing.T) {
	spec := goldenSpec()
	spec.FeeLimit = policy.UsageLimit{LimitType: policy.LimitAllowance, Limit: big.NewInt(1), Period: big.NewInt(0)}

	_, err := PeriodIDs(spec, transferTarget, nil, u64(100))
	assert.ErrorIs(t, err, ErrZeroPeriod)
}

func TestPeriodIDsClampsWidePeriod(t *testing.T) {
	wide := new(big.Int).Lsh(big.NewInt(1), 100)

	spec := goldenSpec()
	spec.FeeLimit = policy.Allowance(big.NewInt(1), wide)

	got, err := PeriodIDs(spec, transferTarget, nil, u64(^uint64(0)))
	require.NoError(t, err)
	// Clamped to MaxUint64, so MaxUint64 / MaxUint64.
	assert.Equal(t, []uint64{1, 0}, got)

	got, err = PeriodIDs(spec, transferTarget, nil, u64(1714500000))
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0}, got)
}

func TestSelector(t *testing.T) {
	sel, err := Selector(nil)
	require.NoError(t, err)
	assert.Nil(t, sel)

	sel, err = Selector([]byte{})
	require.NoError(t, err)
	assert.Nil(t, sel)

	_, err = Selector([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortCallData)

	sel, err = Selector([]byte{0xa9, 0x05, 0x9c, 0xbb, 0xff})
	require.NoError(t, err)
	assert.Equal(t, transferSel, *sel)
}

func TestEncodeSessionTx(t *testing.T) {
	callData := append(transferSel[:], make([]byte, 64)...)

	payload, err := EncodeSessionTx(mixedSpec(), callTarget, callData, u64(1714500000))
	require.NoError(t, err)

	spec, periods, err := abicodec.DecodeSessionTxPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, policy.ConfigFromSpec(mixedSpec()), policy.ConfigFromSpec(spec))
	assert.Equal(t, []uint64{1714500000 / 3600, 0, 0, 1714500000 / 86400}, periods)

	_, err = EncodeSessionTx(mixedSpec(), transferTarget, callData, u64(1))
	assert.ErrorIs(t, err, ErrNoMatchingPolicy)

	_, err = EncodeSessionTx(mixedSpec(), callTarget, []byte{1}, u64(1))
	assert.ErrorIs(t, err, ErrShortCallData)
}

func TestEncodeSessionTxTransfer(t *testing.T) {
	payload, err := EncodeSessionTx(goldenSpec(), transferTarget, nil, u64(5))
	require.NoError(t, err)

	_, periods, err := abicodec.DecodeSessionTxPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 0}, periods)
}
