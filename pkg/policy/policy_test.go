package policy

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "signer": "0x9BbC92a33F193174bf6Cc09c4b4055500d972479",
  "expiresAt": "1749040108",
  "feeLimit": {"limitType": 1, "limit": "100000000000000000", "period": "0"},
  "callPolicies": [
    {
      "target": "0x111C3E89Ce80e62EE88318C2804920D4c96f92bb",
      "selector": "0xa9059cbb",
      "maxValuePerUse": "0",
      "valueLimit": {"limitType": 0, "limit": "0", "period": "0"},
      "constraints": [
        {
          "condition": 1,
          "index": "4",
          "refValue": "0x0000000000000000000000006cc8cf7f6b488c58aa909b77e6e8bac6d2c7c9c8",
          "limit": {"limitType": 2, "limit": "0x3e8", "period": "3600"}
        }
      ]
    }
  ],
  "transferPolicies": [
    {
      "target": "0xdeBbD4CE2Bd6BD869D3ac93666A0D5F4fc06FC72",
      "maxValuePerUse": "10000000000000000",
      "valueLimit": {"limitType": 0, "limit": "0", "period": "0"}
    }
  ]
}`

func TestLimitTypeFromUint8(t *testing.T) {
	tests := []struct {
		in      uint8
		want    LimitType
		wantErr bool
	}{
		{0, LimitUnlimited, false},
		{1, LimitLifetime, false},
		{2, LimitAllowance, false},
		{3, 0, true},
		{255, 0, true},
	}

	for _, tt := range tests {
		got, err := LimitTypeFromUint8(tt.in)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrInvalidLimitType)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestConditionFromUint8(t *testing.T) {
	for v := uint8(0); v <= 6; v++ {
		c, err := ConditionFromUint8(v)
		require.NoError(t, err)
		assert.Equal(t, v, uint8(c))
		assert.NotContains(t, c.String(), "Condition(")
	}

	_, err := ConditionFromUint8(7)
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestStatus(t *testing.T) {
	s, err := StatusFromUint8(1)
	require.NoError(t, err)
	assert.True(t, s.IsActive())
	assert.True(t, s.IsInitialized())
	assert.False(t, s.IsClosed())

	s, err = StatusFromUint8(2)
	require.NoError(t, err)
	assert.True(t, s.IsClosed())
	assert.False(t, s.IsActive())

	s, err = StatusFromUint8(0)
	require.NoError(t, err)
	assert.False(t, s.IsInitialized())

	_, err = StatusFromUint8(3)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseSessionConfig(t *testing.T) {
	spec, err := ParseSessionConfig([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x9BbC92a33F193174bf6Cc09c4b4055500d972479"), spec.Signer)
	assert.Equal(t, int64(1749040108), spec.ExpiresAt.Int64())
	assert.Equal(t, LimitLifetime, spec.FeeLimit.LimitType)
	assert.Equal(t, "100000000000000000", spec.FeeLimit.Limit.String())

	require.Len(t, spec.CallPolicies, 1)
	call := spec.CallPolicies[0]
	assert.Equal(t, [4]byte{0xa9, 0x05, 0x9c, 0xbb}, call.Selector)
	require.Len(t, call.Constraints, 1)
	assert.Equal(t, ConditionEqual, call.Constraints[0].Condition)
	assert.Equal(t, uint64(4), call.Constraints[0].Index)
	assert.Equal(t, int64(1000), call.Constraints[0].Limit.Limit.Int64())
	assert.Equal(t, int64(3600), call.Constraints[0].Limit.Period.Int64())

	require.Len(t, spec.TransferPolicies, 1)
	assert.Equal(t, "10000000000000000", spec.TransferPolicies[0].MaxValuePerUse.String())
}

func TestParseSessionConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "bad json",
			doc:     `{"signer":`,
			wantErr: ErrInvalidJSON,
		},
		{
			name:    "unknown field",
			doc:     `{"signer":"0x9BbC92a33F193174bf6Cc09c4b4055500d972479","bogus":1}`,
			wantErr: ErrInvalidJSON,
		},
		{
			name:    "bad signer",
			doc:     `{"signer":"0x1234","expiresAt":"1","feeLimit":{"limitType":0,"limit":"0","period":"0"}}`,
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "empty number",
			doc:     `{"signer":"0x9BbC92a33F193174bf6Cc09c4b4055500d972479","expiresAt":"","feeLimit":{"limitType":0,"limit":"0","period":"0"}}`,
			wantErr: ErrInvalidNumber,
		},
		{
			name:    "limit type out of range",
			doc:     `{"signer":"0x9BbC92a33F193174bf6Cc09c4b4055500d972479","expiresAt":"1","feeLimit":{"limitType":3,"limit":"0","period":"0"}}`,
			wantErr: ErrInvalidLimitType,
		},
		{
			name:    "allowance without period",
			doc:     `{"signer":"0x9BbC92a33F193174bf6Cc09c4b4055500d972479","expiresAt":"1","feeLimit":{"limitType":2,"limit":"5","period":"0"}}`,
			wantErr: ErrZeroPeriod,
		},
		{
			name:    "zero signer",
			doc:     `{"signer":"0x0000000000000000000000000000000000000000","expiresAt":"1","feeLimit":{"limitType":0,"limit":"0","period":"0"}}`,
			wantErr: ErrZeroSigner,
		},
		{
			name: "short selector",
			doc: `{"signer":"0x9BbC92a33F193174bf6Cc09c4b4055500d972479","expiresAt":"1","feeLimit":{"limitType":0,"limit":"0","period":"0"},
				"callPolicies":[{"target":"0x111C3E89Ce80e62EE88318C2804920D4c96f92bb","selector":"0xa905","maxValuePerUse":"0",
				"valueLimit":{"limitType":0,"limit":"0","period":"0"},"constraints":[]}]}`,
			wantErr: ErrInvalidSelector,
		},
		{
			name: "short ref value",
			doc: `{"signer":"0x9BbC92a33F193174bf6Cc09c4b4055500d972479","expiresAt":"1","feeLimit":{"limitType":0,"limit":"0","period":"0"},
				"callPolicies":[{"target":"0x111C3E89Ce80e62EE88318C2804920D4c96f92bb","selector":"0xa9059cbb","maxValuePerUse":"0",
				"valueLimit":{"limitType":0,"limit":"0","period":"0"},
				"constraints":[{"condition":1,"index":"0","refValue":"0x6cc8cf7f6b488c58aa909b77e6e8bac6d2c7c9c8","limit":{"limitType":0,"limit":"0","period":"0"}}]}]}`,
			wantErr: ErrInvalidRefValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSessionConfig([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestMarshalSessionConfigRoundTrip(t *testing.T) {
	spec, err := ParseSessionConfig([]byte(sampleConfig))
	require.NoError(t, err)

	data, err := MarshalSessionConfig(spec)
	require.NoError(t, err)

	again, err := ParseSessionConfig(data)
	require.NoError(t, err)
	assert.Equal(t, ConfigFromSpec(spec), ConfigFromSpec(again))
}

func TestLoadSessionConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0600))

	spec, err := LoadSessionConfigFile(path)
	require.NoError(t, err)
	assert.Len(t, spec.TransferPolicies, 1)

	_, err = LoadSessionConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCloneIsDeep(t *testing.T) {
	spec, err := ParseSessionConfig([]byte(sampleConfig))
	require.NoError(t, err)

	clone := spec.Clone()
	assert.Equal(t, ConfigFromSpec(spec), ConfigFromSpec(clone))

	clone.ExpiresAt.SetInt64(1)
	clone.CallPolicies[0].Constraints[0].Limit.Limit.SetInt64(7)
	clone.TransferPolicies[0].Target = common.Address{}

	assert.Equal(t, int64(1749040108), spec.ExpiresAt.Int64())
	assert.Equal(t, int64(1000), spec.CallPolicies[0].Constraints[0].Limit.Limit.Int64())
	assert.NotEqual(t, common.Address{}, spec.TransferPolicies[0].Target)
}

func TestFindPolicies(t *testing.T) {
	target := common.HexToAddress("0x111C3E89Ce80e62EE88318C2804920D4c96f92bb")
	spec := &SessionSpec{
		Signer:    common.HexToAddress("0x01"),
		ExpiresAt: big.NewInt(1),
		FeeLimit:  Unlimited(),
		CallPolicies: []CallSpec{
			{Target: target, Selector: [4]byte{1, 2, 3, 4}, MaxValuePerUse: big.NewInt(1), ValueLimit: Unlimited()},
			{Target: target, Selector: [4]byte{1, 2, 3, 4}, MaxValuePerUse: big.NewInt(2), ValueLimit: Unlimited()},
		},
		TransferPolicies: []TransferSpec{
			{Target: target, MaxValuePerUse: big.NewInt(3), ValueLimit: Unlimited()},
		},
	}

	call, ok := spec.FindCallPolicy(target, [4]byte{1, 2, 3, 4})
	require.True(t, ok)
	assert.Equal(t, int64(1), call.MaxValuePerUse.Int64(), "first match wins")

	_, ok = spec.FindCallPolicy(target, [4]byte{9, 9, 9, 9})
	assert.False(t, ok)

	transfer, ok := spec.FindTransferPolicy(target)
	require.True(t, ok)
	assert.Equal(t, int64(3), transfer.MaxValuePerUse.Int64())

	_, ok = spec.FindTransferPolicy(common.HexToAddress("0x02"))
	assert.False(t, ok)
}
