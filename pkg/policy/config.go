package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// UsageLimitConfig is the JSON form of a UsageLimit.
type UsageLimitConfig struct {
	LimitType uint8  `json:"limitType"`
	Limit     string `json:"limit"`
	Period    string `json:"period"`
}

// ConstraintConfig is the JSON form of a Constraint.
type ConstraintConfig struct {
	Condition uint8            `json:"condition"`
	Index     string           `json:"index"`
	RefValue  string           `json:"refValue"`
	Limit     UsageLimitConfig `json:"limit"`
}

// CallPolicyConfig is the JSON form of a CallSpec.
type CallPolicyConfig struct {
	Target         string             `json:"target"`
	Selector       string             `json:"selector"`
	MaxValuePerUse string             `json:"maxValuePerUse"`
	ValueLimit     UsageLimitConfig   `json:"valueLimit"`
	Constraints    []ConstraintConfig `json:"constraints"`
}

// TransferPolicyConfig is the JSON form of a TransferSpec.
type TransferPolicyConfig struct {
	Target         string           `json:"target"`
	MaxValuePerUse string           `json:"maxValuePerUse"`
	ValueLimit     UsageLimitConfig `json:"valueLimit"`
}

// SessionConfig is the human-authored JSON form of a SessionSpec. Large
// integers are string encoded, in decimal or 0x-prefixed hex. Byte fields
// must have their exact width: 4-byte selectors and 32-byte refValues.
type SessionConfig struct {
	Signer           string                 `json:"signer"`
	ExpiresAt        string                 `json:"expiresAt"`
	FeeLimit         UsageLimitConfig       `json:"feeLimit"`
	CallPolicies     []CallPolicyConfig     `json:"callPolicies"`
	TransferPolicies []TransferPolicyConfig `json:"transferPolicies"`
}

// ParseSessionConfig decodes a session config document into a validated spec.
// Unknown fields are rejected.
func ParseSessionConfig(data []byte) (*SessionSpec, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg SessionConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	spec, err := cfg.ToSpec()
	if err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session spec: %w", err)
	}

	return spec, nil
}

// LoadSessionConfigFile reads and parses a session config file.
func LoadSessionConfigFile(path string) (*SessionSpec, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read session config: %w", err)
	}
	return ParseSessionConfig(data)
}

// MarshalSessionConfig encodes a spec as an indented session config document.
func MarshalSessionConfig(spec *SessionSpec) ([]byte, error) {
	return json.MarshalIndent(ConfigFromSpec(spec), "", "  ")
}

// ToSpec converts the JSON form into a SessionSpec without validating limits.
func (c *SessionConfig) ToSpec() (*SessionSpec, error) {
	signer, err := parseAddress(c.Signer)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}

	expiresAt, err := parseNumber(c.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("expiresAt: %w", err)
	}

	feeLimit, err := c.FeeLimit.toLimit()
	if err != nil {
		return nil, fmt.Errorf("feeLimit: %w", err)
	}

	spec := &SessionSpec{
		Signer:           signer,
		ExpiresAt:        expiresAt,
		FeeLimit:         feeLimit,
		CallPolicies:     make([]CallSpec, 0, len(c.CallPolicies)),
		TransferPolicies: make([]TransferSpec, 0, len(c.TransferPolicies)),
	}

	for i, p := range c.CallPolicies {
		call, err := p.toSpec()
		if err != nil {
			return nil, fmt.Errorf("callPolicies[%d]: %w", i, err)
		}
		spec.CallPolicies = append(spec.CallPolicies, call)
	}

	for i, p := range c.TransferPolicies {
		transfer, err := p.toSpec()
		if err != nil {
			return nil, fmt.Errorf("transferPolicies[%d]: %w", i, err)
		}
		spec.TransferPolicies = append(spec.TransferPolicies, transfer)
	}

	return spec, nil
}

// ConfigFromSpec converts a spec into its JSON form.
func ConfigFromSpec(spec *SessionSpec) *SessionConfig {
	cfg := &SessionConfig{
		Signer:           spec.Signer.Hex(),
		ExpiresAt:        formatNumber(spec.ExpiresAt),
		FeeLimit:         limitConfig(spec.FeeLimit),
		CallPolicies:     make([]CallPolicyConfig, 0, len(spec.CallPolicies)),
		TransferPolicies: make([]TransferPolicyConfig, 0, len(spec.TransferPolicies)),
	}

	for _, p := range spec.CallPolicies {
		call := CallPolicyConfig{
			Target:         p.Target.Hex(),
			Selector:       hexutil.Encode(p.Selector[:]),
			MaxValuePerUse: formatNumber(p.MaxValuePerUse),
			ValueLimit:     limitConfig(p.ValueLimit),
			Constraints:    make([]ConstraintConfig, 0, len(p.Constraints)),
		}
		for _, c := range p.Constraints {
			call.Constraints = append(call.Constraints, ConstraintConfig{
				Condition: uint8(c.Condition),
				Index:     fmt.Sprintf("%d", c.Index),
				RefValue:  hexutil.Encode(c.RefValue[:]),
				Limit:     limitConfig(c.Limit),
			})
		}
		cfg.CallPolicies = append(cfg.CallPolicies, call)
	}

	for _, p := range spec.TransferPolicies {
		cfg.TransferPolicies = append(cfg.TransferPolicies, TransferPolicyConfig{
			Target:         p.Target.Hex(),
			MaxValuePerUse: formatNumber(p.MaxValuePerUse),
			ValueLimit:     limitConfig(p.ValueLimit),
		})
	}

	return cfg
}

func (p CallPolicyConfig) toSpec() (CallSpec, error) {
	target, err := parseAddress(p.Target)
	if err != nil {
		return CallSpec{}, fmt.Errorf("target: %w", err)
	}

	selBytes, err := hexutil.Decode(p.Selector)
	if err != nil || len(selBytes) != 4 {
		return CallSpec{}, fmt.Errorf("%w: %q", ErrInvalidSelector, p.Selector)
	}
	var selector [4]byte
	copy(selector[:], selBytes)

	maxValue, err := parseNumber(p.MaxValuePerUse)
	if err != nil {
		return CallSpec{}, fmt.Errorf("maxValuePerUse: %w", err)
	}

	valueLimit, err := p.ValueLimit.toLimit()
	if err != nil {
		return CallSpec{}, fmt.Errorf("valueLimit: %w", err)
	}

	call := CallSpec{
		Target:         target,
		Selector:       selector,
		MaxValuePerUse: maxValue,
		ValueLimit:     valueLimit,
		Constraints:    make([]Constraint, 0, len(p.Constraints)),
	}

	for i, c := range p.Constraints {
		constraint, err := c.toConstraint()
		if err != nil {
			return CallSpec{}, fmt.Errorf("constraints[%d]: %w", i, err)
		}
		call.Constraints = append(call.Constraints, constraint)
	}

	return call, nil
}

func (p TransferPolicyConfig) toSpec() (TransferSpec, error) {
	target, err := parseAddress(p.Target)
	if err != nil {
		return TransferSpec{}, fmt.Errorf("target: %w", err)
	}

	maxValue, err := parseNumber(p.MaxValuePerUse)
	if err != nil {
		return TransferSpec{}, fmt.Errorf("maxValuePerUse: %w", err)
	}

	valueLimit, err := p.ValueLimit.toLimit()
	if err != nil {
		return TransferSpec{}, fmt.Errorf("valueLimit: %w", err)
	}

	return TransferSpec{Target: target, MaxValuePerUse: maxValue, ValueLimit: valueLimit}, nil
}

func (c ConstraintConfig) toConstraint() (Constraint, error) {
	condition, err := ConditionFromUint8(c.Condition)
	if err != nil {
		return Constraint{}, err
	}

	index, err := parseNumber(c.Index)
	if err != nil {
		return Constraint{}, fmt.Errorf("index: %w", err)
	}
	if !index.IsUint64() {
		return Constraint{}, fmt.Errorf("index: %w: exceeds uint64", ErrInvalidNumber)
	}

	ref, err := hexutil.Decode(c.RefValue)
	if err != nil {
		return Constraint{}, fmt.Errorf("refValue: %w", err)
	}
	if len(ref) != 32 {
		return Constraint{}, fmt.Errorf("%w: got %d bytes", ErrInvalidRefValue, len(ref))
	}

	limit, err := c.Limit.toLimit()
	if err != nil {
		return Constraint{}, fmt.Errorf("limit: %w", err)
	}

	var refValue [32]byte
	copy(refValue[:], ref)

	return Constraint{
		Condition: condition,
		Index:     index.Uint64(),
		RefValue:  refValue,
		Limit:     limit,
	}, nil
}

func (c UsageLimitConfig) toLimit() (UsageLimit, error) {
	limitType, err := LimitTypeFromUint8(c.LimitType)
	if err != nil {
		return UsageLimit{}, err
	}

	limit, err := parseNumber(c.Limit)
	if err != nil {
		return UsageLimit{}, fmt.Errorf("limit: %w", err)
	}

	period, err := parseNumber(c.Period)
	if err != nil {
		return UsageLimit{}, fmt.Errorf("period: %w", err)
	}

	return UsageLimit{LimitType: limitType, Limit: limit, Period: period}, nil
}

func limitConfig(l UsageLimit) UsageLimitConfig {
	return UsageLimitConfig{
		LimitType: uint8(l.LimitType),
		Limit:     formatNumber(l.Limit),
		Period:    formatNumber(l.Period),
	}
}

// parseNumber accepts a non-negative decimal or 0x-prefixed hex integer.
// An empty string is an error, not zero.
func parseNumber(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidNumber)
	}

	var (
		v  *big.Int
		ok bool
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok = new(big.Int).SetString(s[2:], 16)
	} else {
		v, ok = new(big.Int).SetString(s, 10)
	}
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q exceeds 256 bits", ErrInvalidNumber, s)
	}

	return v, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

func formatNumber(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
