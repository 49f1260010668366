package policy

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Unlimited returns a limit that does not meter usage.
func Unlimited() UsageLimit {
	return UsageLimit{LimitType: LimitUnlimited, Limit: new(big.Int), Period: new(big.Int)}
}

// Lifetime returns a limit capping cumulative usage to limit.
func Lifetime(limit *big.Int) UsageLimit {
	return UsageLimit{LimitType: LimitLifetime, Limit: copyInt(limit), Period: new(big.Int)}
}

// Allowance returns a limit capping usage to limit per period seconds.
func Allowance(limit, period *big.Int) UsageLimit {
	return UsageLimit{LimitType: LimitAllowance, Limit: copyInt(limit), Period: copyInt(period)}
}

// Validate checks that the limit is fully specified.
func (l UsageLimit) Validate() error {
	if _, err := LimitTypeFromUint8(uint8(l.LimitType)); err != nil {
		return err
	}
	if l.Limit == nil || l.Period == nil {
		return fmt.Errorf("%w: usage limit", ErrMissingValue)
	}
	if l.Limit.Sign() < 0 || l.Period.Sign() < 0 {
		return fmt.Errorf("%w: negative usage limit", ErrInvalidNumber)
	}
	if l.LimitType == LimitAllowance && l.Period.Sign() == 0 {
		return ErrZeroPeriod
	}
	return nil
}

// Clone returns a deep copy of the limit.
func (l UsageLimit) Clone() UsageLimit {
	return UsageLimit{LimitType: l.LimitType, Limit: copyInt(l.Limit), Period: copyInt(l.Period)}
}

// Validate checks the spec for missing values and malformed limits.
//
// Thread-safety: read-only.
func (s *SessionSpec) Validate() error {
	if s.Signer == (common.Address{}) {
		return ErrZeroSigner
	}
	if s.ExpiresAt == nil {
		return fmt.Errorf("%w: expiresAt", ErrMissingValue)
	}
	if err := s.FeeLimit.Validate(); err != nil {
		return fmt.Errorf("fee limit: %w", err)
	}

	for i, p := range s.CallPolicies {
		if p.MaxValuePerUse == nil {
			return fmt.Errorf("call policy %d: %w: maxValuePerUse", i, ErrMissingValue)
		}
		if err := p.ValueLimit.Validate(); err != nil {
			return fmt.Errorf("call policy %d: value limit: %w", i, err)
		}
		for j, c := range p.Constraints {
			if _, err := ConditionFromUint8(uint8(c.Condition)); err != nil {
				return fmt.Errorf("call policy %d: constraint %d: %w", i, j, err)
			}
			if err := c.Limit.Validate(); err != nil {
				return fmt.Errorf("call policy %d: constraint %d: %w", i, j, err)
			}
		}
	}

	for i, p := range s.TransferPolicies {
		if p.MaxValuePerUse == nil {
			return fmt.Errorf("transfer policy %d: %w: maxValuePerUse", i, ErrMissingValue)
		}
		if err := p.ValueLimit.Validate(); err != nil {
			return fmt.Errorf("transfer policy %d: value limit: %w", i, err)
		}
	}

	return nil
}

// Clone returns a deep copy of the spec.
func (s *SessionSpec) Clone() *SessionSpec {
	out := &SessionSpec{
		Signer:    s.Signer,
		ExpiresAt: copyInt(s.ExpiresAt),
		FeeLimit:  s.FeeLimit.Clone(),
	}

	if s.CallPolicies != nil {
		out.CallPolicies = make([]CallSpec, len(s.CallPolicies))
		for i, p := range s.CallPolicies {
			cp := CallSpec{
				Target:         p.Target,
				Selector:       p.Selector,
				MaxValuePerUse: copyInt(p.MaxValuePerUse),
				ValueLimit:     p.ValueLimit.Clone(),
			}
			if p.Constraints != nil {
				cp.Constraints = make([]Constraint, len(p.Constraints))
				for j, c := range p.Constraints {
					cp.Constraints[j] = Constraint{
						Condition: c.Condition,
						Index:     c.Index,
						RefValue:  c.RefValue,
						Limit:     c.Limit.Clone(),
					}
				}
			}
			out.CallPolicies[i] = cp
		}
	}

	if s.TransferPolicies != nil {
		out.TransferPolicies = make([]TransferSpec, len(s.TransferPolicies))
		for i, p := range s.TransferPolicies {
			out.TransferPolicies[i] = TransferSpec{
				Target:         p.Target,
				MaxValuePerUse: copyInt(p.MaxValuePerUse),
				ValueLimit:     p.ValueLimit.Clone(),
			}
		}
	}

	return out
}

// FindCallPolicy returns the first call policy matching target and selector.
func (s *SessionSpec) FindCallPolicy(target common.Address, selector [4]byte) (*CallSpec, bool) {
	for i := range s.CallPolicies {
		if s.CallPolicies[i].Target == target && s.CallPolicies[i].Selector == selector {
			return &s.CallPolicies[i], true
		}
	}
	return nil, false
}

// FindTransferPolicy returns the first transfer policy matching target.
func (s *SessionSpec) FindTransferPolicy(target common.Address) (*TransferSpec, bool) {
	for i := range s.TransferPolicies {
		if s.TransferPolicies[i].Target == target {
			return &s.TransferPolicies[i], true
		}
	}
	return nil, false
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
