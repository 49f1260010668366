package session

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/0xmhha/sso-session/pkg/policy"
)

// PeriodIDs resolves the period ID for every usage limit the validator will
// check on a transaction to target.
//
// A non-nil selector picks the first call policy for (target, selector);
// otherwise the first transfer policy for target is used. The result is
// ordered [fee, value, constraints...]. A nil timestamp means now.
func PeriodIDs(spec *policy.SessionSpec, target common.Address, selector *[4]byte, timestamp *uint64) ([]uint64, error) {
	if spec == nil {
		return nil, ErrMissingSpec
	}

	ts := uint64(now().Unix())
	if timestamp != nil {
		ts = *timestamp
	}

	var (
		valueLimit  policy.UsageLimit
		constraints []policy.Constraint
	)

	if selector != nil {
		call, ok := spec.FindCallPolicy(target, *selector)
		if !ok {
			return nil, fmt.Errorf("%w: call to %s selector 0x%x", ErrNoMatchingPolicy, target.Hex(), selector[:])
		}
		valueLimit = call.ValueLimit
		constraints = call.Constraints
	} else {
		transfer, ok := spec.FindTransferPolicy(target)
		if !ok {
			return nil, fmt.Errorf("%w: transfer to %s", ErrNoMatchingPolicy, target.Hex())
		}
		valueLimit = transfer.ValueLimit
	}

	ids := make([]uint64, 0, 2+len(constraints))

	fee, err := periodID(spec.FeeLimit, ts)
	if err != nil {
		return nil, fmt.Errorf("fee limit: %w", err)
	}
	ids = append(ids, fee)

	value, err := periodID(valueLimit, ts)
	if err != nil {
		return nil, fmt.Errorf("value limit: %w", err)
	}
	ids = append(ids, value)

	for i, c := range constraints {
		id, err := periodID(c.Limit, ts)
		if err != nil {
			return nil, fmt.Errorf("constraint %d: %w", i, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// periodID returns timestamp / period for allowances and 0 otherwise.
// Periods wider than uint64 are clamped to math.MaxUint64.
func periodID(limit policy.UsageLimit, timestamp uint64) (uint64, error) {
	if limit.LimitType != policy.LimitAllowance {
		return 0, nil
	}
	if limit.Period == nil {
		return 0, fmt.Errorf("%w: period", policy.ErrMissingValue)
	}

	period, overflow := uint256.FromBig(limit.Period)
	if overflow || limit.Period.Sign() < 0 {
		return 0, fmt.Errorf("%w: period %s", policy.ErrInvalidNumber, limit.Period)
	}
	if period.IsZero() {
		return 0, ErrZeroPeriod
	}

	if !period.IsUint64() {
		period.SetUint64(math.MaxUint64)
	}

	return timestamp / period.Uint64(), nil
}
