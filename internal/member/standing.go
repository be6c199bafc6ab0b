package member

import "fmt"

// Default thresholds.
const (
	DefaultVerificationsRequiredToVerify = 1
	DefaultVerificationsRequiredToFlag   = 5
)

// Thresholds are the two independent verification counts the network uses.
type Thresholds struct {
	// ToVerify is the verifiedBy count at which a member becomes verified.
	ToVerify int
	// ToFlag is the verifiedBy count a member in good standing needs before
	// it may flag others.
	ToFlag int
}

// DefaultThresholds returns ToVerify 1 and ToFlag 5.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ToVerify: DefaultVerificationsRequiredToVerify,
		ToFlag:   DefaultVerificationsRequiredToFlag,
	}
}

// Validate checks that both thresholds are at least 1.
func (t Thresholds) Validate() error {
	if t.ToVerify < 1 {
		return fmt.Errorf("verifications required to verify must be >= 1, got %d", t.ToVerify)
	}
	if t.ToFlag < 1 {
		return fmt.Errorf("verifications required to flag must be >= 1, got %d", t.ToFlag)
	}
	return nil
}

// IsInGoodStanding reports whether m is verified and carries no open flags.
func (m Member) IsInGoodStanding() bool {
	return m.isVerified && m.operationsFlaggingThisMember.IsEmpty()
}

// CanFlag reports whether m may flag others under t.
func (m Member) CanFlag(t Thresholds) bool {
	return m.IsInGoodStanding() && m.verifiedBy.Len() >= t.ToFlag
}
