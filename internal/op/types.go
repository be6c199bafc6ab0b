package op

// MemberID identifies a member. Assigned by the upstream auth provider.
type MemberID string

// OperationID identifies an operation in the log.
type OperationID string

// Type is the operation type tag.
type Type string

// Recognized operation types.
const (
	TypeCreateMember        Type = "CREATE_MEMBER"
	TypeEditMember          Type = "EDIT_MEMBER"
	TypeRequestVerification Type = "REQUEST_VERIFICATION"
	TypeVerify              Type = "VERIFY"
	TypeTrust               Type = "TRUST"
	TypeGive                Type = "GIVE"
	TypeMint                Type = "MINT"
	TypeInvite              Type = "INVITE"
	TypeFlagMember          Type = "FLAG_MEMBER"
	TypeResolveFlagMember   Type = "RESOLVE_FLAG_MEMBER"
)

var knownTypes = []Type{
	TypeCreateMember,
	TypeEditMember,
	TypeRequestVerification,
	TypeVerify,
	TypeTrust,
	TypeGive,
	TypeMint,
	TypeInvite,
	TypeFlagMember,
	TypeResolveFlagMember,
}

// Types returns every recognized operation type in declaration order.
// The returned slice is a copy.
func Types() []Type {
	out := make([]Type, len(knownTypes))
	copy(out, knownTypes)
	return out
}

// IsKnown reports whether t is one of the recognized operation types.
func (t Type) IsKnown() bool {
	for _, k := range knownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// String returns the wire tag.
func (t Type) String() string {
	return string(t)
}

// MintType distinguishes the reasons currency can be minted.
type MintType string

const (
	MintBasicIncome   MintType = "BASIC_INCOME"
	MintReferralBonus MintType = "REFERRAL_BONUS"
)
