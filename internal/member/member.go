package member

import (
	"time"

	"github.com/roach88/trustlog/internal/ledger"
	"github.com/roach88/trustlog/internal/op"
)

// Member is the derived, immutable snapshot of one identity.
//
// Members are produced only by the reducer. Every With*/transition method
// returns an updated copy; sets and amounts inside are themselves immutable
// so copies share structure safely.
type Member struct {
	id              op.MemberID
	username        string
	fullName        string
	createdAt       time.Time
	invitedBy       op.MemberID
	inviteConfirmed bool
	isVerified      bool

	verifiedBy                   Set[op.MemberID]
	verified                     Set[op.MemberID]
	requestedVerificationFrom    Set[op.MemberID]
	requestedVerificationOf      Set[op.MemberID]
	trustedBy                    Set[op.MemberID]
	trusts                       Set[op.MemberID]
	invited                      Set[op.MemberID]
	referralBonusesMintedFor     Set[op.MemberID]
	operationsFlaggingThisMember Set[op.OperationID]

	balance                 ledger.Amount
	totalDonated            ledger.Amount
	totalMinted             ledger.Amount
	lastMintedBasicIncomeAt time.Time
	lastOpCreatedAt         time.Time
}

// Profile holds the fields supplied by CREATE_MEMBER.
type Profile struct {
	ID        op.MemberID
	Username  string
	FullName  string
	CreatedAt time.Time
	InvitedBy op.MemberID
}

// New returns a fresh unverified member with zero balances.
func New(p Profile) Member {
	return Member{
		id:                      p.ID,
		username:                p.Username,
		fullName:                p.FullName,
		createdAt:               p.CreatedAt,
		invitedBy:               p.InvitedBy,
		lastMintedBasicIncomeAt: p.CreatedAt,
		lastOpCreatedAt:         p.CreatedAt,
	}
}

func (m Member) ID() op.MemberID                    { return m.id }
func (m Member) Username() string                   { return m.username }
func (m Member) FullName() string                   { return m.fullName }
func (m Member) CreatedAt() time.Time               { return m.createdAt }
func (m Member) InvitedBy() op.MemberID             { return m.invitedBy }
func (m Member) InviteConfirmed() bool              { return m.inviteConfirmed }
func (m Member) IsVerified() bool                   { return m.isVerified }
func (m Member) VerifiedBy() Set[op.MemberID]       { return m.verifiedBy }
func (m Member) Verified() Set[op.MemberID]         { return m.verified }
func (m Member) TrustedBy() Set[op.MemberID]        { return m.trustedBy }
func (m Member) Trusts() Set[op.MemberID]           { return m.trusts }
func (m Member) Invited() Set[op.MemberID]          { return m.invited }
func (m Member) Balance() ledger.Amount             { return m.balance }
func (m Member) TotalDonated() ledger.Amount        { return m.totalDonated }
func (m Member) TotalMinted() ledger.Amount         { return m.totalMinted }
func (m Member) LastOpCreatedAt() time.Time         { return m.lastOpCreatedAt }
func (m Member) LastMintedBasicIncomeAt() time.Time { return m.lastMintedBasicIncomeAt }

// RequestedVerificationFrom lists members that asked this member for
// verification.
func (m Member) RequestedVerificationFrom() Set[op.MemberID] { return m.requestedVerificationFrom }

// RequestedVerificationOf lists members this member asked for verification.
func (m Member) RequestedVerificationOf() Set[op.MemberID] { return m.requestedVerificationOf }

// ReferralBonusesMintedFor lists invited members a referral bonus was
// already minted for.
func (m Member) ReferralBonusesMintedFor() Set[op.MemberID] { return m.referralBonusesMintedFor }

// OperationsFlaggingThisMember lists the unresolved FLAG_MEMBER operations
// targeting this member.
func (m Member) OperationsFlaggingThisMember() Set[op.OperationID] {
	return m.operationsFlaggingThisMember
}

// WithProfile applies EDIT_MEMBER fields. Nil fields are unchanged.
func (m Member) WithProfile(fullName, username *string) Member {
	if fullName != nil {
		m.fullName = *fullName
	}
	if username != nil {
		m.username = *username
	}
	return m
}

// Touch records the creation time of the latest operation by this member.
func (m Member) Touch(at time.Time) Member {
	m.lastOpCreatedAt = at
	return m
}

/* Ledger transitions */

// Mint credits amount. A non-zero basicIncomeAt updates the basic income
// clock.
func (m Member) Mint(amount ledger.Amount, basicIncomeAt time.Time) (Member, error) {
	balance, err := m.balance.Add(amount)
	if err != nil {
		return m, err
	}
	minted, err := m.totalMinted.Add(amount)
	if err != nil {
		return m, err
	}
	m.balance, m.totalMinted = balance, minted
	if !basicIncomeAt.IsZero() {
		m.lastMintedBasicIncomeAt = basicIncomeAt
	}
	return m, nil
}

// Debit removes amount from the balance.
func (m Member) Debit(amount ledger.Amount) (Member, error) {
	balance, err := m.balance.Sub(amount)
	if err != nil {
		return m, err
	}
	m.balance = balance
	return m, nil
}

// Receive credits amount and records the donation that accompanied it.
func (m Member) Receive(amount, donation ledger.Amount) (Member, error) {
	balance, err := m.balance.Add(amount)
	if err != nil {
		return m, err
	}
	donated, err := m.totalDonated.Add(donation)
	if err != nil {
		return m, err
	}
	m.balance, m.totalDonated = balance, donated
	return m, nil
}

// Credit adds amount to the balance without any other bookkeeping.
func (m Member) Credit(amount ledger.Amount) (Member, error) {
	balance, err := m.balance.Add(amount)
	if err != nil {
		return m, err
	}
	m.balance = balance
	return m, nil
}

// RecordReferralBonus remembers that a referral bonus was minted for id.
func (m Member) RecordReferralBonus(id op.MemberID) Member {
	m.referralBonusesMintedFor = m.referralBonusesMintedFor.Add(id)
	return m
}

/* Relationship transitions */

// AddInvited records that id joined through this member.
func (m Member) AddInvited(id op.MemberID) Member {
	m.invited = m.invited.Add(id)
	return m
}

// Trust records an outgoing trust edge.
func (m Member) Trust(id op.MemberID) Member {
	m.trusts = m.trusts.Add(id)
	return m
}

// BeTrustedBy records an incoming trust edge. Trust from the inviter
// confirms the invite.
func (m Member) BeTrustedBy(id op.MemberID) Member {
	m.trustedBy = m.trustedBy.Add(id)
	m.inviteConfirmed = m.inviteConfirmed || (m.invitedBy != "" && m.invitedBy == id)
	return m
}

// RequestVerificationOf records that this member asked id for verification.
func (m Member) RequestVerificationOf(id op.MemberID) Member {
	m.requestedVerificationOf = m.requestedVerificationOf.Add(id)
	return m
}

// BeRequestedForVerificationBy records that id asked this member for
// verification.
func (m Member) BeRequestedForVerificationBy(id op.MemberID) Member {
	m.requestedVerificationFrom = m.requestedVerificationFrom.Add(id)
	return m
}

// Verify records that this member verified id.
func (m Member) Verify(id op.MemberID) Member {
	m.verified = m.verified.Add(id)
	return m
}

// BeVerifiedBy adds id to verifiedBy. The member becomes verified once
// verifiedBy reaches required; verification is never revoked here.
// Verification by the inviter confirms the invite.
func (m Member) BeVerifiedBy(id op.MemberID, required int) Member {
	m.verifiedBy = m.verifiedBy.Add(id)
	if m.verifiedBy.Len() >= required {
		m.isVerified = true
	}
	m.inviteConfirmed = m.inviteConfirmed || (m.invitedBy != "" && m.invitedBy == id)
	return m
}

/* Moderation transitions */

// Flag adds a flagging operation.
func (m Member) Flag(flagID op.OperationID) Member {
	m.operationsFlaggingThisMember = m.operationsFlaggingThisMember.Add(flagID)
	return m
}

// ResolveFlag removes a flagging operation. It reports false, leaving the
// member unchanged, when flagID is not an open flag on this member.
func (m Member) ResolveFlag(flagID op.OperationID) (Member, bool) {
	flags, ok := m.operationsFlaggingThisMember.Remove(flagID)
	if !ok {
		return m, false
	}
	m.operationsFlaggingThisMember = flags
	return m, true
}
