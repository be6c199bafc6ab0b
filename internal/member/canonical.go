package member

import (
	"fmt"
	"time"

	"github.com/roach88/trustlog/internal/op"
)

// Canonical returns the member as a value accepted by op.MarshalCanonical.
// Zero times and empty ids are omitted; sets are sorted arrays.
func (m Member) Canonical() map[string]any {
	obj := map[string]any{
		"id":                              m.id,
		"username":                        m.username,
		"full_name":                       m.fullName,
		"invite_confirmed":                m.inviteConfirmed,
		"is_verified":                     m.isVerified,
		"verified_by":                     m.verifiedBy.Strings(),
		"verified":                        m.verified.Strings(),
		"requested_verification_from":     m.requestedVerificationFrom.Strings(),
		"requested_verification_of":       m.requestedVerificationOf.Strings(),
		"trusted_by":                      m.trustedBy.Strings(),
		"trusts":                          m.trusts.Strings(),
		"invited":                         m.invited.Strings(),
		"referral_bonuses_minted_for":     m.referralBonusesMintedFor.Strings(),
		"operations_flagging_this_member": m.operationsFlaggingThisMember.Strings(),
		"balance":                         m.balance.String(),
		"total_donated":                   m.totalDonated.String(),
		"total_minted":                    m.totalMinted.String(),
	}
	if m.invitedBy != "" {
		obj["invited_by"] = m.invitedBy
	}
	putTime(obj, "created_at", m.createdAt)
	putTime(obj, "last_minted_basic_income_at", m.lastMintedBasicIncomeAt)
	putTime(obj, "last_op_created_at", m.lastOpCreatedAt)
	return obj
}

// Canonical returns the invitation as a value accepted by
// op.MarshalCanonical.
func (i Invitation) Canonical() map[string]any {
	obj := map[string]any{
		"operation_id":   i.OperationID,
		"inviter":        i.Inviter,
		"is_joint_video": i.IsJointVideo,
	}
	if i.ClaimedBy != "" {
		obj["claimed_by"] = i.ClaimedBy
	}
	putTime(obj, "created_at", i.CreatedAt)
	return obj
}

// Canonical returns the whole state as a value accepted by
// op.MarshalCanonical.
func (s State) Canonical() map[string]any {
	members := make(map[string]any, len(s.members))
	for id, m := range s.members {
		members[string(id)] = m.Canonical()
	}
	invitations := make(map[string]any, len(s.invitations))
	for token, inv := range s.invitations {
		invitations[token] = inv.Canonical()
	}
	return map[string]any{
		"members":     members,
		"invitations": invitations,
		"last_seq":    s.lastSeq,
		"applied":     s.applied,
		"dropped":     s.dropped,
	}
}

// MarshalCanonical encodes the state as canonical JSON.
func (s State) MarshalCanonical() ([]byte, error) {
	data, err := op.MarshalCanonical(s.Canonical())
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// Digest returns the domain-separated SHA-256 of the canonical state.
// Two states are structurally equal iff their digests are equal.
func (s State) Digest() (string, error) {
	data, err := s.MarshalCanonical()
	if err != nil {
		return "", err
	}
	return op.HashWithDomain(op.DomainState, data), nil
}

func putTime(obj map[string]any, key string, t time.Time) {
	if t.IsZero() {
		return
	}
	obj[key] = t.UTC().Format(time.RFC3339Nano)
}
