package reducer

import (
	"time"

	"github.com/roach88/trustlog/internal/ledger"
	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
)

// transition applies one operation of a known type to the pending state.
// The payload has already been checked to match the operation type.
type transition func(r *Reducer, b *member.Builder, o op.Operation) *DropError

var transitions = map[op.Type]transition{
	op.TypeCreateMember:        (*Reducer).createMember,
	op.TypeEditMember:          (*Reducer).editMember,
	op.TypeRequestVerification: (*Reducer).requestVerification,
	op.TypeVerify:              (*Reducer).verify,
	op.TypeTrust:               (*Reducer).trust,
	op.TypeGive:                (*Reducer).give,
	op.TypeMint:                (*Reducer).mint,
	op.TypeInvite:              (*Reducer).invite,
	op.TypeFlagMember:          (*Reducer).flagMember,
	op.TypeResolveFlagMember:   (*Reducer).resolveFlagMember,
}

func (r *Reducer) createMember(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.CreateMember)
	if _, exists := b.Member(o.CreatorUID); exists {
		return drop(o, DropDuplicateCreate, "member %s already exists", o.CreatorUID)
	}

	var inviter op.MemberID
	if p.InviteToken != "" {
		inv, ok := b.Invitation(p.InviteToken)
		switch {
		case !ok:
			r.logger.Debug("invite token not found", "operation_id", o.ID, "token", p.InviteToken)
		case inv.Claimed():
			r.logger.Debug("invite token already claimed", "operation_id", o.ID, "token", p.InviteToken, "claimed_by", inv.ClaimedBy)
		default:
			inviter = inv.Inviter
			inv.ClaimedBy = o.CreatorUID
			b.PutInvitation(inv)
		}
	}
	if inviter == "" && p.RequestInviteFromMemberID != "" {
		if _, ok := b.Member(p.RequestInviteFromMemberID); ok {
			inviter = p.RequestInviteFromMemberID
		} else {
			r.logger.Debug("requested inviter not found", "operation_id", o.ID, "inviter", p.RequestInviteFromMemberID)
		}
	}

	b.PutMember(member.New(member.Profile{
		ID:        o.CreatorUID,
		Username:  p.Username,
		FullName:  p.FullName,
		CreatedAt: o.CreatedAt,
		InvitedBy: inviter,
	}))
	if inviter != "" {
		if m, ok := b.Member(inviter); ok {
			b.PutMember(m.AddInvited(o.CreatorUID))
		}
	}
	return nil
}

func (r *Reducer) editMember(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.EditMember)
	m, d := creator(b, o)
	if d != nil {
		return d
	}
	b.PutMember(m.WithProfile(p.FullName, p.Username))
	return nil
}

func (r *Reducer) requestVerification(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.RequestVerification)
	return pair(b, o, p.ToUID,
		func(c member.Member) member.Member { return c.RequestVerificationOf(p.ToUID) },
		func(t member.Member) member.Member { return t.BeRequestedForVerificationBy(o.CreatorUID) },
	)
}

func (r *Reducer) verify(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.Verify)
	return pair(b, o, p.ToUID,
		func(c member.Member) member.Member { return c.Verify(p.ToUID) },
		func(t member.Member) member.Member { return t.BeVerifiedBy(o.CreatorUID, r.thresholds.ToVerify) },
	)
}

func (r *Reducer) trust(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.Trust)
	return pair(b, o, p.ToUID,
		func(c member.Member) member.Member { return c.Trust(p.ToUID) },
		func(t member.Member) member.Member { return t.BeTrustedBy(o.CreatorUID) },
	)
}

func (r *Reducer) give(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.Give)
	amount, err := ledger.Parse(p.Amount)
	if err != nil {
		return drop(o, DropInvalidPayload, "amount: %v", err)
	}
	if amount.Sign() < 0 {
		return drop(o, DropInvalidPayload, "amount %s is negative", amount)
	}
	donation := ledger.Zero()
	if p.DonationAmount != "" {
		donation, err = ledger.Parse(p.DonationAmount)
		if err != nil {
			return drop(o, DropInvalidPayload, "donation_amount: %v", err)
		}
		if donation.Sign() < 0 {
			return drop(o, DropInvalidPayload, "donation_amount %s is negative", donation)
		}
	}

	c, d := creator(b, o)
	if d != nil {
		return d
	}
	if _, d := target(b, o, p.ToUID); d != nil {
		return d
	}

	// Every balance change is staged first so that an amount the ledger
	// cannot hold drops the whole operation.
	staged := newStage(b)
	total, err := amount.Add(donation)
	if err != nil {
		return drop(o, DropInvalidPayload, "amount: %v", err)
	}
	c, err = c.Debit(total)
	if err != nil {
		return drop(o, DropInvalidPayload, "debit %s: %v", o.CreatorUID, err)
	}
	staged.put(c)

	t, _ := staged.get(p.ToUID)
	if t, err = t.Receive(amount, donation); err != nil {
		return drop(o, DropInvalidPayload, "credit %s: %v", p.ToUID, err)
	}
	staged.put(t)

	if p.DonationTo != "" {
		if m, ok := staged.get(p.DonationTo); ok {
			if m, err = m.Credit(donation); err != nil {
				return drop(o, DropInvalidPayload, "credit %s: %v", p.DonationTo, err)
			}
			staged.put(m)
		}
	}
	staged.commit()
	return nil
}

func (r *Reducer) mint(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.Mint)
	m, d := creator(b, o)
	if d != nil {
		return d
	}
	amount, err := ledger.Parse(p.Amount)
	if err != nil {
		return drop(o, DropInvalidPayload, "amount: %v", err)
	}
	if amount.Sign() < 0 {
		return drop(o, DropInvalidPayload, "amount %s is negative", amount)
	}

	switch p.Type {
	case op.MintBasicIncome:
		m, err = m.Mint(amount, o.CreatedAt)
	case op.MintReferralBonus:
		m, err = m.Mint(amount, time.Time{})
		if err == nil && p.InvitedMemberID != "" {
			m = m.RecordReferralBonus(p.InvitedMemberID)
		}
	default:
		return drop(o, DropInvalidPayload, "unknown mint type %q", p.Type)
	}
	if err != nil {
		return drop(o, DropInvalidPayload, "mint: %v", err)
	}
	b.PutMember(m)
	return nil
}

func (r *Reducer) invite(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.Invite)
	if _, d := creator(b, o); d != nil {
		return d
	}
	if p.InviteToken == "" {
		return drop(o, DropInvalidPayload, "invite_token is required")
	}
	if _, exists := b.Invitation(p.InviteToken); exists {
		return drop(o, DropInvalidPrecondition, "invite token %q already used", p.InviteToken)
	}
	b.PutInvitation(member.Invitation{
		Token:        p.InviteToken,
		OperationID:  o.ID,
		Inviter:      o.CreatorUID,
		IsJointVideo: p.IsJointVideo,
		CreatedAt:    o.CreatedAt,
	})
	return nil
}

func (r *Reducer) flagMember(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.FlagMember)
	if _, d := creator(b, o); d != nil {
		return d
	}
	t, d := target(b, o, p.ToUID)
	if d != nil {
		return d
	}
	b.PutMember(t.Flag(o.ID))
	return nil
}

func (r *Reducer) resolveFlagMember(b *member.Builder, o op.Operation) *DropError {
	p := o.Data.(op.ResolveFlagMember)
	if _, d := creator(b, o); d != nil {
		return d
	}
	t, d := target(b, o, p.ToUID)
	if d != nil {
		return d
	}
	resolved, ok := t.ResolveFlag(p.FlagOperationID)
	if !ok {
		return drop(o, DropInvalidPrecondition, "flag %s is not open on %s", p.FlagOperationID, p.ToUID)
	}
	b.PutMember(resolved)
	return nil
}

func creator(b *member.Builder, o op.Operation) (member.Member, *DropError) {
	m, ok := b.Member(o.CreatorUID)
	if !ok {
		return member.Member{}, drop(o, DropMissingMember, "creator %s does not exist", o.CreatorUID)
	}
	return m, nil
}

func target(b *member.Builder, o op.Operation, id op.MemberID) (member.Member, *DropError) {
	if id == "" {
		return member.Member{}, drop(o, DropInvalidPayload, "to_uid is required")
	}
	m, ok := b.Member(id)
	if !ok {
		return member.Member{}, drop(o, DropMissingMember, "target %s does not exist", id)
	}
	return m, nil
}

// pair updates the creator and then the target of a targeted operation.
// Both must exist before anything is written. The target is re-read after
// the creator is stored so that a self-targeted operation sees both
// updates.
func pair(b *member.Builder, o op.Operation, to op.MemberID, onCreator, onTarget func(member.Member) member.Member) *DropError {
	c, d := creator(b, o)
	if d != nil {
		return d
	}
	if _, d := target(b, o, to); d != nil {
		return d
	}
	b.PutMember(onCreator(c))
	t, _ := b.Member(to)
	b.PutMember(onTarget(t))
	return nil
}

// stage buffers member updates over a builder until commit.
type stage struct {
	b       *member.Builder
	pending map[op.MemberID]member.Member
	order   []op.MemberID
}

func newStage(b *member.Builder) *stage {
	return &stage{b: b, pending: map[op.MemberID]member.Member{}}
}

func (s *stage) get(id op.MemberID) (member.Member, bool) {
	if m, ok := s.pending[id]; ok {
		return m, true
	}
	return s.b.Member(id)
}

func (s *stage) put(m member.Member) {
	if _, ok := s.pending[m.ID()]; !ok {
		s.order = append(s.order, m.ID())
	}
	s.pending[m.ID()] = m
}

func (s *stage) commit() {
	for _, id := range s.order {
		s.b.PutMember(s.pending[id])
	}
}
