package ability

import (
	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/op"
)

// permission decides one operation type. A nil allow means the type is
// available only to non-members.
type permission struct {
	rule  string
	allow func(m member.Member, t member.Thresholds) bool
}

var permissions = map[op.Type]permission{
	op.TypeCreateMember:        {rule: RuleNotYetMember},
	op.TypeEditMember:          {rule: RuleExistingMember, allow: existingMember},
	op.TypeRequestVerification: {rule: RuleExistingMember, allow: existingMember},
	op.TypeFlagMember:          {rule: RuleCanFlag, allow: canFlag},
	op.TypeResolveFlagMember:   {rule: RuleCanFlag, allow: canFlag},
	op.TypeGive:                {rule: RuleGoodStanding, allow: goodStanding},
	op.TypeInvite:              {rule: RuleGoodStanding, allow: goodStanding},
	op.TypeMint:                {rule: RuleGoodStanding, allow: goodStanding},
	op.TypeTrust:               {rule: RuleGoodStanding, allow: goodStanding},
	op.TypeVerify:              {rule: RuleGoodStanding, allow: goodStanding},
}

func existingMember(member.Member, member.Thresholds) bool { return true }

func goodStanding(m member.Member, _ member.Thresholds) bool { return m.IsInGoodStanding() }

func canFlag(m member.Member, t member.Thresholds) bool { return m.CanFlag(t) }
