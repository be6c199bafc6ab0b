package op

import "encoding/json"

// Payload is the type-specific data carried by an Operation.
// Each recognized Type has exactly one payload struct.
type Payload interface {
	OpType() Type
}

// Targeted is implemented by payloads that name a target member in to_uid.
type Targeted interface {
	Payload
	Target() MemberID
}

// CreateMember registers a new identity keyed by the operation creator.
type CreateMember struct {
	FullName                  string   `json:"full_name"`
	Username                  string   `json:"username"`
	RequestInviteFromMemberID MemberID `json:"request_invite_from_member_id,omitempty"`
	InviteToken               string   `json:"invite_token,omitempty"`
	IdentityVideoReference    string   `json:"identity_video_reference,omitempty"`
}

func (CreateMember) OpType() Type { return TypeCreateMember }

// EditMember changes profile fields. Nil fields are left untouched.
type EditMember struct {
	FullName *string `json:"full_name,omitempty"`
	Username *string `json:"username,omitempty"`
}

func (EditMember) OpType() Type { return TypeEditMember }

// RequestVerification asks ToUID to verify the creator.
type RequestVerification struct {
	ToUID       MemberID `json:"to_uid"`
	InviteToken string   `json:"invite_token,omitempty"`
}

func (RequestVerification) OpType() Type       { return TypeRequestVerification }
func (p RequestVerification) Target() MemberID { return p.ToUID }

// Verify records that the creator vouches for ToUID's identity.
type Verify struct {
	ToUID          MemberID `json:"to_uid"`
	VideoReference string   `json:"video_reference,omitempty"`
}

func (Verify) OpType() Type       { return TypeVerify }
func (p Verify) Target() MemberID { return p.ToUID }

// Trust records a trust edge from the creator to ToUID.
type Trust struct {
	ToUID MemberID `json:"to_uid"`
}

func (Trust) OpType() Type       { return TypeTrust }
func (p Trust) Target() MemberID { return p.ToUID }

// Give transfers Amount to ToUID and DonationAmount to DonationTo.
// Amounts are decimal strings.
type Give struct {
	ToUID          MemberID `json:"to_uid"`
	Amount         string   `json:"amount"`
	DonationTo     MemberID `json:"donation_to,omitempty"`
	DonationAmount string   `json:"donation_amount,omitempty"`
	Memo           string   `json:"memo,omitempty"`
}

func (Give) OpType() Type       { return TypeGive }
func (p Give) Target() MemberID { return p.ToUID }

// Mint credits the creator with newly issued currency.
type Mint struct {
	Type            MintType `json:"type"`
	Amount          string   `json:"amount"`
	InvitedMemberID MemberID `json:"invited_member_id,omitempty"`
}

func (Mint) OpType() Type { return TypeMint }

// Invite publishes a referral token a future member can claim on creation.
type Invite struct {
	InviteToken  string `json:"invite_token"`
	VideoToken   string `json:"video_token,omitempty"`
	IsJointVideo bool   `json:"is_joint_video,omitempty"`
}

func (Invite) OpType() Type { return TypeInvite }

// FlagMember places a moderation flag on ToUID.
type FlagMember struct {
	ToUID  MemberID `json:"to_uid"`
	Reason string   `json:"reason"`
}

func (FlagMember) OpType() Type       { return TypeFlagMember }
func (p FlagMember) Target() MemberID { return p.ToUID }

// ResolveFlagMember clears the flag placed by FlagOperationID on ToUID.
type ResolveFlagMember struct {
	ToUID           MemberID    `json:"to_uid"`
	FlagOperationID OperationID `json:"flag_operation_id"`
	Reason          string      `json:"reason,omitempty"`
}

func (ResolveFlagMember) OpType() Type       { return TypeResolveFlagMember }
func (p ResolveFlagMember) Target() MemberID { return p.ToUID }

// Unknown carries the raw data of an operation whose type tag is not
// recognized by this build.
type Unknown struct {
	Tag Type
	Raw json.RawMessage
}

func (p Unknown) OpType() Type { return p.Tag }

// Malformed carries the raw data of a recognized operation type whose
// payload could not be decoded.
type Malformed struct {
	Tag    Type
	Raw    json.RawMessage
	Reason string
}

func (p Malformed) OpType() Type { return p.Tag }

// newPayload returns a pointer to a zero payload for a recognized type.
func newPayload(t Type) (any, bool) {
	switch t {
	case TypeCreateMember:
		return &CreateMember{}, true
	case TypeEditMember:
		return &EditMember{}, true
	case TypeRequestVerification:
		return &RequestVerification{}, true
	case TypeVerify:
		return &Verify{}, true
	case TypeTrust:
		return &Trust{}, true
	case TypeGive:
		return &Give{}, true
	case TypeMint:
		return &Mint{}, true
	case TypeInvite:
		return &Invite{}, true
	case TypeFlagMember:
		return &FlagMember{}, true
	case TypeResolveFlagMember:
		return &ResolveFlagMember{}, true
	}
	return nil, false
}

// deref converts the pointer returned by newPayload into a value Payload.
func deref(p any) Payload {
	switch v := p.(type) {
	case *CreateMember:
		return *v
	case *EditMember:
		return *v
	case *RequestVerification:
		return *v
	case *Verify:
		return *v
	case *Trust:
		return *v
	case *Give:
		return *v
	case *Mint:
		return *v
	case *Invite:
		return *v
	case *FlagMember:
		return *v
	case *ResolveFlagMember:
		return *v
	}
	return nil
}
