package op

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidEnvelope is wrapped by decode errors caused by the operation
// envelope rather than its payload.
var ErrInvalidEnvelope = errors.New("invalid operation envelope")

// Operation is a single immutable record of the log.
//
// Seq is the log position assigned by the store on append (starts at 1).
// It is zero for operations that have not been stored. CreatedAt is
// informational only and never used for ordering.
type Operation struct {
	ID         OperationID
	CreatorUID MemberID
	Type       Type
	Data       Payload
	CreatedAt  time.Time
	Seq        int64
}

// Target returns the to_uid of a targeted payload.
func (o Operation) Target() (MemberID, bool) {
	t, ok := o.Data.(Targeted)
	if !ok {
		return "", false
	}
	return t.Target(), true
}

// wireOperation is the persisted shape of an operation.
// op_code is accepted on input as an alias of type for older records.
type wireOperation struct {
	ID         OperationID     `json:"id"`
	CreatorUID MemberID        `json:"creator_uid"`
	Type       Type            `json:"type,omitempty"`
	OpCode     Type            `json:"op_code,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  json.RawMessage `json:"created_at,omitempty"`
}

// Decode parses one operation from its wire JSON.
//
// Unrecognized type tags produce an Unknown payload and a payload that does
// not fit its recognized type produces a Malformed payload; neither is an
// error. Only envelope problems (invalid JSON, missing id, creator or type,
// unparseable created_at) are reported, wrapped with ErrInvalidEnvelope.
func Decode(data []byte) (Operation, error) {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return Operation{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return fromWire(w)
}

// DecodeList parses either a JSON array of operations or a single operation.
func DecodeList(data []byte) ([]Operation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []Operation{}, nil
	}
	if trimmed[0] != '[' {
		o, err := Decode(trimmed)
		if err != nil {
			return nil, err
		}
		return []Operation{o}, nil
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	ops := make([]Operation, 0, len(raws))
	for i, raw := range raws {
		o, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("operation[%d]: %w", i, err)
		}
		ops = append(ops, o)
	}
	return ops, nil
}

func fromWire(w wireOperation) (Operation, error) {
	if w.ID == "" {
		return Operation{}, fmt.Errorf("%w: id is required", ErrInvalidEnvelope)
	}
	if w.CreatorUID == "" {
		return Operation{}, fmt.Errorf("%w: creator_uid is required (id=%s)", ErrInvalidEnvelope, w.ID)
	}
	typ := w.Type
	if typ == "" {
		typ = w.OpCode
	}
	if typ == "" {
		return Operation{}, fmt.Errorf("%w: type is required (id=%s)", ErrInvalidEnvelope, w.ID)
	}

	createdAt, err := parseCreatedAt(w.CreatedAt)
	if err != nil {
		return Operation{}, fmt.Errorf("%w: created_at: %v (id=%s)", ErrInvalidEnvelope, err, w.ID)
	}

	return Operation{
		ID:         w.ID,
		CreatorUID: w.CreatorUID,
		Type:       typ,
		Data:       decodePayload(typ, w.Data),
		CreatedAt:  createdAt,
	}, nil
}

// DecodePayload decodes raw payload JSON for the given type.
// Used by the store when rehydrating rows.
func DecodePayload(t Type, raw json.RawMessage) Payload {
	return decodePayload(t, raw)
}

func decodePayload(t Type, raw json.RawMessage) Payload {
	target, ok := newPayload(t)
	if !ok {
		return Unknown{Tag: t, Raw: cloneRaw(raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Malformed{Tag: t, Raw: cloneRaw(raw), Reason: "data is required"}
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return Malformed{Tag: t, Raw: cloneRaw(raw), Reason: err.Error()}
	}
	return deref(target)
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// parseCreatedAt accepts an RFC 3339 string or integer epoch milliseconds.
// An absent value yields the zero time.
func parseCreatedAt(raw json.RawMessage) (time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return time.Time{}, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	}
	ms, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 string or epoch milliseconds: %s", trimmed)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// DataJSON returns the wire JSON of the payload.
// Unknown and Malformed payloads return their raw bytes unchanged.
func (o Operation) DataJSON() (json.RawMessage, error) {
	switch p := o.Data.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case Unknown:
		if len(p.Raw) == 0 {
			return json.RawMessage("{}"), nil
		}
		return p.Raw, nil
	case Malformed:
		if len(p.Raw) == 0 {
			return json.RawMessage("null"), nil
		}
		return p.Raw, nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal %s data: %w", o.Type, err)
		}
		return data, nil
	}
}

// MarshalJSON encodes the operation in its wire shape.
func (o Operation) MarshalJSON() ([]byte, error) {
	data, err := o.DataJSON()
	if err != nil {
		return nil, err
	}
	var createdAt json.RawMessage
	if !o.CreatedAt.IsZero() {
		createdAt, err = json.Marshal(o.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(wireOperation{
		ID:         o.ID,
		CreatorUID: o.CreatorUID,
		Type:       o.Type,
		Data:       data,
		CreatedAt:  createdAt,
	})
}

// UnmarshalJSON decodes the wire shape. See Decode.
func (o *Operation) UnmarshalJSON(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*o = decoded
	return nil
}
