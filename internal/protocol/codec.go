package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Envelope field numbers.
const (
	fieldOpcode  protowire.Number = 1
	fieldQueryID protowire.Number = 2
	fieldPayload protowire.Number = 3
)

// ErrEmptyEnvelope is returned by PeekOpcode for a zero-length body.
var ErrEmptyEnvelope = errors.New("empty envelope")

// Envelope is a decoded message.
type Envelope struct {
	// QueryID is chosen by the sender and echoed in logs and receipts.
	QueryID uint64
	Body    Body
}

// Encode serializes body into an envelope.
func Encode(body Body, queryID uint64) []byte {
	var payload encoder
	body.encode(&payload)

	var e encoder
	e.uint(fieldOpcode, uint64(body.Opcode()))
	if queryID != 0 {
		e.uint(fieldQueryID, queryID)
	}
	if len(payload.b) > 0 {
		e.bytes(fieldPayload, payload.b)
	}
	return e.b
}

// Decode parses an envelope into its variant. A zero-length input is the
// empty Transfer. Unknown opcodes and malformed payloads are rejected with
// ErrInvalidOpcode.
func Decode(b []byte) (*Envelope, error) {
	if len(b) == 0 {
		return &Envelope{Body: &Transfer{}}, nil
	}
	d := newDecoder(b)
	op := Opcode(d.uint32(fieldOpcode))
	queryID := d.uint(fieldQueryID)
	payload := d.bytes(fieldPayload)
	if d.err != nil {
		return nil, Wrap(CodeInvalidOpcode, fmt.Errorf("malformed envelope: %w", d.err))
	}

	body := newBody(op)
	if body == nil {
		return nil, Errorf(CodeInvalidOpcode, "unknown opcode 0x%08x", uint32(op))
	}
	pd := newDecoder(payload)
	body.decode(pd)
	if pd.err != nil {
		return nil, Wrap(CodeInvalidOpcode, fmt.Errorf("malformed %s payload: %w", op, pd.err))
	}
	return &Envelope{QueryID: queryID, Body: body}, nil
}

// PeekOpcode returns the opcode without decoding the payload.
func PeekOpcode(b []byte) (Opcode, error) {
	if len(b) == 0 {
		return OpTransfer, ErrEmptyEnvelope
	}
	d := newDecoder(b)
	op := Opcode(d.uint32(fieldOpcode))
	return op, d.err
}

func newBody(op Opcode) Body {
	switch op {
	case OpTransfer:
		return &Transfer{}
	case OpRegisterGroup:
		return &RegisterGroup{}
	case OpUpdateFactorySettings:
		return &UpdateFactorySettings{}
	case OpEmergencyStop:
		return &EmergencyStop{}
	case OpResumeFactory:
		return &ResumeFactory{}
	case OpInitializeGroup:
		return &InitializeGroup{}
	case OpAddMember:
		return &AddMember{}
	case OpRemoveMember:
		return &RemoveMember{}
	case OpRequestJoin:
		return &RequestJoin{}
	case OpLeaveGroup:
		return &LeaveGroup{}
	case OpCreateGoal:
		return &CreateGoal{}
	case OpContributeToGoal:
		return &ContributeToGoal{}
	case OpRecordExpense:
		return &RecordExpense{}
	case OpSettleDebt:
		return &SettleDebt{}
	case OpUpdateGroupSettings:
		return &UpdateGroupSettings{}
	case OpSetMemberReputation:
		return &SetMemberReputation{}
	case OpSetMemberStatus:
		return &SetMemberStatus{}
	case OpDeactivateGroup:
		return &DeactivateGroup{}
	case OpInitializeMember:
		return &InitializeMember{}
	case OpUpdateProfile:
		return &UpdateProfile{}
	case OpUpdateReputation:
		return &UpdateReputation{}
	case OpRecordContribution:
		return &RecordContribution{}
	case OpRecordDebt:
		return &RecordDebt{}
	case OpSettleMemberDebt:
		return &SettleMemberDebt{}
	case OpUpdateStatus:
		return &UpdateStatus{}
	default:
		return nil
	}
}
