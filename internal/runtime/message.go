package runtime

import (
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
)

// StateInit spawns an actor on first delivery. The target address must equal
// protocol.DeriveAddress(Code, Data).
type StateInit struct {
	Code models.CodeHash
	Data []byte
}

// Message is an envelope in flight between two addresses.
type Message struct {
	// ID is unique per message (UUID format).
	ID string

	From  models.Address
	To    models.Address
	Value models.Coins
	Body  []byte
	Init  *StateInit

	// NoReturn marks value the receiver must keep: refunds and payouts.
	// A Transfer carrying it is never returned again, which rules out
	// ping-pong between two actors.
	NoReturn bool

	receipt chan Receipt
}

// Receipt is the outcome of processing one message.
type Receipt struct {
	MessageID string
	Address   models.Address
	Opcode    protocol.Opcode

	// Outcome is models.OutcomeOK or the rejection code.
	Outcome string
	Err     error

	GasUsed uint64

	// Refund is the part of the attached value returned to the sender.
	Refund models.Coins
}

// OK reports whether the message was committed.
func (r Receipt) OK() bool {
	return r.Outcome == models.OutcomeOK
}

func (m *Message) reply(r Receipt) {
	if m.receipt == nil {
		return
	}
	select {
	case m.receipt <- r:
	default:
	}
}
