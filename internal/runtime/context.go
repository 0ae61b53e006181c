package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
)

// Base gas costs charged by the runtime itself.
const (
	GasPerMessage uint64 = 1_000
	GasPerSend    uint64 = 500
)

// Context is what a handler sees of the message it processes.
type Context struct {
	context.Context

	Self      models.Address
	Sender    models.Address
	Value     models.Coins
	NoReturn  bool
	MessageID string
	Now       time.Time
	Logger    *slog.Logger

	// Balance is the actor's balance including Value.
	Balance models.Coins

	gasLimit uint64
	gasUsed  uint64
	spent    models.Coins
	out      []*Message
}

// Charge consumes units of the message's resource budget. Exhausting the
// budget fails the handler like any other rejection.
func (c *Context) Charge(units uint64) error {
	if c.gasUsed+units > c.gasLimit || c.gasUsed+units < c.gasUsed {
		c.gasUsed = c.gasLimit
		return protocol.Errorf(protocol.CodeResourceExhausted, "gas limit %d exceeded", c.gasLimit)
	}
	c.gasUsed += units
	return nil
}

// GasUsed returns the units charged so far.
func (c *Context) GasUsed() uint64 {
	return c.gasUsed
}

// Send queues body for delivery to to once the handler commits. value is
// drawn from the actor's balance. init spawns the target if it does not exist yet.
func (c *Context) Send(to models.Address, value models.Coins, body protocol.Body, init *StateInit) error {
	return c.send(&Message{To: to, Value: value, Body: protocol.Encode(body, 0), Init: init})
}

// Pay sends value to to as a Transfer the receiver keeps.
func (c *Context) Pay(to models.Address, value models.Coins, comment string) error {
	if value == 0 {
		return nil
	}
	return c.send(&Message{
		To:       to,
		Value:    value,
		Body:     protocol.Encode(&protocol.Transfer{Comment: comment}, 0),
		NoReturn: true,
	})
}

func (c *Context) send(msg *Message) error {
	if err := c.Charge(GasPerSend); err != nil {
		return err
	}
	spent, err := c.spent.Add(msg.Value)
	if err != nil || spent > c.Balance {
		return protocol.Errorf(protocol.CodeInvalidAmount, "insufficient balance %s to send %s", c.Balance, msg.Value)
	}
	c.spent = spent
	msg.From = c.Self
	c.out = append(c.out, msg)
	return nil
}
