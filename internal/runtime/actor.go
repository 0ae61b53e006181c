package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
)

// Behavior is the code an actor runs.
type Behavior interface {
	// Receive handles one message. The runtime calls it on a clone of the
	// current state and keeps the clone only if Receive returns nil.
	Receive(ctx *Context, body []byte) error

	// Clone returns a deep copy that shares nothing mutable with the receiver.
	Clone() Behavior

	// Snapshot serializes the state for persistence.
	Snapshot() ([]byte, error)
}

// Code tells the runtime how to build one kind of actor.
type Code struct {
	Hash models.CodeHash

	// Deploy builds a fresh actor at self from its init data.
	Deploy func(self models.Address, data []byte) (Behavior, error)

	// Restore rebuilds an actor from a snapshot.
	Restore func(snapshot []byte) (Behavior, error)
}

// Name returns the label used in logs and metrics.
func (c Code) Name() string {
	return protocol.CodeName(c.Hash)
}

// ActorState is the lifecycle state of a live actor.
type ActorState int32

const (
	ActorStateRunning ActorState = iota
	ActorStateRetired
	ActorStateStopped
)

// String returns the string representation of ActorState.
func (s ActorState) String() string {
	switch s {
	case ActorStateRunning:
		return "running"
	case ActorStateRetired:
		return "retired"
	case ActorStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type query struct {
	fn    func(Behavior) (any, error)
	reply chan queryResult
}

type queryResult struct {
	value any
	err   error
}

// item is one mailbox entry: a message or a query.
type item struct {
	msg   *Message
	query *query
}

// actor owns one goroutine draining its mailbox.
type actor struct {
	addr   models.Address
	code   Code
	rt     *Runtime
	logger *slog.Logger

	// behavior is only touched by the loop goroutine.
	behavior Behavior

	mu    sync.Mutex
	queue []item
	state ActorState
	wake  chan struct{}

	messagesProcessed uint64
}

func newActor(rt *Runtime, addr models.Address, code Code, b Behavior) *actor {
	return &actor{
		addr:     addr,
		code:     code,
		rt:       rt,
		logger:   rt.logger.With("actor", code.Name(), "address", addr.Short()),
		behavior: b,
		wake:     make(chan struct{}, 1),
	}
}

// enqueue appends to the mailbox. Callers hold rt.mu so a retired actor
// cannot stop between being resolved and receiving the item.
func (a *actor) enqueue(it item) {
	a.mu.Lock()
	a.queue = append(a.queue, it)
	a.mu.Unlock()
	a.signal()
}

func (a *actor) signal() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *actor) retire() {
	a.mu.Lock()
	a.state = ActorStateRetired
	a.mu.Unlock()
	a.signal()
}

func (a *actor) revive() {
	a.mu.Lock()
	a.state = ActorStateRunning
	a.mu.Unlock()
}

// next blocks until an item is available. It returns false once the actor
// is retired and its mailbox is empty.
func (a *actor) next() (item, bool) {
	for {
		a.mu.Lock()
		if len(a.queue) > 0 {
			it := a.queue[0]
			a.queue[0] = item{}
			a.queue = a.queue[1:]
			a.mu.Unlock()
			return it, true
		}
		retired := a.state == ActorStateRetired
		a.mu.Unlock()

		if retired && a.rt.finishDrain(a) {
			return item{}, false
		}
		<-a.wake
	}
}

func (a *actor) loop() {
	defer a.rt.wg.Done()
	defer a.rt.metrics.LiveActors.Dec()

	for {
		it, ok := a.next()
		if !ok {
			a.logger.Debug("Actor stopped", "messages_processed", a.messagesProcessed)
			return
		}
		if it.query != nil {
			a.answer(it.query)
			continue
		}
		a.process(it.msg)
	}
}

func (a *actor) answer(q *query) {
	var res queryResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.err = protocol.Errorf(protocol.CodeInternal, "query panicked: %v", r)
			}
		}()
		res.value, res.err = q.fn(a.behavior)
	}()
	q.reply <- res
}

// process handles one message end to end: run the handler on a clone,
// commit or reject, then dispatch what the handler sent.
func (a *actor) process(msg *Message) {
	rt := a.rt
	start := time.Now()
	defer rt.done()

	op, _ := protocol.PeekOpcode(msg.Body)
	ctx := &Context{
		Context:   rt.ctx,
		Self:      a.addr,
		Sender:    msg.From,
		Value:     msg.Value,
		NoReturn:  msg.NoReturn,
		MessageID: msg.ID,
		Now:       rt.cfg.Clock(),
		Logger:    a.logger.With("msg_id", msg.ID, "opcode", op.String()),
		gasLimit:  rt.cfg.GasLimit,
	}

	next := a.behavior.Clone()
	err := a.run(next, ctx, msg)
	var snapshot []byte
	if err == nil {
		snapshot, err = next.Snapshot()
		if err != nil {
			err = protocol.Wrap(protocol.CodeInternal, fmt.Errorf("failed to snapshot state: %w", err))
		}
	}
	if err == nil {
		err = rt.commitSuccess(a, msg, ctx, op, snapshot)
	}

	receipt := Receipt{
		MessageID: msg.ID,
		Address:   a.addr,
		Opcode:    op,
		Outcome:   models.OutcomeOK,
		GasUsed:   ctx.gasUsed,
	}
	if err == nil {
		a.behavior = next
		for _, out := range ctx.out {
			rt.deliver(out)
		}
		ctx.Logger.Debug("Message committed", "sender", msg.From.Short(), "value", msg.Value, "gas_used", ctx.gasUsed, "sent", len(ctx.out))
	} else {
		receipt.Outcome = string(protocol.CodeOf(err))
		receipt.Err = err
		receipt.Refund = rt.reject(msg, a.addr, op, ctx.gasUsed, err)
		level := slog.LevelInfo
		if msg.receipt == nil {
			// Internal senders are actors; a rejection between them means
			// the network disagrees with itself.
			level = slog.LevelWarn
		}
		ctx.Logger.Log(rt.ctx, level, "Message rejected", "sender", msg.From.Short(), "code", receipt.Outcome, "error", err, "refund", receipt.Refund)
	}

	a.messagesProcessed++
	rt.metrics.Messages.WithLabelValues(a.code.Name(), op.String(), receipt.Outcome).Inc()
	rt.metrics.Duration.WithLabelValues(a.code.Name()).Observe(time.Since(start).Seconds())
	rt.metrics.Gas.WithLabelValues(a.code.Name()).Observe(float64(ctx.gasUsed))
	msg.reply(receipt)
}

func (a *actor) run(next Behavior, ctx *Context, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Handler panicked", "msg_id", msg.ID, "panic", r)
			err = protocol.Errorf(protocol.CodeInternal, "handler panicked: %v", r)
		}
	}()

	balance, err := a.rt.Balance(a.addr).Add(msg.Value)
	if err != nil {
		return protocol.Wrap(protocol.CodeInvalidAmount, err)
	}
	ctx.Balance = balance
	if err := ctx.Charge(GasPerMessage); err != nil {
		return err
	}
	return next.Receive(ctx, msg.Body)
}
