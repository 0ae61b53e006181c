package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/storage"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("runtime closed")

// Defaults applied by New to zero Config fields.
const (
	DefaultGasLimit      uint64       = 1_000_000
	DefaultGasPrice      models.Coins = 10
	DefaultMaxLiveActors              = 1024
)

// Config tunes the runtime.
type Config struct {
	// GasLimit is the budget every message gets.
	GasLimit uint64

	// GasPrice is the fee per gas unit withheld from refunds.
	GasPrice models.Coins

	// MaxLiveActors bounds the actors holding a goroutine; the least
	// recently used one is passivated past the bound.
	MaxLiveActors int

	Clock   func() time.Time
	Logger  *slog.Logger
	Metrics *Metrics
}

// Runtime routes messages between actors and wallets.
type Runtime struct {
	cfg     Config
	ctx     context.Context
	store   storage.Store
	logger  *slog.Logger
	metrics *Metrics

	codes map[models.CodeHash]Code

	// mu guards live, draining and closed. Lock order is rt.mu, then actor.mu.
	mu       sync.Mutex
	live     *lru.Cache[models.Address, *actor]
	draining map[models.Address]*actor
	closed   bool

	// balMu serializes balance changes with their store commit.
	balMu    sync.Mutex
	balances map[models.Address]models.Coins

	pending atomic.Int64
	wg      sync.WaitGroup
}

// New loads balances from store and returns a runtime running codes.
// Actors are hydrated lazily on first use.
func New(ctx context.Context, store storage.Store, cfg Config, codes ...Code) (*Runtime, error) {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = DefaultGasLimit
	}
	if cfg.GasPrice == 0 {
		cfg.GasPrice = DefaultGasPrice
	}
	if cfg.MaxLiveActors <= 0 {
		cfg.MaxLiveActors = DefaultMaxLiveActors
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}

	balances, err := store.LoadBalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances: %w", err)
	}

	rt := &Runtime{
		cfg:      cfg,
		ctx:      context.WithoutCancel(ctx),
		store:    store,
		logger:   cfg.Logger.With("component", "runtime"),
		metrics:  cfg.Metrics,
		codes:    make(map[models.CodeHash]Code, len(codes)),
		draining: make(map[models.Address]*actor),
		balances: balances,
	}
	for _, c := range codes {
		rt.codes[c.Hash] = c
	}

	rt.live, err = lru.NewWithEvict(cfg.MaxLiveActors, rt.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create live actor cache: %w", err)
	}

	rt.logger.Info("Runtime started", "balances", len(balances), "codes", len(codes), "max_live_actors", cfg.MaxLiveActors)
	return rt, nil
}

// Now returns the runtime clock's current time.
func (rt *Runtime) Now() time.Time {
	return rt.cfg.Clock()
}

// Balance returns the balance held at addr.
func (rt *Runtime) Balance(addr models.Address) models.Coins {
	rt.balMu.Lock()
	defer rt.balMu.Unlock()
	return rt.balances[addr]
}

// Mint credits amount to addr out of thin air. It funds genesis allocations
// and tests.
func (rt *Runtime) Mint(ctx context.Context, addr models.Address, amount models.Coins) error {
	rt.balMu.Lock()
	defer rt.balMu.Unlock()

	next, err := rt.balances[addr].Add(amount)
	if err != nil {
		return fmt.Errorf("failed to mint %s to %s: %w", amount, addr, err)
	}
	if err := rt.store.Commit(ctx, &models.Commit{Balances: map[models.Address]models.Coins{addr: next}}); err != nil {
		return fmt.Errorf("failed to commit mint: %w", err)
	}
	rt.balances[addr] = next
	return nil
}

// Deploy spawns the actor derived from code and data unless it already
// exists, and returns its address.
func (rt *Runtime) Deploy(ctx context.Context, code models.CodeHash, data []byte) (models.Address, error) {
	addr := protocol.DeriveAddress(code, data)

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, err := rt.resolveLocked(ctx, addr, &StateInit{Code: code, Data: data}); err != nil {
		return models.Address{}, err
	}
	return addr, nil
}

// Submit injects an external message from a wallet. The attached value is
// debited from from before delivery. It returns the message id.
func (rt *Runtime) Submit(ctx context.Context, from, to models.Address, value models.Coins, body []byte) (string, error) {
	msg, err := rt.submit(ctx, from, to, value, body, nil)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// SubmitWait is Submit followed by waiting for the message's receipt.
// Messages the target sends in turn are not awaited.
func (rt *Runtime) SubmitWait(ctx context.Context, from, to models.Address, value models.Coins, body []byte) (*Receipt, error) {
	ch := make(chan Receipt, 1)
	if _, err := rt.submit(ctx, from, to, value, body, ch); err != nil {
		return nil, err
	}
	select {
	case r := <-ch:
		return &r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (rt *Runtime) submit(ctx context.Context, from, to models.Address, value models.Coins, body []byte, receipt chan Receipt) (*Message, error) {
	rt.mu.Lock()
	closed := rt.closed
	rt.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	if value > 0 {
		if err := rt.debit(ctx, from, value); err != nil {
			return nil, err
		}
	}

	msg := &Message{
		ID:      uuid.NewString(),
		From:    from,
		To:      to,
		Value:   value,
		Body:    body,
		receipt: receipt,
	}
	rt.deliver(msg)
	return msg, nil
}

func (rt *Runtime) debit(ctx context.Context, addr models.Address, value models.Coins) error {
	rt.balMu.Lock()
	defer rt.balMu.Unlock()

	next, err := rt.balances[addr].Sub(value)
	if err != nil {
		return protocol.Errorf(protocol.CodeInvalidAmount, "insufficient funds: %s holds %s, needs %s", addr.Short(), rt.balances[addr], value)
	}
	if err := rt.store.Commit(ctx, &models.Commit{Balances: map[models.Address]models.Coins{addr: next}}); err != nil {
		return fmt.Errorf("failed to commit debit: %w", err)
	}
	rt.balances[addr] = next
	return nil
}

// Query runs fn inside the actor at addr, serialized with its messages.
// fn must not retain or mutate what it is given.
func (rt *Runtime) Query(ctx context.Context, addr models.Address, fn func(Behavior) (any, error)) (any, error) {
	q := &query{fn: fn, reply: make(chan queryResult, 1)}

	rt.mu.Lock()
	a, err := rt.resolveLocked(ctx, addr, nil)
	if err == nil && a == nil {
		err = protocol.Errorf(protocol.CodeNotFound, "no actor at %s", addr)
	}
	if err != nil {
		rt.mu.Unlock()
		return nil, err
	}
	a.enqueue(item{query: q})
	rt.mu.Unlock()

	select {
	case res := <-q.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ask is a typed Query.
func Ask[T any](ctx context.Context, rt *Runtime, addr models.Address, fn func(Behavior) (T, error)) (T, error) {
	v, err := rt.Query(ctx, addr, func(b Behavior) (any, error) {
		return fn(b)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Journal returns the most recent journal entries recorded for addr.
func (rt *Runtime) Journal(ctx context.Context, addr models.Address, limit int) ([]*models.JournalEntry, error) {
	entries, err := rt.store.ListJournal(ctx, addr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	return entries, nil
}

// Settle blocks until no message is queued or being processed anywhere.
func (rt *Runtime) Settle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for rt.pending.Load() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("failed to settle with %d messages pending: %w", rt.pending.Load(), ctx.Err())
		}
	}
	return nil
}

// Close rejects further submissions, waits for in-flight messages and stops
// every actor.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.mu.Lock()
	rt.closed = true
	rt.mu.Unlock()

	if err := rt.Settle(ctx); err != nil {
		return err
	}

	rt.mu.Lock()
	rt.live.Purge()
	rt.mu.Unlock()

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		rt.logger.Info("Runtime stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop actors: %w", ctx.Err())
	}
}

// deliver routes msg to its target. It never blocks on the target.
func (rt *Runtime) deliver(msg *Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	rt.pending.Add(1)

	rt.mu.Lock()
	a, err := rt.resolveLocked(rt.ctx, msg.To, msg.Init)
	if err == nil && a != nil {
		a.enqueue(item{msg: msg})
		rt.mu.Unlock()
		return
	}
	rt.mu.Unlock()

	defer rt.done()
	if err != nil {
		op, _ := protocol.PeekOpcode(msg.Body)
		refund := rt.reject(msg, msg.To, op, 0, err)
		rt.logger.Warn("Message undeliverable", "msg_id", msg.ID, "to", msg.To.Short(), "error", err)
		msg.reply(Receipt{MessageID: msg.ID, Address: msg.To, Opcode: op, Outcome: string(protocol.CodeOf(err)), Err: err, Refund: refund})
		return
	}
	rt.toWallet(msg)
}

func (rt *Runtime) done() {
	rt.pending.Add(-1)
}

// resolveLocked finds the live actor at addr, reviving, rehydrating or
// spawning it as needed. A nil actor with nil error means addr is a wallet.
func (rt *Runtime) resolveLocked(ctx context.Context, addr models.Address, init *StateInit) (*actor, error) {
	if a, ok := rt.live.Get(addr); ok {
		return a, nil
	}
	if a, ok := rt.draining[addr]; ok {
		delete(rt.draining, addr)
		a.revive()
		rt.live.Add(addr, a)
		return a, nil
	}

	rec, err := rt.store.LoadActor(ctx, addr)
	switch {
	case err == nil:
		code, ok := rt.codes[rec.Code]
		if !ok {
			return nil, protocol.Errorf(protocol.CodeInternal, "actor %s runs unregistered code %x", addr, rec.Code[:4])
		}
		b, err := code.Restore(rec.Snapshot)
		if err != nil {
			return nil, protocol.Wrap(protocol.CodeInternal, fmt.Errorf("failed to restore %s: %w", addr, err))
		}
		rt.metrics.Spawns.WithLabelValues(code.Name(), "restore").Inc()
		return rt.startLocked(addr, code, b), nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, protocol.Wrap(protocol.CodeInternal, fmt.Errorf("failed to load actor %s: %w", addr, err))
	}

	if init == nil {
		return nil, nil
	}
	if protocol.DeriveAddress(init.Code, init.Data) != addr {
		return nil, protocol.Errorf(protocol.CodeInvalidArgument, "state init does not derive %s", addr)
	}
	code, ok := rt.codes[init.Code]
	if !ok {
		return nil, protocol.Errorf(protocol.CodeInvalidArgument, "unknown code %x", init.Code[:4])
	}
	b, err := code.Deploy(addr, init.Data)
	if err != nil {
		return nil, protocol.Wrap(protocol.CodeInvalidArgument, fmt.Errorf("failed to deploy %s: %w", addr, err))
	}
	snapshot, err := b.Snapshot()
	if err != nil {
		return nil, protocol.Wrap(protocol.CodeInternal, fmt.Errorf("failed to snapshot %s: %w", addr, err))
	}
	rec = &models.ActorRecord{Address: addr, Code: code.Hash, Snapshot: snapshot, UpdatedAt: rt.cfg.Clock().Unix()}
	if err := rt.store.Commit(ctx, &models.Commit{Actor: rec}); err != nil {
		return nil, protocol.Wrap(protocol.CodeInternal, fmt.Errorf("failed to persist %s: %w", addr, err))
	}
	rt.metrics.Spawns.WithLabelValues(code.Name(), "deploy").Inc()
	rt.logger.Info("Actor deployed", "actor", code.Name(), "address", addr)
	return rt.startLocked(addr, code, b), nil
}

func (rt *Runtime) startLocked(addr models.Address, code Code, b Behavior) *actor {
	a := newActor(rt, addr, code, b)
	rt.wg.Add(1)
	rt.metrics.LiveActors.Inc()
	go a.loop()
	rt.live.Add(addr, a)
	return a
}

// onEvict runs with rt.mu held, from inside live.Add or live.Purge.
func (rt *Runtime) onEvict(addr models.Address, a *actor) {
	a.retire()
	rt.draining[addr] = a
	rt.metrics.Passivations.Inc()
}

// finishDrain removes a retired actor whose mailbox is empty. It reports
// false if the actor was revived or received work in the meantime.
func (rt *Runtime) finishDrain(a *actor) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != ActorStateRetired || len(a.queue) > 0 {
		return false
	}
	a.state = ActorStateStopped
	if rt.draining[a.addr] == a {
		delete(rt.draining, a.addr)
	}
	return true
}

// commitSuccess persists the new snapshot together with the actor's balance
// and the journal entry.
func (rt *Runtime) commitSuccess(a *actor, msg *Message, ctx *Context, op protocol.Opcode, snapshot []byte) error {
	rt.balMu.Lock()
	defer rt.balMu.Unlock()

	balance, err := ctx.Balance.Sub(ctx.spent)
	if err != nil {
		return protocol.Wrap(protocol.CodeInvalidAmount, err)
	}
	now := rt.cfg.Clock().Unix()
	c := &models.Commit{
		Actor:    &models.ActorRecord{Address: a.addr, Code: a.code.Hash, Snapshot: snapshot, UpdatedAt: now},
		Balances: map[models.Address]models.Coins{a.addr: balance},
		Journal:  rt.journalEntry(msg, a.addr, op, models.OutcomeOK, "", ctx.gasUsed),
	}
	if err := rt.store.Commit(rt.ctx, c); err != nil {
		return protocol.Wrap(protocol.CodeInternal, fmt.Errorf("failed to commit: %w", err))
	}
	rt.balances[a.addr] = balance
	return nil
}

// reject journals a rejected message and returns its value to the sender,
// minus the fee for the gas it burned. It returns the refund.
func (rt *Runtime) reject(msg *Message, at models.Address, op protocol.Opcode, gasUsed uint64, cause error) models.Coins {
	fee := rt.fee(gasUsed, msg.Value)
	refund := msg.Value - fee

	entry := rt.journalEntry(msg, at, op, string(protocol.CodeOf(cause)), cause.Error(), gasUsed)
	if err := rt.store.Commit(rt.ctx, &models.Commit{Journal: entry}); err != nil {
		rt.logger.Error("Failed to journal rejection", "msg_id", msg.ID, "error", err)
	}
	if fee > 0 {
		rt.metrics.FeesBurned.Add(float64(fee))
	}
	if refund > 0 && !msg.From.IsZero() {
		rt.deliver(&Message{
			From:     at,
			To:       msg.From,
			Value:    refund,
			Body:     protocol.Encode(&protocol.Transfer{Comment: "refund " + msg.ID}, 0),
			NoReturn: true,
		})
	}
	return refund
}

func (rt *Runtime) fee(gasUsed uint64, limit models.Coins) models.Coins {
	hi, lo := bits.Mul64(gasUsed, uint64(rt.cfg.GasPrice))
	if hi != 0 || models.Coins(lo) > limit {
		return limit
	}
	return models.Coins(lo)
}

// toWallet handles a message to an address without an actor. Transfers are
// credited; anything else bounces.
func (rt *Runtime) toWallet(msg *Message) {
	op, err := protocol.PeekOpcode(msg.Body)
	if err != nil && !errors.Is(err, protocol.ErrEmptyEnvelope) || op != protocol.OpTransfer {
		cause := protocol.Errorf(protocol.CodeNotFound, "no actor at %s for %s", msg.To, op)
		refund := rt.reject(msg, msg.To, op, 0, cause)
		msg.reply(Receipt{MessageID: msg.ID, Address: msg.To, Opcode: op, Outcome: string(protocol.CodeNotFound), Err: cause, Refund: refund})
		return
	}

	rt.balMu.Lock()
	balance, err := rt.balances[msg.To].Add(msg.Value)
	if err == nil {
		err = rt.store.Commit(rt.ctx, &models.Commit{
			Balances: map[models.Address]models.Coins{msg.To: balance},
			Journal:  rt.journalEntry(msg, msg.To, op, models.OutcomeOK, "", 0),
		})
	}
	if err == nil {
		rt.balances[msg.To] = balance
	}
	rt.balMu.Unlock()

	if err != nil {
		rt.logger.Error("Failed to credit wallet", "msg_id", msg.ID, "to", msg.To.Short(), "value", msg.Value, "error", err)
		msg.reply(Receipt{MessageID: msg.ID, Address: msg.To, Opcode: op, Outcome: string(protocol.CodeInternal), Err: err})
		return
	}
	rt.metrics.Messages.WithLabelValues("wallet", op.String(), models.OutcomeOK).Inc()
	msg.reply(Receipt{MessageID: msg.ID, Address: msg.To, Opcode: op, Outcome: models.OutcomeOK})
}

func (rt *Runtime) journalEntry(msg *Message, at models.Address, op protocol.Opcode, outcome, detail string, gasUsed uint64) *models.JournalEntry {
	return &models.JournalEntry{
		ID:          msg.ID,
		Address:     at,
		Sender:      msg.From,
		Opcode:      uint32(op),
		Value:       msg.Value,
		Outcome:     outcome,
		Detail:      detail,
		GasUsed:     gasUsed,
		ProcessedAt: rt.cfg.Clock().Unix(),
	}
}
