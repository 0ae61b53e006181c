package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/storage/memory"
)

var (
	testCode = models.CodeHash{0x7e, 0x57}
	wallet   = models.MustParseAddress("0x00000000000000000000000000000000000000a1")
	owner    = models.MustParseAddress("0x00000000000000000000000000000000000000b2")
)

// recorder appends the comment of every Transfer it keeps. Some comments
// are commands.
type recorder struct {
	Seen []string `json:"seen"`
}

func (r *recorder) Receive(ctx *Context, body []byte) error {
	env, err := protocol.Decode(body)
	if err != nil {
		return err
	}
	t, ok := env.Body.(*protocol.Transfer)
	if !ok {
		return protocol.Errorf(protocol.CodeInvalidOpcode, "unexpected %s", env.Body.Opcode())
	}
	r.Seen = append(r.Seen, t.Comment)

	switch t.Comment {
	case "fail":
		return protocol.Errorf(protocol.CodeInvalidArgument, "asked to fail")
	case "burn":
		for {
			if err := ctx.Charge(10_000); err != nil {
				return err
			}
		}
	case "echo":
		return ctx.Pay(ctx.Sender, ctx.Value, "echo")
	case "overspend":
		return ctx.Pay(ctx.Sender, ctx.Balance+1, "too much")
	}
	return nil
}

func (r *recorder) Clone() Behavior {
	return &recorder{Seen: append([]string(nil), r.Seen...)}
}

func (r *recorder) Snapshot() ([]byte, error) {
	return json.Marshal(r)
}

var recorderCode = Code{
	Hash: testCode,
	Deploy: func(models.Address, []byte) (Behavior, error) {
		return &recorder{}, nil
	},
	Restore: func(snapshot []byte) (Behavior, error) {
		r := &recorder{}
		return r, json.Unmarshal(snapshot, r)
	},
}

func newTestRuntime(t *testing.T, store *memory.Store, cfg Config) *Runtime {
	t.Helper()
	cfg.Clock = func() time.Time { return time.Unix(1_700_000_000, 0) }
	rt, err := New(context.Background(), store, cfg, recorderCode)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(ctx)
	})
	return rt
}

func deployRecorder(t *testing.T, rt *Runtime, index uint64) models.Address {
	t.Helper()
	addr, err := rt.Deploy(context.Background(), testCode, protocol.InitData{Index: index, Parent: owner}.Encode())
	require.NoError(t, err)
	return addr
}

func transfer(comment string) []byte {
	return protocol.Encode(&protocol.Transfer{Comment: comment}, 0)
}

func seen(t *testing.T, rt *Runtime, addr models.Address) []string {
	t.Helper()
	out, err := Ask(context.Background(), rt, addr, func(b Behavior) ([]string, error) {
		return append([]string(nil), b.(*recorder).Seen...), nil
	})
	require.NoError(t, err)
	return out
}

func settle(t *testing.T, rt *Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Settle(ctx))
}

func TestCommitCreditsValue(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rt := newTestRuntime(t, store, Config{})
	addr := deployRecorder(t, rt, 0)
	require.NoError(t, rt.Mint(ctx, wallet, models.Units(10)))

	r, err := rt.SubmitWait(ctx, wallet, addr, models.Units(3), transfer("keep"))
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.Equal(t, GasPerMessage, r.GasUsed)

	settle(t, rt)
	assert.Equal(t, models.Units(7), rt.Balance(wallet))
	assert.Equal(t, models.Units(3), rt.Balance(addr))
	assert.Equal(t, []string{"keep"}, seen(t, rt, addr))

	entries, err := rt.Journal(ctx, addr, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, r.MessageID, entries[0].ID)
	assert.Equal(t, models.OutcomeOK, entries[0].Outcome)
	assert.Equal(t, wallet, entries[0].Sender)
}

func TestRejectionRollsBackAndRefunds(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{GasPrice: 10})
	addr := deployRecorder(t, rt, 0)
	require.NoError(t, rt.Mint(ctx, wallet, models.Units(1)))

	r, err := rt.SubmitWait(ctx, wallet, addr, models.Units(1), transfer("fail"))
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.ErrorIs(t, r.Err, protocol.ErrInvalidArgument)

	fee := models.Coins(GasPerMessage * 10)
	assert.Equal(t, models.Units(1)-fee, r.Refund)

	settle(t, rt)
	assert.Empty(t, seen(t, rt, addr), "rejected handler must not leave state behind")
	assert.Equal(t, models.Units(1)-fee, rt.Balance(wallet))
	assert.Zero(t, rt.Balance(addr))

	entries, err := rt.Journal(ctx, addr, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(protocol.CodeInvalidArgument), entries[0].Outcome)
}

func TestBudgetExhaustion(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{GasLimit: 50_000, GasPrice: 1})
	addr := deployRecorder(t, rt, 0)
	require.NoError(t, rt.Mint(ctx, wallet, models.Units(1)))

	r, err := rt.SubmitWait(ctx, wallet, addr, models.Units(1), transfer("burn"))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, protocol.ErrResourceExhausted)
	assert.Equal(t, uint64(50_000), r.GasUsed)
	assert.Equal(t, models.Units(1)-50_000, r.Refund)

	settle(t, rt)
	assert.Empty(t, seen(t, rt, addr))
}

func TestFeeNeverExceedsValue(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{GasPrice: 1_000})
	addr := deployRecorder(t, rt, 0)
	require.NoError(t, rt.Mint(ctx, wallet, 5))

	r, err := rt.SubmitWait(ctx, wallet, addr, 5, transfer("fail"))
	require.NoError(t, err)
	assert.Zero(t, r.Refund)
	settle(t, rt)
	assert.Zero(t, rt.Balance(wallet))
}

func TestSubmitInsufficientFunds(t *testing.T) {
	rt := newTestRuntime(t, memory.New(), Config{})
	addr := deployRecorder(t, rt, 0)

	_, err := rt.Submit(context.Background(), wallet, addr, 1, transfer("keep"))
	assert.ErrorIs(t, err, protocol.ErrInvalidAmount)
}

func TestPayAfterCommit(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{})
	addr := deployRecorder(t, rt, 0)
	require.NoError(t, rt.Mint(ctx, wallet, models.Units(2)))

	r, err := rt.SubmitWait(ctx, wallet, addr, models.Units(2), transfer("echo"))
	require.NoError(t, err)
	require.True(t, r.OK())

	settle(t, rt)
	assert.Equal(t, models.Units(2), rt.Balance(wallet))
	assert.Zero(t, rt.Balance(addr))
}

func TestOverspendRejected(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{GasPrice: 1})
	addr := deployRecorder(t, rt, 0)
	require.NoError(t, rt.Mint(ctx, wallet, models.Units(1)))

	r, err := rt.SubmitWait(ctx, wallet, addr, models.Units(1), transfer("overspend"))
	require.NoError(t, err)
	assert.ErrorIs(t, r.Err, protocol.ErrInvalidAmount)
	settle(t, rt)
	assert.Zero(t, rt.Balance(addr))
}

func TestSpawnOnFirstMessage(t *testing.T) {
	rt := newTestRuntime(t, memory.New(), Config{})
	data := protocol.InitData{Index: 7, Parent: owner}.Encode()
	addr := protocol.DeriveAddress(testCode, data)

	t.Run("matching init spawns", func(t *testing.T) {
		rt.deliver(&Message{From: owner, To: addr, Body: transfer("hello"), Init: &StateInit{Code: testCode, Data: data}})
		settle(t, rt)
		assert.Equal(t, []string{"hello"}, seen(t, rt, addr))
	})

	t.Run("mismatched init bounces", func(t *testing.T) {
		other := models.MustParseAddress("0x00000000000000000000000000000000000000c3")
		rt.deliver(&Message{From: owner, To: other, Body: transfer("x"), Init: &StateInit{Code: testCode, Data: data}})
		settle(t, rt)

		_, err := rt.Query(context.Background(), other, func(Behavior) (any, error) { return nil, nil })
		assert.ErrorIs(t, err, protocol.ErrNotFound)

		entries, err := rt.Journal(context.Background(), other, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, string(protocol.CodeInvalidArgument), entries[0].Outcome)
	})
}

func TestWalletDelivery(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{})
	require.NoError(t, rt.Mint(ctx, wallet, models.Units(4)))
	target := models.MustParseAddress("0x00000000000000000000000000000000000000d4")

	t.Run("transfer credits", func(t *testing.T) {
		r, err := rt.SubmitWait(ctx, wallet, target, models.Units(1), nil)
		require.NoError(t, err)
		assert.True(t, r.OK())
		assert.Equal(t, models.Units(1), rt.Balance(target))
	})

	t.Run("opcode bounces with full refund", func(t *testing.T) {
		r, err := rt.SubmitWait(ctx, wallet, target, models.Units(1), protocol.Encode(&protocol.ResumeFactory{}, 0))
		require.NoError(t, err)
		assert.ErrorIs(t, r.Err, protocol.ErrNotFound)
		assert.Equal(t, models.Units(1), r.Refund)
		settle(t, rt)
		assert.Equal(t, models.Units(3), rt.Balance(wallet))
		assert.Equal(t, models.Units(1), rt.Balance(target))
	})
}

func TestMailboxOrder(t *testing.T) {
	ctx := context.Background()
	rt := newTestRuntime(t, memory.New(), Config{})
	addr := deployRecorder(t, rt, 0)

	var want []string
	for i := 0; i < 200; i++ {
		c := fmt.Sprintf("m%d", i)
		want = append(want, c)
		_, err := rt.Submit(ctx, wallet, addr, 0, transfer(c))
		require.NoError(t, err)
	}
	settle(t, rt)
	assert.Equal(t, want, seen(t, rt, addr))
}

func TestPassivation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	rt := newTestRuntime(t, store, Config{MaxLiveActors: 1})
	a := deployRecorder(t, rt, 0)
	b := deployRecorder(t, rt, 1)

	for _, step := range []struct {
		to      models.Address
		comment string
	}{{a, "a1"}, {b, "b1"}, {a, "a2"}, {b, "b2"}, {a, "a3"}} {
		_, err := rt.Submit(ctx, wallet, step.to, 0, transfer(step.comment))
		require.NoError(t, err)
	}
	settle(t, rt)

	assert.Equal(t, []string{"a1", "a2", "a3"}, seen(t, rt, a))
	assert.Equal(t, []string{"b1", "b2"}, seen(t, rt, b))

	t.Run("restart rehydrates from store", func(t *testing.T) {
		require.NoError(t, rt.Mint(ctx, wallet, 42))
		fresh := newTestRuntime(t, store, Config{})
		assert.Equal(t, []string{"a1", "a2", "a3"}, seen(t, fresh, a))
		assert.Equal(t, []string{"b1", "b2"}, seen(t, fresh, b))
		assert.Equal(t, models.Coins(42), fresh.Balance(wallet))
	})
}

func TestSubmitAfterClose(t *testing.T) {
	rt := newTestRuntime(t, memory.New(), Config{})
	require.NoError(t, rt.Close(context.Background()))

	_, err := rt.Submit(context.Background(), wallet, owner, 0, nil)
	assert.ErrorIs(t, err, ErrClosed)
}
