package ledger

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
	"github.com/mmynk/groupledger/internal/storage/memory"
)

var (
	operator = models.Address{19: 0x01}
	alice    = models.Address{19: 0xa1}
	bob      = models.Address{19: 0xb0}
	carol    = models.Address{19: 0xc0}
	dave     = models.Address{19: 0xd0}
	eve      = models.Address{19: 0xe0}
)

const startTime = 1_700_000_000

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *memory.Store
	rt       *runtime.Runtime
	now      atomic.Int64
	registry models.Address
}

func newHarness(t *testing.T, cfg runtime.Config) *harness {
	t.Helper()
	h := &harness{t: t, ctx: context.Background(), store: memory.New()}
	h.now.Store(startTime)
	h.start(cfg)
	return h
}

func (h *harness) start(cfg runtime.Config) {
	h.t.Helper()
	if cfg.GasPrice == 0 {
		cfg.GasPrice = 1
	}
	cfg.Clock = func() time.Time { return time.Unix(h.now.Load(), 0) }

	rt, err := runtime.New(h.ctx, h.store, cfg, Codes()...)
	require.NoError(h.t, err)
	h.t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(ctx)
	})
	h.rt = rt

	h.registry, err = rt.Deploy(h.ctx, protocol.RegistryCode, RegistryInit(operator))
	require.NoError(h.t, err)
	require.Equal(h.t, RegistryAddress(operator), h.registry)
}

func (h *harness) advance(d time.Duration) {
	h.now.Add(int64(d / time.Second))
}

func (h *harness) fund(addr models.Address, amount models.Coins) {
	h.t.Helper()
	require.NoError(h.t, h.rt.Mint(h.ctx, addr, amount))
}

// send submits body and waits until the whole network is quiet again.
func (h *harness) send(from, to models.Address, value models.Coins, body protocol.Body) *runtime.Receipt {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	r, err := h.rt.SubmitWait(ctx, from, to, value, protocol.Encode(body, 0))
	require.NoError(h.t, err)
	require.NoError(h.t, h.rt.Settle(ctx))
	return r
}

func (h *harness) ok(from, to models.Address, value models.Coins, body protocol.Body) {
	h.t.Helper()
	r := h.send(from, to, value, body)
	require.True(h.t, r.OK(), "%s rejected: %v", body.Opcode(), r.Err)
}

func (h *harness) reject(from, to models.Address, value models.Coins, body protocol.Body, want *protocol.Error) *runtime.Receipt {
	h.t.Helper()
	r := h.send(from, to, value, body)
	require.False(h.t, r.OK(), "%s should be rejected", body.Opcode())
	require.ErrorIs(h.t, r.Err, want)
	assert.Equal(h.t, value-min(value, models.Coins(r.GasUsed)), r.Refund, "refund must be value minus gas")
	return r
}

// newGroup registers a group administered by admin and returns its address.
func (h *harness) newGroup(admin models.Address, name string) models.Address {
	h.t.Helper()
	status := h.registryStatus()
	h.fund(admin, status.RegistrationFee)
	h.ok(admin, h.registry, status.RegistrationFee, &protocol.RegisterGroup{Name: name, Hash: "hash-" + name, Admin: admin})
	return GroupAddress(h.registry, status.TotalGroups)
}

func (h *harness) addMembers(group, admin models.Address, members ...models.Address) {
	h.t.Helper()
	for _, m := range members {
		h.ok(admin, group, 0, &protocol.AddMember{Member: m, DisplayName: "member"})
	}
}

func (h *harness) registryStatus() models.RegistryStatus {
	h.t.Helper()
	s, err := RegistryStatus(h.ctx, h.rt, h.registry)
	require.NoError(h.t, err)
	return s
}

func (h *harness) group(addr models.Address) models.GroupInfo {
	h.t.Helper()
	info, err := GroupInfo(h.ctx, h.rt, addr)
	require.NoError(h.t, err)
	return info
}

func (h *harness) memberEntry(group, member models.Address) models.MemberEntry {
	h.t.Helper()
	entry, err := MemberEntry(h.ctx, h.rt, group, member)
	require.NoError(h.t, err)
	return entry
}

func (h *harness) memberRecord(group, member models.Address) models.MemberRecord {
	h.t.Helper()
	rec, err := MemberRecord(h.ctx, h.rt, h.memberEntry(group, member).Actor)
	require.NoError(h.t, err)
	return rec
}

func TestRegisterGroup(t *testing.T) {
	h := newHarness(t, runtime.Config{})
	fee := DefaultRegistrationFee
	h.fund(alice, models.Units(1))

	h.ok(alice, h.registry, models.Units(1), &protocol.RegisterGroup{Name: "Trip", Hash: "h1", Admin: alice})

	status := h.registryStatus()
	assert.Equal(t, uint64(1), status.TotalGroups)
	assert.Equal(t, fee, status.FeesCollected)
	assert.Equal(t, models.Units(1)-fee, h.rt.Balance(alice), "surplus must come back")
	assert.Equal(t, fee, h.rt.Balance(h.registry))

	group := GroupAddress(h.registry, 0)
	info := h.group(group)
	assert.True(t, info.Initialized)
	assert.True(t, info.Active)
	assert.Equal(t, "Trip", info.Name)
	assert.Equal(t, "h1", info.Hash)
	assert.Equal(t, alice, info.Admin)
	assert.Equal(t, h.registry, info.Registry)
	assert.Equal(t, int64(startTime), info.CreatedAt)
	assert.Equal(t, models.DefaultSettings(), info.Settings)
}

func TestRegisterGroupRejections(t *testing.T) {
	fee := DefaultRegistrationFee

	tests := []struct {
		name  string
		setup func(h *harness)
		value models.Coins
		msg   *protocol.RegisterGroup
		want  *protocol.Error
	}{
		{
			name:  "fee short",
			value: fee - 1,
			msg:   &protocol.RegisterGroup{Name: "g", Admin: alice},
			want:  protocol.ErrInvalidAmount,
		},
		{
			name:  "empty name",
			value: fee,
			msg:   &protocol.RegisterGroup{Admin: alice},
			want:  protocol.ErrInvalidArgument,
		},
		{
			name:  "null admin",
			value: fee,
			msg:   &protocol.RegisterGroup{Name: "g"},
			want:  protocol.ErrInvalidParticipant,
		},
		{
			name: "stopped registry",
			setup: func(h *harness) {
				h.ok(operator, h.registry, 0, &protocol.EmergencyStop{Reason: "incident"})
			},
			value: fee,
			msg:   &protocol.RegisterGroup{Name: "g", Admin: alice},
			want:  protocol.ErrInactive,
		},
		{
			name: "admin at cap",
			setup: func(h *harness) {
				h.ok(operator, h.registry, 0, &protocol.UpdateFactorySettings{MaxGroupsPerAdmin: 1})
				h.newGroup(alice, "first")
			},
			value: fee,
			msg:   &protocol.RegisterGroup{Name: "second", Admin: alice},
			want:  protocol.ErrLimitExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, runtime.Config{})
			if tt.setup != nil {
				tt.setup(h)
			}
			before := h.registryStatus()
			h.fund(bob, tt.value)

			r := h.reject(bob, h.registry, tt.value, tt.msg, tt.want)

			after := h.registryStatus()
			assert.Equal(t, before.TotalGroups, after.TotalGroups)
			assert.Equal(t, before.FeesCollected, after.FeesCollected)
			assert.Equal(t, r.Refund, h.rt.Balance(bob))
		})
	}
}

func TestRegistryOwnerOperations(t *testing.T) {
	h := newHarness(t, runtime.Config{})

	t.Run("only the owner may stop", func(t *testing.T) {
		h.reject(alice, h.registry, 0, &protocol.EmergencyStop{Reason: "nope"}, protocol.ErrUnauthorized)
		h.reject(alice, h.registry, 0, &protocol.UpdateFactorySettings{MaxGroupsPerAdmin: 3}, protocol.ErrUnauthorized)
		assert.True(t, h.registryStatus().IsActive)
	})

	t.Run("stop and resume", func(t *testing.T) {
		h.ok(operator, h.registry, 0, &protocol.EmergencyStop{Reason: "maintenance"})
		s := h.registryStatus()
		assert.False(t, s.IsActive)
		assert.Equal(t, "maintenance", s.StopReason)

		h.ok(operator, h.registry, 0, &protocol.ResumeFactory{})
		s = h.registryStatus()
		assert.True(t, s.IsActive)
		assert.Empty(t, s.StopReason)
	})

	t.Run("zero fields leave settings unchanged", func(t *testing.T) {
		h.ok(operator, h.registry, 0, &protocol.UpdateFactorySettings{RegistrationFee: models.Units(2)})
		s := h.registryStatus()
		assert.Equal(t, models.Units(2), s.RegistrationFee)
		assert.Equal(t, DefaultMaxGroupsPerAdmin, s.MaxGroupsPerAdmin)

		h.ok(operator, h.registry, 0, &protocol.UpdateFactorySettings{MaxGroupsPerAdmin: 4})
		s = h.registryStatus()
		assert.Equal(t, models.Units(2), s.RegistrationFee)
		assert.Equal(t, uint32(4), s.MaxGroupsPerAdmin)
	})
}

func TestGroupAddressIsDeterministic(t *testing.T) {
	h := newHarness(t, runtime.Config{})
	predicted := GroupAddress(h.registry, 0)

	_, err := GroupInfo(h.ctx, h.rt, predicted)
	require.ErrorIs(t, err, protocol.ErrNotFound, "nothing lives there before registration")

	got := h.newGroup(alice, "g")
	assert.Equal(t, predicted, got)
	assert.NotEqual(t, GroupAddress(h.registry, 0), GroupAddress(h.registry, 1))
}

func TestTransferReturnsValue(t *testing.T) {
	h := newHarness(t, runtime.Config{})
	group := h.newGroup(alice, "g")
	h.fund(eve, models.Units(1))

	h.ok(eve, group, models.Units(1), &protocol.Transfer{Comment: "hello"})
	assert.Equal(t, models.Units(1), h.rt.Balance(eve))
	assert.Zero(t, h.rt.Balance(group))
}

func TestMalformedMessageRefunds(t *testing.T) {
	h := newHarness(t, runtime.Config{})
	group := h.newGroup(alice, "g")
	h.fund(eve, models.Units(1))

	r, err := h.rt.SubmitWait(h.ctx, eve, group, models.Units(1), []byte{0x08, 0xff, 0xff, 0xff, 0xff, 0x0f})
	require.NoError(t, err)
	require.NoError(t, h.rt.Settle(h.ctx))
	assert.ErrorIs(t, r.Err, protocol.ErrInvalidOpcode)
	assert.Equal(t, r.Refund, h.rt.Balance(eve))
	assert.Equal(t, models.Units(1)-models.Coins(r.GasUsed), r.Refund)
}

func TestBudgetExhaustionRollsBack(t *testing.T) {
	h := newHarness(t, runtime.Config{GasLimit: 20_000})
	group := h.newGroup(alice, "big")

	participants := []models.Address{}
	for i := byte(1); i <= 10; i++ {
		participants = append(participants, models.Address{0: 0xf0, 19: i})
	}
	h.addMembers(group, alice, alice)
	h.addMembers(group, alice, participants...)

	h.reject(alice, group, 0, &protocol.RecordExpense{
		Description:  "too big",
		TotalAmount:  models.Units(10),
		Payer:        alice,
		Participants: participants,
	}, protocol.ErrResourceExhausted)

	info := h.group(group)
	assert.Zero(t, info.ExpenseCount)
	assert.Zero(t, info.NextDebtID)
}

func TestPassivatedActorsKeepState(t *testing.T) {
	h := newHarness(t, runtime.Config{MaxLiveActors: 2})
	group := h.newGroup(alice, "trip")
	h.addMembers(group, alice, alice, bob, carol)
	h.ok(alice, group, 0, &protocol.RecordExpense{
		Description:  "hotel",
		TotalAmount:  models.MustParseCoins("0.3"),
		Payer:        alice,
		Participants: []models.Address{bob, carol},
		Amounts:      []models.Coins{models.MustParseCoins("0.1"), models.MustParseCoins("0.2")},
	})

	info := h.group(group)
	assert.Equal(t, uint32(3), info.MemberCount)
	assert.Equal(t, uint64(1), info.ExpenseCount)
	assert.Equal(t, models.MustParseCoins("0.2"), h.memberRecord(group, carol).TotalOwed)

	t.Run("restart", func(t *testing.T) {
		h.start(runtime.Config{})
		assert.Equal(t, info, h.group(group))
		assert.Equal(t, models.MustParseCoins("0.1"), h.memberRecord(group, bob).TotalOwed)
		assert.Equal(t, uint64(1), h.registryStatus().TotalGroups)
	})
}
