package service

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
	"github.com/mmynk/groupledger/internal/storage/sqlite"
)

var (
	operator = models.MustParseAddress("0x0000000000000000000000000000000000000001")
	alice    = models.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob      = models.MustParseAddress("0x00000000000000000000000000000000000000b0")
	carol    = models.MustParseAddress("0x00000000000000000000000000000000000000c0")
)

type testServer struct {
	rt       *runtime.Runtime
	registry models.Address
	jwt      *auth.JWTManager
	ledger   *LedgerServiceClient
	auth     *AuthServiceClient
}

// setupTestServer runs both services over a sqlite-backed runtime.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)

	rt, err := runtime.New(ctx, store, runtime.Config{GasPrice: 1}, ledger.Codes()...)
	require.NoError(t, err)
	registry, err := rt.Deploy(ctx, protocol.RegistryCode, ledger.RegistryInit(operator))
	require.NoError(t, err)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	mux := http.NewServeMux()
	mux.Handle(NewLedgerServiceHandler(NewLedgerService(rt, registry, 5*time.Second, nil), jwtManager))
	mux.Handle(NewAuthServiceHandler(NewAuthService(jwtManager, nil)))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(ctx)
		store.Close()
	})

	return &testServer{
		rt:       rt,
		registry: registry,
		jwt:      jwtManager,
		ledger:   NewLedgerServiceClient(http.DefaultClient, server.URL),
		auth:     NewAuthServiceClient(http.DefaultClient, server.URL),
	}
}

func (s *testServer) fund(t *testing.T, addr models.Address, amount models.Coins) {
	t.Helper()
	require.NoError(t, s.rt.Mint(context.Background(), addr, amount))
}

// submit sends body as caller, waits for the receipt and for the network
// to go quiet.
func (s *testServer) submit(t *testing.T, caller, to models.Address, value models.Coins, body protocol.Body) *Receipt {
	t.Helper()
	token, err := s.jwt.Generate(caller, "")
	require.NoError(t, err)

	req := connect.NewRequest(&SubmitRequest{To: to, Value: value, Body: protocol.Encode(body, 0), Wait: true})
	req.Header().Set("Authorization", "Bearer "+token)
	resp, err := s.ledger.Submit(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Msg.Receipt)
	assert.Equal(t, resp.Msg.MessageID, resp.Msg.Receipt.MessageID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.rt.Settle(ctx))
	return resp.Msg.Receipt
}

func (s *testServer) newGroup(t *testing.T, admin models.Address, members ...models.Address) models.Address {
	t.Helper()
	ctx := context.Background()

	status, err := s.ledger.RegistryStatus(ctx, connect.NewRequest(&RegistryRequest{}))
	require.NoError(t, err)
	fee := status.Msg.RegistrationFee
	s.fund(t, admin, fee)

	r := s.submit(t, admin, s.registry, fee, &protocol.RegisterGroup{Name: "Roommates", Hash: "h1", Admin: admin})
	require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)

	addr, err := s.ledger.GroupAddress(ctx, connect.NewRequest(&GroupAddressRequest{Index: status.Msg.TotalGroups}))
	require.NoError(t, err)
	group := addr.Msg.Address

	for _, m := range members {
		r := s.submit(t, admin, group, 0, &protocol.AddMember{Member: m, DisplayName: "m"})
		require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)
	}
	return group
}

func TestIssueToken(t *testing.T) {
	s := setupTestServer(t)

	resp, err := s.auth.IssueToken(context.Background(), connect.NewRequest(&IssueTokenRequest{Caller: alice, Label: "alice"}))
	require.NoError(t, err)
	assert.Greater(t, resp.Msg.ExpiresAt, time.Now().Unix())

	claims, err := s.jwt.Validate(resp.Msg.Token)
	require.NoError(t, err)
	caller, err := claims.Caller()
	require.NoError(t, err)
	assert.Equal(t, alice, caller)

	_, err = s.auth.IssueToken(context.Background(), connect.NewRequest(&IssueTokenRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestSubmitRequiresAuth(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.ledger.Submit(context.Background(), connect.NewRequest(&SubmitRequest{To: s.registry}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestSubmitInsufficientFunds(t *testing.T) {
	s := setupTestServer(t)
	token, err := s.jwt.Generate(alice, "")
	require.NoError(t, err)

	req := connect.NewRequest(&SubmitRequest{To: s.registry, Value: models.Units(1)})
	req.Header().Set("Authorization", "Bearer "+token)
	_, err = s.ledger.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	assert.Equal(t, protocol.CodeInvalidAmount, RejectionCode(err))
}

func TestRegisterGroupOverRPC(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	group := s.newGroup(t, alice)

	status, err := s.ledger.RegistryStatus(ctx, connect.NewRequest(&RegistryRequest{Registry: s.registry}))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), status.Msg.TotalGroups)
	assert.Equal(t, operator, status.Msg.Owner)
	assert.Equal(t, ledger.DefaultRegistrationFee, status.Msg.FeesCollected)

	info, err := s.ledger.Group(ctx, connect.NewRequest(&GroupRequest{Group: group}))
	require.NoError(t, err)
	assert.Equal(t, "Roommates", info.Msg.Name)
	assert.Equal(t, alice, info.Msg.Admin)
	assert.True(t, info.Msg.Initialized)

	// Indexes not registered yet still derive.
	next, err := s.ledger.GroupAddress(ctx, connect.NewRequest(&GroupAddressRequest{Index: 1}))
	require.NoError(t, err)
	assert.Equal(t, ledger.GroupAddress(s.registry, 1), next.Msg.Address)
	_, err = s.ledger.Group(ctx, connect.NewRequest(&GroupRequest{Group: next.Msg.Address}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	assert.Equal(t, protocol.CodeNotFound, RejectionCode(err))

	journal, err := s.ledger.Journal(ctx, connect.NewRequest(&JournalRequest{Address: s.registry}))
	require.NoError(t, err)
	require.Len(t, journal.Msg.Entries, 1)
	assert.Equal(t, alice, journal.Msg.Entries[0].Sender)
	assert.Equal(t, models.OutcomeOK, journal.Msg.Entries[0].Outcome)
}

func TestRejectedSubmitReturnsReceipt(t *testing.T) {
	s := setupTestServer(t)
	group := s.newGroup(t, alice, bob)
	s.fund(t, bob, 10_000)

	r := s.submit(t, bob, group, 10_000, &protocol.AddMember{Member: carol})
	assert.Equal(t, string(protocol.CodeUnauthorized), r.Outcome)
	assert.NotEmpty(t, r.Error)
	assert.Equal(t, "add_member", r.Opcode)
	assert.Equal(t, models.Coins(10_000)-models.Coins(r.GasUsed), r.Refund)

	bal, err := s.ledger.Balance(context.Background(), connect.NewRequest(&AddressRequest{Address: bob}))
	require.NoError(t, err)
	assert.Equal(t, r.Refund, bal.Msg.Balance)
}

func TestExpenseFlowOverRPC(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	group := s.newGroup(t, alice, bob, carol)

	members, err := s.ledger.Members(ctx, connect.NewRequest(&ListRequest{Group: group}))
	require.NoError(t, err)
	require.Len(t, members.Msg.Members, 2)
	assert.Equal(t, bob, members.Msg.Members[0].Address)

	second, err := s.ledger.Members(ctx, connect.NewRequest(&ListRequest{Group: group, Offset: 1, Limit: 1}))
	require.NoError(t, err)
	require.Len(t, second.Msg.Members, 1)
	assert.Equal(t, carol, second.Msg.Members[0].Address)

	r := s.submit(t, alice, group, 0, &protocol.RecordExpense{
		Description:  "groceries",
		TotalAmount:  600,
		Payer:        alice,
		Participants: []models.Address{bob, carol},
		Amounts:      []models.Coins{300, 300},
	})
	require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)

	debts, err := s.ledger.Debts(ctx, connect.NewRequest(&ListRequest{Group: group}))
	require.NoError(t, err)
	require.Len(t, debts.Msg.Debts, 2)

	suggestions, err := s.ledger.SuggestSettlements(ctx, connect.NewRequest(&GroupRequest{Group: group}))
	require.NoError(t, err)
	assert.Len(t, suggestions.Msg.Settlements, 2)

	s.fund(t, bob, 300)
	r = s.submit(t, bob, group, 300, &protocol.SettleDebt{DebtID: 0, Amount: 300, Creditor: alice})
	require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)

	debt, err := s.ledger.Debt(ctx, connect.NewRequest(&EntityRequest{Group: group, ID: 0}))
	require.NoError(t, err)
	assert.True(t, debt.Msg.IsSettled)

	expense, err := s.ledger.Expense(ctx, connect.NewRequest(&EntityRequest{Group: group, ID: 0}))
	require.NoError(t, err)
	assert.False(t, expense.Msg.IsSettled, "carol has not paid yet")

	bal, err := s.ledger.Balance(ctx, connect.NewRequest(&AddressRequest{Address: alice}))
	require.NoError(t, err)
	assert.Equal(t, models.Coins(300), bal.Msg.Balance)

	entry, err := s.ledger.MemberActor(ctx, connect.NewRequest(&MemberActorRequest{Group: group, Member: bob}))
	require.NoError(t, err)
	record, err := s.ledger.Member(ctx, connect.NewRequest(&AddressRequest{Address: entry.Msg.Actor}))
	require.NoError(t, err)
	assert.Equal(t, bob, record.Msg.Owner)
	assert.Equal(t, uint32(1), record.Msg.DebtCount)
	assert.Zero(t, record.Msg.TotalOwed)

	_, err = s.ledger.Debt(ctx, connect.NewRequest(&EntityRequest{Group: group, ID: 9}))
	assert.Equal(t, protocol.CodeNotFound, RejectionCode(err))
}

func TestGoalsOverRPC(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	group := s.newGroup(t, alice, bob)

	deadline := time.Now().Add(24 * time.Hour).Unix()
	r := s.submit(t, alice, group, 0, &protocol.CreateGoal{Title: "trip", TargetAmount: 1000, Deadline: deadline, Recipient: carol})
	require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)

	s.fund(t, bob, 1000)
	r = s.submit(t, bob, group, 1000, &protocol.ContributeToGoal{GoalID: 0, Amount: 1000})
	require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)

	goals, err := s.ledger.Goals(ctx, connect.NewRequest(&ListRequest{Group: group}))
	require.NoError(t, err)
	require.Len(t, goals.Msg.Goals, 1)
	assert.True(t, goals.Msg.Goals[0].IsCompleted)

	goal, err := s.ledger.Goal(ctx, connect.NewRequest(&EntityRequest{Group: group}))
	require.NoError(t, err)
	assert.Equal(t, models.Coins(1000), goal.Msg.CurrentAmount)

	bal, err := s.ledger.Balance(ctx, connect.NewRequest(&AddressRequest{Address: carol}))
	require.NoError(t, err)
	assert.Equal(t, models.Coins(1000), bal.Msg.Balance)
}

func TestJoinRequestsOverRPC(t *testing.T) {
	s := setupTestServer(t)
	group := s.newGroup(t, alice)

	r := s.submit(t, bob, group, 0, &protocol.RequestJoin{DisplayName: "Bob"})
	require.Equal(t, models.OutcomeOK, r.Outcome, r.Error)

	requests, err := s.ledger.JoinRequests(context.Background(), connect.NewRequest(&ListRequest{Group: group}))
	require.NoError(t, err)
	require.Len(t, requests.Msg.Requests, 1)
	assert.Equal(t, bob, requests.Msg.Requests[0].Address)
	assert.Equal(t, "Bob", requests.Msg.Requests[0].DisplayName)
}

func TestQueryUnknownActor(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.ledger.Group(context.Background(), connect.NewRequest(&GroupRequest{Group: carol}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	// The registry is not a group.
	_, err = s.ledger.Group(context.Background(), connect.NewRequest(&GroupRequest{Group: s.registry}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestPreviewSplit(t *testing.T) {
	s := setupTestServer(t)

	t.Run("equal split", func(t *testing.T) {
		resp, err := s.ledger.PreviewSplit(context.Background(), connect.NewRequest(&PreviewSplitRequest{
			Total:        100,
			Participants: []models.Address{alice, bob},
		}))
		require.NoError(t, err)
		require.Len(t, resp.Msg.Splits, 2)
		assert.Equal(t, models.Coins(50), resp.Msg.Splits[alice].Total)
		assert.Equal(t, models.Coins(50), resp.Msg.Splits[bob].Total)
		assert.Zero(t, resp.Msg.Tax)
	})

	t.Run("items with tax", func(t *testing.T) {
		resp, err := s.ledger.PreviewSplit(context.Background(), connect.NewRequest(&PreviewSplitRequest{
			Items: []calculator.Item{
				{Description: "pizza", Amount: 600, AssignedTo: []models.Address{alice}},
				{Description: "salad", Amount: 400, AssignedTo: []models.Address{bob}},
			},
			Total:        1100,
			Subtotal:     1000,
			Participants: []models.Address{alice, bob},
		}))
		require.NoError(t, err)
		assert.Equal(t, models.Coins(100), resp.Msg.Tax)
		assert.Equal(t, models.Coins(660), resp.Msg.Splits[alice].Total)
		assert.Equal(t, models.Coins(440), resp.Msg.Splits[bob].Total)
		assert.Equal(t, []models.Share{
			{Participant: alice, Amount: 660},
			{Participant: bob, Amount: 440},
		}, resp.Msg.Shares)
	})

	t.Run("oversized item", func(t *testing.T) {
		_, err := s.ledger.PreviewSplit(context.Background(), connect.NewRequest(&PreviewSplitRequest{
			Items: []calculator.Item{
				{Description: "huge", Amount: math.MaxUint64 - 4, AssignedTo: []models.Address{alice}},
				{Description: "small", Amount: 10, AssignedTo: []models.Address{bob}},
			},
			Total:        100,
			Participants: []models.Address{alice, bob},
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
		assert.Equal(t, protocol.CodeInvalidAmount, RejectionCode(err))
	})

	t.Run("no participants", func(t *testing.T) {
		_, err := s.ledger.PreviewSplit(context.Background(), connect.NewRequest(&PreviewSplitRequest{Total: 100}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}
