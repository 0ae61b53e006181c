// Package service exposes the ledger runtime over connect RPC.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/middleware"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "groupledger.v1.LedgerService"

// Procedure paths of the LedgerService.
const (
	SubmitProcedure             = "/" + LedgerServiceName + "/Submit"
	RegistryStatusProcedure     = "/" + LedgerServiceName + "/RegistryStatus"
	GroupAddressProcedure       = "/" + LedgerServiceName + "/GroupAddress"
	GroupProcedure              = "/" + LedgerServiceName + "/Group"
	MembersProcedure            = "/" + LedgerServiceName + "/Members"
	MemberActorProcedure        = "/" + LedgerServiceName + "/MemberActor"
	JoinRequestsProcedure       = "/" + LedgerServiceName + "/JoinRequests"
	GoalsProcedure              = "/" + LedgerServiceName + "/Goals"
	GoalProcedure               = "/" + LedgerServiceName + "/Goal"
	ExpensesProcedure           = "/" + LedgerServiceName + "/Expenses"
	ExpenseProcedure            = "/" + LedgerServiceName + "/Expense"
	DebtsProcedure              = "/" + LedgerServiceName + "/Debts"
	DebtProcedure               = "/" + LedgerServiceName + "/Debt"
	SuggestSettlementsProcedure = "/" + LedgerServiceName + "/SuggestSettlements"
	MemberProcedure             = "/" + LedgerServiceName + "/Member"
	BalanceProcedure            = "/" + LedgerServiceName + "/Balance"
	JournalProcedure            = "/" + LedgerServiceName + "/Journal"
	PreviewSplitProcedure       = "/" + LedgerServiceName + "/PreviewSplit"
)

const (
	defaultJournalLimit = 100
	maxJournalLimit     = 1000
)

// LedgerService submits messages on behalf of authenticated callers and
// answers queries against the actors of one runtime.
type LedgerService struct {
	rt          *runtime.Runtime
	registry    models.Address
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewLedgerService creates a LedgerService. registry is the default target
// of registry queries. waitTimeout bounds how long a waiting Submit holds
// the call; 0 means until the client gives up.
func NewLedgerService(rt *runtime.Runtime, registry models.Address, waitTimeout time.Duration, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{
		rt:          rt,
		registry:    registry,
		waitTimeout: waitTimeout,
		logger:      logger.With("component", "ledger_service"),
	}
}

// NewLedgerServiceHandler builds an HTTP handler serving every LedgerService
// procedure. It returns the path to mount it on. Submit requires a bearer
// token; queries accept anonymous callers.
func NewLedgerServiceHandler(svc *LedgerService, jwtManager *auth.JWTManager, opts ...connect.HandlerOption) (string, http.Handler) {
	logging := middleware.LoggingInterceptor(svc.logger)
	write := append([]connect.HandlerOption{WithJSON(), connect.WithInterceptors(middleware.RequireAuth(jwtManager), logging)}, opts...)
	read := append([]connect.HandlerOption{WithJSON(), connect.WithInterceptors(middleware.OptionalAuth(jwtManager), logging)}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SubmitProcedure, unary(SubmitProcedure, svc.Submit, write...))
	mux.Handle(RegistryStatusProcedure, unary(RegistryStatusProcedure, svc.RegistryStatus, read...))
	mux.Handle(GroupAddressProcedure, unary(GroupAddressProcedure, svc.GroupAddress, read...))
	mux.Handle(GroupProcedure, unary(GroupProcedure, svc.Group, read...))
	mux.Handle(MembersProcedure, unary(MembersProcedure, svc.Members, read...))
	mux.Handle(MemberActorProcedure, unary(MemberActorProcedure, svc.MemberActor, read...))
	mux.Handle(JoinRequestsProcedure, unary(JoinRequestsProcedure, svc.JoinRequests, read...))
	mux.Handle(GoalsProcedure, unary(GoalsProcedure, svc.Goals, read...))
	mux.Handle(GoalProcedure, unary(GoalProcedure, svc.Goal, read...))
	mux.Handle(ExpensesProcedure, unary(ExpensesProcedure, svc.Expenses, read...))
	mux.Handle(ExpenseProcedure, unary(ExpenseProcedure, svc.Expense, read...))
	mux.Handle(DebtsProcedure, unary(DebtsProcedure, svc.Debts, read...))
	mux.Handle(DebtProcedure, unary(DebtProcedure, svc.Debt, read...))
	mux.Handle(SuggestSettlementsProcedure, unary(SuggestSettlementsProcedure, svc.SuggestSettlements, read...))
	mux.Handle(MemberProcedure, unary(MemberProcedure, svc.Member, read...))
	mux.Handle(BalanceProcedure, unary(BalanceProcedure, svc.Balance, read...))
	mux.Handle(JournalProcedure, unary(JournalProcedure, svc.Journal, read...))
	mux.Handle(PreviewSplitProcedure, unary(PreviewSplitProcedure, svc.PreviewSplit, read...))
	return "/" + LedgerServiceName + "/", mux
}

// unary adapts a plain request/response method to a connect handler and
// translates its errors.
func unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts ...connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, toConnectError(err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	)
}

// Submit sends a message from the caller named by the bearer token.
// A waiting Submit succeeds whenever the message was processed; the
// receipt says whether it committed.
func (s *LedgerService) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	caller, ok := middleware.GetCaller(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if req.To.IsZero() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("missing target address"))
	}

	op, _ := protocol.PeekOpcode(req.Body)
	s.logger.Info("Submit request received",
		"caller", caller.Short(),
		"to", req.To.Short(),
		"opcode", op.String(),
		"value", req.Value,
		"wait", req.Wait,
	)

	if !req.Wait {
		id, err := s.rt.Submit(ctx, caller, req.To, req.Value, req.Body)
		if err != nil {
			return nil, err
		}
		return &SubmitResponse{MessageID: id}, nil
	}

	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}
	receipt, err := s.rt.SubmitWait(ctx, caller, req.To, req.Value, req.Body)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Submit processed", "msg_id", receipt.MessageID, "outcome", receipt.Outcome, "gas_used", receipt.GasUsed)
	return &SubmitResponse{MessageID: receipt.MessageID, Receipt: receiptFrom(receipt)}, nil
}

func (s *LedgerService) registryOr(addr models.Address) models.Address {
	if addr.IsZero() {
		return s.registry
	}
	return addr
}

func (s *LedgerService) RegistryStatus(ctx context.Context, req *RegistryRequest) (*models.RegistryStatus, error) {
	status, err := ledger.RegistryStatus(ctx, s.rt, s.registryOr(req.Registry))
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GroupAddress derives the address a group registered under index has or
// will have. It does not consult the registry.
func (s *LedgerService) GroupAddress(_ context.Context, req *GroupAddressRequest) (*AddressResponse, error) {
	return &AddressResponse{Address: ledger.GroupAddress(s.registryOr(req.Registry), req.Index)}, nil
}

func (s *LedgerService) Group(ctx context.Context, req *GroupRequest) (*models.GroupInfo, error) {
	info, err := ledger.GroupInfo(ctx, s.rt, req.Group)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *LedgerService) Members(ctx context.Context, req *ListRequest) (*MembersResponse, error) {
	members, err := ledger.Members(ctx, s.rt, req.Group, page(req))
	if err != nil {
		return nil, err
	}
	return &MembersResponse{Members: members}, nil
}

func (s *LedgerService) MemberActor(ctx context.Context, req *MemberActorRequest) (*models.MemberEntry, error) {
	entry, err := ledger.MemberEntry(ctx, s.rt, req.Group, req.Member)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *LedgerService) JoinRequests(ctx context.Context, req *ListRequest) (*JoinRequestsResponse, error) {
	requests, err := ledger.JoinRequests(ctx, s.rt, req.Group, page(req))
	if err != nil {
		return nil, err
	}
	return &JoinRequestsResponse{Requests: requests}, nil
}

func (s *LedgerService) Goals(ctx context.Context, req *ListRequest) (*GoalsResponse, error) {
	goals, err := ledger.Goals(ctx, s.rt, req.Group, page(req))
	if err != nil {
		return nil, err
	}
	return &GoalsResponse{Goals: goals}, nil
}

func (s *LedgerService) Goal(ctx context.Context, req *EntityRequest) (*models.Goal, error) {
	goal, err := ledger.Goal(ctx, s.rt, req.Group, req.ID)
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (s *LedgerService) Expenses(ctx context.Context, req *ListRequest) (*ExpensesResponse, error) {
	expenses, err := ledger.Expenses(ctx, s.rt, req.Group, page(req))
	if err != nil {
		return nil, err
	}
	return &ExpensesResponse{Expenses: expenses}, nil
}

func (s *LedgerService) Expense(ctx context.Context, req *EntityRequest) (*models.Expense, error) {
	expense, err := ledger.Expense(ctx, s.rt, req.Group, req.ID)
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *LedgerService) Debts(ctx context.Context, req *ListRequest) (*DebtsResponse, error) {
	debts, err := ledger.Debts(ctx, s.rt, req.Group, page(req))
	if err != nil {
		return nil, err
	}
	return &DebtsResponse{Debts: debts}, nil
}

func (s *LedgerService) Debt(ctx context.Context, req *EntityRequest) (*models.Debt, error) {
	debt, err := ledger.Debt(ctx, s.rt, req.Group, req.ID)
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

// SuggestSettlements returns the fewest transfers that clear the group's
// outstanding debts.
func (s *LedgerService) SuggestSettlements(ctx context.Context, req *GroupRequest) (*SettlementsResponse, error) {
	edges, err := ledger.SuggestSettlements(ctx, s.rt, req.Group)
	if err != nil {
		return nil, err
	}
	return &SettlementsResponse{Settlements: edges}, nil
}

func (s *LedgerService) Member(ctx context.Context, req *AddressRequest) (*models.MemberRecord, error) {
	record, err := ledger.MemberRecord(ctx, s.rt, req.Address)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *LedgerService) Balance(_ context.Context, req *AddressRequest) (*BalanceResponse, error) {
	return &BalanceResponse{Address: req.Address, Balance: s.rt.Balance(req.Address)}, nil
}

// Journal returns the newest journal entries of an address, newest first.
func (s *LedgerService) Journal(ctx context.Context, req *JournalRequest) (*JournalResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	limit = min(limit, maxJournalLimit)

	entries, err := s.rt.Journal(ctx, req.Address, limit)
	if err != nil {
		return nil, err
	}
	return &JournalResponse{Entries: entries}, nil
}

// PreviewSplit runs the item-based bill calculator without touching any
// actor. Clients use the result as the split of a RecordExpense.
func (s *LedgerService) PreviewSplit(_ context.Context, req *PreviewSplitRequest) (*PreviewSplitResponse, error) {
	subtotal := req.Subtotal
	if subtotal == 0 {
		subtotal = req.Total
	}
	for i, item := range req.Items {
		s.logger.Debug("Processing item",
			"index", i+1,
			"description", item.Description,
			"amount", item.Amount,
			"assigned", len(item.AssignedTo),
		)
	}

	splits, err := calculator.CalculateSplit(req.Items, req.Total, subtotal, req.Participants)
	if errors.Is(err, models.ErrCoinsOverflow) {
		return nil, protocol.Wrap(protocol.CodeInvalidAmount, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	shares := make([]models.Share, 0, len(req.Participants))
	for _, p := range req.Participants {
		shares = append(shares, models.Share{Participant: p, Amount: splits[p].Total})
	}
	return &PreviewSplitResponse{
		Splits:   splits,
		Subtotal: subtotal,
		Tax:      req.Total - subtotal,
		Shares:   shares,
	}, nil
}

func page(req *ListRequest) ledger.Page {
	return ledger.Page{Offset: req.Offset, Limit: req.Limit}
}
