package service

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/models"
)

// LedgerServiceClient is a typed client for the LedgerService.
type LedgerServiceClient struct {
	submit             *connect.Client[SubmitRequest, SubmitResponse]
	registryStatus     *connect.Client[RegistryRequest, models.RegistryStatus]
	groupAddress       *connect.Client[GroupAddressRequest, AddressResponse]
	group              *connect.Client[GroupRequest, models.GroupInfo]
	members            *connect.Client[ListRequest, MembersResponse]
	memberActor        *connect.Client[MemberActorRequest, models.MemberEntry]
	joinRequests       *connect.Client[ListRequest, JoinRequestsResponse]
	goals              *connect.Client[ListRequest, GoalsResponse]
	goal               *connect.Client[EntityRequest, models.Goal]
	expenses           *connect.Client[ListRequest, ExpensesResponse]
	expense            *connect.Client[EntityRequest, models.Expense]
	debts              *connect.Client[ListRequest, DebtsResponse]
	debt               *connect.Client[EntityRequest, models.Debt]
	suggestSettlements *connect.Client[GroupRequest, SettlementsResponse]
	member             *connect.Client[AddressRequest, models.MemberRecord]
	balance            *connect.Client[AddressRequest, BalanceResponse]
	journal            *connect.Client[JournalRequest, JournalResponse]
	previewSplit       *connect.Client[PreviewSplitRequest, PreviewSplitResponse]
}

// NewLedgerServiceClient constructs a client for the LedgerService at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &LedgerServiceClient{
		submit:             connect.NewClient[SubmitRequest, SubmitResponse](httpClient, baseURL+SubmitProcedure, opts...),
		registryStatus:     connect.NewClient[RegistryRequest, models.RegistryStatus](httpClient, baseURL+RegistryStatusProcedure, opts...),
		groupAddress:       connect.NewClient[GroupAddressRequest, AddressResponse](httpClient, baseURL+GroupAddressProcedure, opts...),
		group:              connect.NewClient[GroupRequest, models.GroupInfo](httpClient, baseURL+GroupProcedure, opts...),
		members:            connect.NewClient[ListRequest, MembersResponse](httpClient, baseURL+MembersProcedure, opts...),
		memberActor:        connect.NewClient[MemberActorRequest, models.MemberEntry](httpClient, baseURL+MemberActorProcedure, opts...),
		joinRequests:       connect.NewClient[ListRequest, JoinRequestsResponse](httpClient, baseURL+JoinRequestsProcedure, opts...),
		goals:              connect.NewClient[ListRequest, GoalsResponse](httpClient, baseURL+GoalsProcedure, opts...),
		goal:               connect.NewClient[EntityRequest, models.Goal](httpClient, baseURL+GoalProcedure, opts...),
		expenses:           connect.NewClient[ListRequest, ExpensesResponse](httpClient, baseURL+ExpensesProcedure, opts...),
		expense:            connect.NewClient[EntityRequest, models.Expense](httpClient, baseURL+ExpenseProcedure, opts...),
		debts:              connect.NewClient[ListRequest, DebtsResponse](httpClient, baseURL+DebtsProcedure, opts...),
		debt:               connect.NewClient[EntityRequest, models.Debt](httpClient, baseURL+DebtProcedure, opts...),
		suggestSettlements: connect.NewClient[GroupRequest, SettlementsResponse](httpClient, baseURL+SuggestSettlementsProcedure, opts...),
		member:             connect.NewClient[AddressRequest, models.MemberRecord](httpClient, baseURL+MemberProcedure, opts...),
		balance:            connect.NewClient[AddressRequest, BalanceResponse](httpClient, baseURL+BalanceProcedure, opts...),
		journal:            connect.NewClient[JournalRequest, JournalResponse](httpClient, baseURL+JournalProcedure, opts...),
		previewSplit:       connect.NewClient[PreviewSplitRequest, PreviewSplitResponse](httpClient, baseURL+PreviewSplitProcedure, opts...),
	}
}

func (c *LedgerServiceClient) Submit(ctx context.Context, req *connect.Request[SubmitRequest]) (*connect.Response[SubmitResponse], error) {
	return c.submit.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RegistryStatus(ctx context.Context, req *connect.Request[RegistryRequest]) (*connect.Response[models.RegistryStatus], error) {
	return c.registryStatus.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GroupAddress(ctx context.Context, req *connect.Request[GroupAddressRequest]) (*connect.Response[AddressResponse], error) {
	return c.groupAddress.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Group(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[models.GroupInfo], error) {
	return c.group.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Members(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[MembersResponse], error) {
	return c.members.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) MemberActor(ctx context.Context, req *connect.Request[MemberActorRequest]) (*connect.Response[models.MemberEntry], error) {
	return c.memberActor.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) JoinRequests(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[JoinRequestsResponse], error) {
	return c.joinRequests.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Goals(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[GoalsResponse], error) {
	return c.goals.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Goal(ctx context.Context, req *connect.Request[EntityRequest]) (*connect.Response[models.Goal], error) {
	return c.goal.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Expenses(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[ExpensesResponse], error) {
	return c.expenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Expense(ctx context.Context, req *connect.Request[EntityRequest]) (*connect.Response[models.Expense], error) {
	return c.expense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Debts(ctx context.Context, req *connect.Request[ListRequest]) (*connect.Response[DebtsResponse], error) {
	return c.debts.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Debt(ctx context.Context, req *connect.Request[EntityRequest]) (*connect.Response[models.Debt], error) {
	return c.debt.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SuggestSettlements(ctx context.Context, req *connect.Request[GroupRequest]) (*connect.Response[SettlementsResponse], error) {
	return c.suggestSettlements.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Member(ctx context.Context, req *connect.Request[AddressRequest]) (*connect.Response[models.MemberRecord], error) {
	return c.member.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Balance(ctx context.Context, req *connect.Request[AddressRequest]) (*connect.Response[BalanceResponse], error) {
	return c.balance.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) Journal(ctx context.Context, req *connect.Request[JournalRequest]) (*connect.Response[JournalResponse], error) {
	return c.journal.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) PreviewSplit(ctx context.Context, req *connect.Request[PreviewSplitRequest]) (*connect.Response[PreviewSplitResponse], error) {
	return c.previewSplit.CallUnary(ctx, req)
}

// AuthServiceClient is a typed client for the AuthService.
type AuthServiceClient struct {
	issueToken *connect.Client[IssueTokenRequest, IssueTokenResponse]
}

// NewAuthServiceClient constructs a client for the AuthService at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &AuthServiceClient{
		issueToken: connect.NewClient[IssueTokenRequest, IssueTokenResponse](httpClient, baseURL+IssueTokenProcedure, opts...),
	}
}

func (c *AuthServiceClient) IssueToken(ctx context.Context, req *connect.Request[IssueTokenRequest]) (*connect.Response[IssueTokenResponse], error) {
	return c.issueToken.CallUnary(ctx, req)
}
