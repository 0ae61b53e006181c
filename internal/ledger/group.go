package ledger

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// Group is the Group Ledger actor: roster, goals, expenses and debts of one group.
type Group struct {
	Address     models.Address  `json:"address"`
	Registry    models.Address  `json:"registry"`
	Index       uint64          `json:"index"`
	Hash        string          `json:"hash"`
	Name        string          `json:"name"`
	Admin       models.Address  `json:"admin"`
	CreatedAt   int64           `json:"created_at"`
	Initialized bool            `json:"initialized"`
	Active      bool            `json:"active"`
	Settings    models.Settings `json:"settings"`

	TotalMembersEverCreated uint64 `json:"total_members_ever_created"`

	Members map[models.Address]models.MemberEntry `json:"members"`

	// Roster lists current members in join order.
	Roster  []models.Address     `json:"roster"`
	Pending []models.JoinRequest `json:"pending"`

	// Goals, Expenses and Debts are indexed by id.
	Goals    []models.Goal    `json:"goals"`
	Expenses []models.Expense `json:"expenses"`
	Debts    []models.Debt    `json:"debts"`
}

var (
	_ runtime.Behavior   = (*Group)(nil)
	_ protocol.Authority = (*Group)(nil)
)

func deployGroup(self models.Address, data []byte) (runtime.Behavior, error) {
	init, err := protocol.DecodeInitData(data)
	if err != nil {
		return nil, err
	}
	return &Group{
		Address:  self,
		Registry: init.Parent,
		Index:    init.Index,
		Members:  make(map[models.Address]models.MemberEntry),
	}, nil
}

// Allows implements protocol.Authority.
func (g *Group) Allows(c protocol.Caller, sender models.Address) bool {
	switch c {
	case protocol.CallerAdmin:
		return g.Initialized && sender == g.Admin
	case protocol.CallerParent:
		return sender == g.Registry
	case protocol.CallerMember:
		_, ok := g.Members[sender]
		return ok
	default:
		return false
	}
}

func (g *Group) Clone() runtime.Behavior {
	c := *g
	c.Members = maps.Clone(g.Members)
	if c.Members == nil {
		c.Members = make(map[models.Address]models.MemberEntry)
	}
	c.Roster = slices.Clone(g.Roster)
	c.Pending = slices.Clone(g.Pending)
	c.Goals = slices.Clone(g.Goals)
	c.Debts = slices.Clone(g.Debts)
	c.Expenses = make([]models.Expense, len(g.Expenses))
	for i, e := range g.Expenses {
		e.DebtIDs = slices.Clone(e.DebtIDs)
		c.Expenses[i] = e
	}
	return &c
}

func (g *Group) Snapshot() ([]byte, error) {
	return json.Marshal(g)
}

// Info returns the group header with its aggregate counters.
func (g *Group) Info() models.GroupInfo {
	return models.GroupInfo{
		Address:                 g.Address,
		Registry:                g.Registry,
		Index:                   g.Index,
		Hash:                    g.Hash,
		Name:                    g.Name,
		Admin:                   g.Admin,
		CreatedAt:               g.CreatedAt,
		Initialized:             g.Initialized,
		Active:                  g.Active,
		MemberCount:             uint32(len(g.Members)),
		TotalMembersEverCreated: g.TotalMembersEverCreated,
		GoalCount:               uint64(len(g.Goals)),
		ExpenseCount:            uint64(len(g.Expenses)),
		NextDebtID:              uint64(len(g.Debts)),
		PendingJoinRequests:     len(g.Pending),
		Settings:                g.Settings,
	}
}

func (g *Group) Receive(ctx *runtime.Context, body []byte) error {
	env, err := protocol.Decode(body)
	if err != nil {
		return err
	}
	if err := protocol.Authorize(g, env.Body, ctx.Sender); err != nil {
		return err
	}

	switch m := env.Body.(type) {
	case *protocol.Transfer:
		return acceptTransfer(ctx)
	case *protocol.InitializeGroup:
		if err := g.initialize(ctx, m); err != nil {
			return err
		}
		return returnSurplus(ctx, 0)
	}

	if !g.Active {
		return protocol.Errorf(protocol.CodeInactive, "group %s is not active", g.Address.Short())
	}
	if err := ctx.Charge(gasWrite); err != nil {
		return err
	}
	used, err := g.dispatch(ctx, env.Body)
	if err != nil {
		return err
	}
	return returnSurplus(ctx, used)
}

// dispatch runs the handler of an active group and returns how much of the
// attached value it used.
func (g *Group) dispatch(ctx *runtime.Context, body protocol.Body) (models.Coins, error) {
	switch m := body.(type) {
	case *protocol.AddMember:
		return 0, g.admit(ctx, m.Member, m.DisplayName)
	case *protocol.RemoveMember:
		return 0, g.remove(ctx, m.Member, m.Reason)
	case *protocol.RequestJoin:
		return 0, g.requestJoin(ctx, m)
	case *protocol.LeaveGroup:
		if !g.Settings.AllowSelfRemoval {
			return 0, protocol.Errorf(protocol.CodeUnauthorized, "self removal is disabled")
		}
		return 0, g.remove(ctx, ctx.Sender, m.Reason)
	case *protocol.CreateGoal:
		return 0, g.createGoal(ctx, m)
	case *protocol.ContributeToGoal:
		return g.contribute(ctx, m)
	case *protocol.RecordExpense:
		return 0, g.recordExpense(ctx, m)
	case *protocol.SettleDebt:
		return g.settleDebt(ctx, m)
	case *protocol.UpdateGroupSettings:
		return 0, g.updateSettings(ctx, m)
	case *protocol.SetMemberReputation:
		return 0, g.setReputation(ctx, m)
	case *protocol.SetMemberStatus:
		return 0, g.setStatus(ctx, m)
	case *protocol.DeactivateGroup:
		g.Active = false
		ctx.Logger.Warn("Group deactivated", "reason", m.Reason)
		return 0, nil
	default:
		return 0, protocol.Errorf(protocol.CodeInvalidOpcode, "group does not handle %s", body.Opcode())
	}
}

func (g *Group) initialize(ctx *runtime.Context, m *protocol.InitializeGroup) error {
	if g.Initialized {
		return protocol.Errorf(protocol.CodeAlreadyInitialized, "group %s is already initialized", g.Address.Short())
	}
	if m.Name == "" {
		return protocol.Errorf(protocol.CodeInvalidArgument, "group name is empty")
	}
	if m.Admin.IsZero() {
		return protocol.Errorf(protocol.CodeInvalidParticipant, "group admin is the null address")
	}

	g.Hash = m.Hash
	g.Name = m.Name
	g.Admin = m.Admin
	g.CreatedAt = ctx.Now.Unix()
	g.Initialized = true
	g.Active = true
	g.Settings = models.DefaultSettings()
	ctx.Logger.Info("Group initialized", "name", m.Name, "admin", m.Admin)
	return nil
}

// admit adds addr to the roster and spawns its Member actor.
func (g *Group) admit(ctx *runtime.Context, addr models.Address, displayName string) error {
	if addr.IsZero() {
		return protocol.Errorf(protocol.CodeInvalidParticipant, "member is the null address")
	}
	if _, ok := g.Members[addr]; ok {
		return protocol.Errorf(protocol.CodeAlreadyMember, "%s is already a member", addr.Short())
	}
	if uint32(len(g.Members)) >= g.Settings.MaxMembers {
		return protocol.Errorf(protocol.CodeLimitExceeded, "group is full at %d members", g.Settings.MaxMembers)
	}
	if i := g.pendingIndex(addr); i >= 0 {
		if displayName == "" {
			displayName = g.Pending[i].DisplayName
		}
		g.Pending = slices.Delete(g.Pending, i, i+1)
	}

	index := g.TotalMembersEverCreated
	actor, data := protocol.ChildAddress(protocol.MemberCode, g.Address, index)
	entry := models.MemberEntry{Address: addr, Actor: actor, Index: index, JoinedAt: ctx.Now.Unix()}
	g.Members[addr] = entry
	g.Roster = append(g.Roster, addr)
	g.TotalMembersEverCreated++

	init := &runtime.StateInit{Code: protocol.MemberCode, Data: data}
	msg := &protocol.InitializeMember{
		Owner:        addr,
		JoinedAt:     entry.JoinedAt,
		InitialScore: InitialReputation,
		DisplayName:  displayName,
	}
	if err := ctx.Send(actor, 0, msg, init); err != nil {
		return err
	}
	ctx.Logger.Info("Member added", "member", addr, "member_actor", actor, "member_count", len(g.Members))
	return nil
}

// remove drops addr from the roster. Its Member actor survives as an
// inactive record.
func (g *Group) remove(ctx *runtime.Context, addr models.Address, reason string) error {
	if addr == g.Admin {
		return protocol.Errorf(protocol.CodeInvalidParticipant, "the admin cannot be removed")
	}
	entry, ok := g.Members[addr]
	if !ok {
		return protocol.Errorf(protocol.CodeNotMember, "%s is not a member", addr.Short())
	}

	delete(g.Members, addr)
	if i := slices.Index(g.Roster, addr); i >= 0 {
		g.Roster = slices.Delete(g.Roster, i, i+1)
	}

	msg := &protocol.UpdateStatus{NewStatus: models.StatusInactive, Reason: reason, UpdatedBy: ctx.Sender}
	if err := ctx.Send(entry.Actor, 0, msg, nil); err != nil {
		return err
	}
	ctx.Logger.Info("Member removed", "member", addr, "by", ctx.Sender, "reason", reason, "member_count", len(g.Members))
	return nil
}

func (g *Group) requestJoin(ctx *runtime.Context, m *protocol.RequestJoin) error {
	if _, ok := g.Members[ctx.Sender]; ok {
		return protocol.Errorf(protocol.CodeAlreadyMember, "%s is already a member", ctx.Sender.Short())
	}
	if !g.Settings.RequireAdminApproval {
		return g.admit(ctx, ctx.Sender, m.DisplayName)
	}
	if g.pendingIndex(ctx.Sender) >= 0 {
		return protocol.Errorf(protocol.CodeInvalidArgument, "join request from %s is already pending", ctx.Sender.Short())
	}
	if uint32(len(g.Pending)) >= g.Settings.MaxMembers {
		return protocol.Errorf(protocol.CodeLimitExceeded, "too many pending join requests")
	}

	g.Pending = append(g.Pending, models.JoinRequest{
		Address:     ctx.Sender,
		DisplayName: m.DisplayName,
		RequestedAt: ctx.Now.Unix(),
	})
	ctx.Logger.Info("Join requested", "requester", ctx.Sender, "pending", len(g.Pending))
	return nil
}

func (g *Group) pendingIndex(addr models.Address) int {
	return slices.IndexFunc(g.Pending, func(r models.JoinRequest) bool {
		return r.Address == addr
	})
}

// updateSettings treats zero and absent fields as "leave unchanged".
func (g *Group) updateSettings(ctx *runtime.Context, m *protocol.UpdateGroupSettings) error {
	next := g.Settings
	if m.RequireAdminApproval != nil {
		next.RequireAdminApproval = *m.RequireAdminApproval
	}
	if m.MinContribution != 0 {
		next.MinContribution = m.MinContribution
	}
	if m.MaxMembers != 0 {
		if m.MaxMembers < uint32(len(g.Members)) {
			return protocol.Errorf(protocol.CodeLimitExceeded, "group already has %d members", len(g.Members))
		}
		next.MaxMembers = m.MaxMembers
	}
	if m.AllowSelfRemoval != nil {
		next.AllowSelfRemoval = *m.AllowSelfRemoval
	}
	if m.ReputationThreshold != 0 {
		if m.ReputationThreshold > models.MaxReputation {
			return protocol.Errorf(protocol.CodeInvalidArgument, "reputation threshold %d out of range", m.ReputationThreshold)
		}
		next.ReputationThreshold = uint8(m.ReputationThreshold)
	}

	g.Settings = next
	ctx.Logger.Info("Group settings updated", "settings", fmt.Sprintf("%+v", next))
	return nil
}

func (g *Group) setReputation(ctx *runtime.Context, m *protocol.SetMemberReputation) error {
	entry, ok := g.Members[m.Member]
	if !ok {
		return protocol.Errorf(protocol.CodeNotMember, "%s is not a member", m.Member.Short())
	}
	if m.Score > models.MaxReputation {
		return protocol.Errorf(protocol.CodeInvalidArgument, "reputation score %d out of range", m.Score)
	}
	return ctx.Send(entry.Actor, 0, &protocol.UpdateReputation{NewScore: m.Score, Reason: m.Reason, UpdatedBy: ctx.Sender}, nil)
}

func (g *Group) setStatus(ctx *runtime.Context, m *protocol.SetMemberStatus) error {
	entry, ok := g.Members[m.Member]
	if !ok {
		return protocol.Errorf(protocol.CodeNotMember, "%s is not a member", m.Member.Short())
	}
	if !m.Status.IsValid() {
		return protocol.Errorf(protocol.CodeInvalidArgument, "unknown member status %d", m.Status)
	}
	return ctx.Send(entry.Actor, 0, &protocol.UpdateStatus{NewStatus: m.Status, Reason: m.Reason, UpdatedBy: ctx.Sender}, nil)
}
