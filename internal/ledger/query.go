package ledger

import (
	"context"

	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// Page selects a window of a collection. A zero Limit returns everything
// from Offset on.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func paginate[T any](items []T, p Page) []T {
	start := min(max(p.Offset, 0), len(items))
	end := len(items)
	if p.Limit > 0 {
		end = min(start+p.Limit, end)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

func ask[B runtime.Behavior, T any](ctx context.Context, rt *runtime.Runtime, addr models.Address, kind string, fn func(B) (T, error)) (T, error) {
	return runtime.Ask(ctx, rt, addr, func(b runtime.Behavior) (T, error) {
		actor, ok := b.(B)
		if !ok {
			var zero T
			return zero, protocol.Errorf(protocol.CodeNotFound, "%s is not a %s", addr.Short(), kind)
		}
		return fn(actor)
	})
}

// RegistryStatus returns the status of the registry at addr.
func RegistryStatus(ctx context.Context, rt *runtime.Runtime, addr models.Address) (models.RegistryStatus, error) {
	return ask(ctx, rt, addr, "registry", func(r *Registry) (models.RegistryStatus, error) {
		return r.Status(), nil
	})
}

// GroupInfo returns the header and counters of the group at addr.
func GroupInfo(ctx context.Context, rt *runtime.Runtime, addr models.Address) (models.GroupInfo, error) {
	return ask(ctx, rt, addr, "group", func(g *Group) (models.GroupInfo, error) {
		return g.Info(), nil
	})
}

// Members returns the roster in join order.
func Members(ctx context.Context, rt *runtime.Runtime, group models.Address, p Page) ([]models.MemberEntry, error) {
	return ask(ctx, rt, group, "group", func(g *Group) ([]models.MemberEntry, error) {
		roster := paginate(g.Roster, p)
		out := make([]models.MemberEntry, len(roster))
		for i, addr := range roster {
			out[i] = g.Members[addr]
		}
		return out, nil
	})
}

// MemberEntry looks up one roster entry, including the member's actor address.
func MemberEntry(ctx context.Context, rt *runtime.Runtime, group, member models.Address) (models.MemberEntry, error) {
	return ask(ctx, rt, group, "group", func(g *Group) (models.MemberEntry, error) {
		entry, ok := g.Members[member]
		if !ok {
			return models.MemberEntry{}, protocol.Errorf(protocol.CodeNotMember, "%s is not a member", member.Short())
		}
		return entry, nil
	})
}

// JoinRequests returns the pending join requests in arrival order.
func JoinRequests(ctx context.Context, rt *runtime.Runtime, group models.Address, p Page) ([]models.JoinRequest, error) {
	return ask(ctx, rt, group, "group", func(g *Group) ([]models.JoinRequest, error) {
		return paginate(g.Pending, p), nil
	})
}

// Goals returns goals ordered by id.
func Goals(ctx context.Context, rt *runtime.Runtime, group models.Address, p Page) ([]models.Goal, error) {
	return ask(ctx, rt, group, "group", func(g *Group) ([]models.Goal, error) {
		return paginate(g.Goals, p), nil
	})
}

// Goal returns one goal.
func Goal(ctx context.Context, rt *runtime.Runtime, group models.Address, id uint64) (models.Goal, error) {
	return ask(ctx, rt, group, "group", func(g *Group) (models.Goal, error) {
		if id >= uint64(len(g.Goals)) {
			return models.Goal{}, protocol.Errorf(protocol.CodeNotFound, "goal %d not found", id)
		}
		return g.Goals[id], nil
	})
}

// Expenses returns expenses ordered by id with IsSettled derived from their debts.
func Expenses(ctx context.Context, rt *runtime.Runtime, group models.Address, p Page) ([]models.Expense, error) {
	return ask(ctx, rt, group, "group", func(g *Group) ([]models.Expense, error) {
		out := paginate(g.Expenses, p)
		for i := range out {
			out[i] = g.expenseView(out[i])
		}
		return out, nil
	})
}

// Expense returns one expense.
func Expense(ctx context.Context, rt *runtime.Runtime, group models.Address, id uint64) (models.Expense, error) {
	return ask(ctx, rt, group, "group", func(g *Group) (models.Expense, error) {
		if id >= uint64(len(g.Expenses)) {
			return models.Expense{}, protocol.Errorf(protocol.CodeNotFound, "expense %d not found", id)
		}
		return g.expenseView(g.Expenses[id]), nil
	})
}

func (g *Group) expenseView(e models.Expense) models.Expense {
	e.DebtIDs = append([]uint64(nil), e.DebtIDs...)
	e.IsSettled = g.expenseSettled(e)
	return e
}

// Debts returns debts ordered by id.
func Debts(ctx context.Context, rt *runtime.Runtime, group models.Address, p Page) ([]models.Debt, error) {
	return ask(ctx, rt, group, "group", func(g *Group) ([]models.Debt, error) {
		return paginate(g.Debts, p), nil
	})
}

// Debt returns one debt.
func Debt(ctx context.Context, rt *runtime.Runtime, group models.Address, id uint64) (models.Debt, error) {
	return ask(ctx, rt, group, "group", func(g *Group) (models.Debt, error) {
		if id >= uint64(len(g.Debts)) {
			return models.Debt{}, protocol.Errorf(protocol.CodeNotFound, "debt %d not found", id)
		}
		return g.Debts[id], nil
	})
}

// SuggestSettlements returns a short list of transfers that would clear
// every outstanding debt of the group.
func SuggestSettlements(ctx context.Context, rt *runtime.Runtime, group models.Address) ([]calculator.DebtEdge, error) {
	return ask(ctx, rt, group, "group", func(g *Group) ([]calculator.DebtEdge, error) {
		return calculator.SimplifyDebts(calculator.CalculateBalances(g.Debts)), nil
	})
}

// MemberRecord returns the state of the Member actor at addr.
func MemberRecord(ctx context.Context, rt *runtime.Runtime, addr models.Address) (models.MemberRecord, error) {
	return ask(ctx, rt, addr, "member", func(m *Member) (models.MemberRecord, error) {
		return m.Record(), nil
	})
}
