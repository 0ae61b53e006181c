package ledger

import (
	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// recordExpense spawns one debt per share, owed by the participant to the
// payer. Omitted amounts split the total equally.
//
// The shares are not checked against the total: the admin is trusted with
// the split and a mismatch is only logged.
func (g *Group) recordExpense(ctx *runtime.Context, m *protocol.RecordExpense) error {
	if m.TotalAmount == 0 {
		return protocol.Errorf(protocol.CodeInvalidAmount, "expense total must be positive")
	}
	if _, ok := g.Members[m.Payer]; !ok {
		return protocol.Errorf(protocol.CodeNotMember, "payer %s is not a member", m.Payer.Short())
	}
	if len(m.Participants) == 0 {
		return protocol.Errorf(protocol.CodeInvalidArgument, "expense has no participants")
	}
	amounts := m.Amounts
	switch len(amounts) {
	case 0:
		amounts = calculator.EqualSplit(m.TotalAmount, len(m.Participants))
	case len(m.Participants):
	default:
		return protocol.Errorf(protocol.CodeInvalidArgument, "%d participants but %d amounts", len(m.Participants), len(amounts))
	}
	if err := ctx.Charge(gasPerShare * uint64(len(m.Participants))); err != nil {
		return err
	}

	seen := make(map[models.Address]bool, len(m.Participants))
	var sum models.Coins
	for i, p := range m.Participants {
		if _, ok := g.Members[p]; !ok {
			return protocol.Errorf(protocol.CodeNotMember, "participant %s is not a member", p.Short())
		}
		if p == m.Payer {
			return protocol.Errorf(protocol.CodeInvalidParticipant, "payer cannot owe themselves")
		}
		if seen[p] {
			return protocol.Errorf(protocol.CodeInvalidParticipant, "participant %s listed twice", p.Short())
		}
		seen[p] = true
		if amounts[i] == 0 {
			return protocol.Errorf(protocol.CodeInvalidAmount, "share of %s must be positive", p.Short())
		}
		var err error
		if sum, err = sum.Add(amounts[i]); err != nil {
			return protocol.Wrap(protocol.CodeInvalidAmount, err)
		}
	}
	if sum != m.TotalAmount {
		ctx.Logger.Warn("Expense shares do not match total", "total", m.TotalAmount, "shares", sum)
	}

	now := ctx.Now.Unix()
	expense := models.Expense{
		ID:          uint64(len(g.Expenses)),
		Description: m.Description,
		TotalAmount: m.TotalAmount,
		Payer:       m.Payer,
		CreatedAt:   now,
	}
	for i, p := range m.Participants {
		debt := models.Debt{
			ID:          uint64(len(g.Debts)),
			ExpenseID:   expense.ID,
			Debtor:      p,
			DebtorActor: g.Members[p].Actor,
			Creditor:    m.Payer,
			Amount:      amounts[i],
			CreatedAt:   now,
			Reason:      m.Description,
			DueDate:     m.DueDate,
		}
		g.Debts = append(g.Debts, debt)
		expense.DebtIDs = append(expense.DebtIDs, debt.ID)

		msg := &protocol.RecordDebt{
			Amount:   debt.Amount,
			Creditor: debt.Creditor,
			DebtID:   debt.ID,
			Reason:   debt.Reason,
			DueDate:  debt.DueDate,
		}
		if err := ctx.Send(debt.DebtorActor, 0, msg, nil); err != nil {
			return err
		}
	}
	g.Expenses = append(g.Expenses, expense)
	ctx.Logger.Info("Expense recorded", "expense_id", expense.ID, "payer", m.Payer, "total", m.TotalAmount, "debts", len(expense.DebtIDs))
	return nil
}

// settleDebt pays down a debt, forwarding the amount to the creditor.
// Partial payments are allowed.
func (g *Group) settleDebt(ctx *runtime.Context, m *protocol.SettleDebt) (models.Coins, error) {
	if m.DebtID >= uint64(len(g.Debts)) {
		return 0, protocol.Errorf(protocol.CodeNotFound, "debt %d not found", m.DebtID)
	}
	debt := &g.Debts[m.DebtID]
	if debt.IsSettled {
		return 0, protocol.Errorf(protocol.CodeAlreadySettled, "debt %d is already settled", debt.ID)
	}
	if m.Creditor != debt.Creditor {
		return 0, protocol.Errorf(protocol.CodeInvalidParticipant, "debt %d is owed to %s, not %s", debt.ID, debt.Creditor.Short(), m.Creditor.Short())
	}
	if m.Amount == 0 || m.Amount > debt.Remaining() {
		return 0, protocol.Errorf(protocol.CodeInvalidAmount, "settlement %s does not fit remaining %s", m.Amount, debt.Remaining())
	}
	if ctx.Value < m.Amount {
		return 0, protocol.Errorf(protocol.CodeInvalidAmount, "attached %s does not cover settlement %s", ctx.Value, m.Amount)
	}

	debt.Paid += m.Amount
	debt.IsSettled = debt.Paid == debt.Amount
	if err := ctx.Pay(debt.Creditor, m.Amount, "debt settlement"); err != nil {
		return 0, err
	}

	// The actor that recorded the debt gets the notice, even after the
	// debtor left or rejoined.
	msg := &protocol.SettleMemberDebt{
		DebtID:       debt.ID,
		Amount:       m.Amount,
		Creditor:     debt.Creditor,
		SettlementID: m.SettlementID,
	}
	if err := ctx.Send(debt.DebtorActor, 0, msg, nil); err != nil {
		return 0, err
	}
	ctx.Logger.Info("Debt settled", "debt_id", debt.ID, "amount", m.Amount, "remaining", debt.Remaining(), "settled", debt.IsSettled)
	return m.Amount, nil
}

// expenseSettled reports whether every debt of e is settled.
func (g *Group) expenseSettled(e models.Expense) bool {
	for _, id := range e.DebtIDs {
		if id >= uint64(len(g.Debts)) || !g.Debts[id].IsSettled {
			return false
		}
	}
	return true
}
