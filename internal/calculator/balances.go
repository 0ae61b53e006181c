package calculator

import (
	"bytes"
	"sort"

	"github.com/mmynk/groupledger/internal/models"
)

// MemberBalance represents the outstanding position of one group member.
type MemberBalance struct {
	Address models.Address

	// Receivable is what others still owe this member.
	Receivable models.Coins

	// Payable is what this member still owes others.
	Payable models.Coins
}

// Net returns the absolute net position and whether the member is owed
// money (true) or owes money (false).
func (b MemberBalance) Net() (models.Coins, bool) {
	if b.Receivable >= b.Payable {
		return b.Receivable - b.Payable, true
	}
	return b.Payable - b.Receivable, false
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   models.Address `json:"from"`
	To     models.Address `json:"to"`
	Amount models.Coins   `json:"amount"`
}

// CalculateBalances aggregates the unsettled remainder of every debt into
// per-member positions, ordered by address.
func CalculateBalances(debts []models.Debt) []MemberBalance {
	balances := make(map[models.Address]*MemberBalance)
	get := func(addr models.Address) *MemberBalance {
		b, ok := balances[addr]
		if !ok {
			b = &MemberBalance{Address: addr}
			balances[addr] = b
		}
		return b
	}

	for _, d := range debts {
		remaining := d.Remaining()
		if remaining == 0 {
			continue
		}
		get(d.Debtor).Payable += remaining
		get(d.Creditor).Receivable += remaining
	}

	out := make([]MemberBalance, 0, len(balances))
	for _, b := range balances {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}

// SimplifyDebts returns a short list of transfers that clears every
// outstanding position.
//
// Algorithm:
// - Net each member's receivable against payable
// - Sort debtors and creditors by size, largest first
// - Greedy: match the largest debt with the largest credit until both lists drain
func SimplifyDebts(balances []MemberBalance) []DebtEdge {
	type position struct {
		addr   models.Address
		amount models.Coins
	}
	var creditors, debtors []position
	for _, b := range balances {
		net, owed := b.Net()
		if net == 0 {
			continue
		}
		if owed {
			creditors = append(creditors, position{b.Address, net})
		} else {
			debtors = append(debtors, position{b.Address, net})
		}
	}
	largestFirst := func(ps []position) {
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].amount != ps[j].amount {
				return ps[i].amount > ps[j].amount
			}
			return bytes.Compare(ps[i].addr[:], ps[j].addr[:]) < 0
		})
	}
	largestFirst(creditors)
	largestFirst(debtors)

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := min(debtors[i].amount, creditors[j].amount)
		edges = append(edges, DebtEdge{From: debtors[i].addr, To: creditors[j].addr, Amount: amount})

		debtors[i].amount -= amount
		creditors[j].amount -= amount
		if debtors[i].amount == 0 {
			i++
		}
		if creditors[j].amount == 0 {
			j++
		}
	}
	return edges
}
