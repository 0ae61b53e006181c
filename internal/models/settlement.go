package models

// Debt is an amount one member owes another.
type Debt struct {
	ID        uint64  `json:"id"`
	ExpenseID uint64  `json:"expense_id"`
	Debtor    Address `json:"debtor"`
	Creditor  Address `json:"creditor"`

	// DebtorActor is the Member actor that recorded the debt. It stays
	// fixed when the debtor leaves or rejoins under a new actor.
	DebtorActor Address `json:"debtor_actor"`

	// Amount is the original debt, always > 0.
	Amount Coins `json:"amount"`

	// Paid is the settled portion; it never exceeds Amount.
	Paid Coins `json:"paid"`

	CreatedAt int64  `json:"created_at"`
	Reason    string `json:"reason"`

	// DueDate is an optional Unix timestamp, 0 when unset.
	DueDate int64 `json:"due_date,omitempty"`

	IsSettled bool `json:"is_settled"`
}

// Remaining returns the unsettled part of the debt.
func (d Debt) Remaining() Coins {
	if d.Paid >= d.Amount {
		return 0
	}
	return d.Amount - d.Paid
}
