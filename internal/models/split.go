package models

// Share is one participant's portion of an expense.
type Share struct {
	Participant Address `json:"participant"`
	Amount      Coins   `json:"amount"`
}

// Expense is a shared cost paid by one member and split among others.
// Each share spawns one Debt owed to the payer.
type Expense struct {
	ID          uint64  `json:"id"`
	Description string  `json:"description"`
	TotalAmount Coins   `json:"total_amount"`
	Payer       Address `json:"payer"`
	CreatedAt   int64   `json:"created_at"`

	// DebtIDs are the debts spawned from this expense, in split order.
	DebtIDs []uint64 `json:"debt_ids"`

	// IsSettled is derived: true iff every debt in DebtIDs is settled.
	IsSettled bool `json:"is_settled"`
}
