package service

import (
	"github.com/mmynk/groupledger/internal/calculator"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/runtime"
)

// SubmitRequest sends one message from the authenticated caller.
type SubmitRequest struct {
	To    models.Address `json:"to"`
	Value models.Coins   `json:"value"`

	// Body is a protocol envelope built with protocol.Encode. JSON carries
	// it base64-encoded. An empty body is a plain transfer.
	Body []byte `json:"body"`

	// Wait holds the call until the target has processed the message.
	Wait bool `json:"wait"`
}

// SubmitResponse identifies the submitted message and, when the request
// waited, reports how it ended.
type SubmitResponse struct {
	MessageID string   `json:"message_id"`
	Receipt   *Receipt `json:"receipt,omitempty"`
}

// Receipt is the wire form of runtime.Receipt.
type Receipt struct {
	MessageID string         `json:"message_id"`
	Address   models.Address `json:"address"`
	Opcode    string         `json:"opcode"`
	Outcome   string         `json:"outcome"`
	Error     string         `json:"error,omitempty"`
	GasUsed   uint64         `json:"gas_used"`
	Refund    models.Coins   `json:"refund"`
}

func receiptFrom(r *runtime.Receipt) *Receipt {
	out := &Receipt{
		MessageID: r.MessageID,
		Address:   r.Address,
		Opcode:    r.Opcode.String(),
		Outcome:   r.Outcome,
		GasUsed:   r.GasUsed,
		Refund:    r.Refund,
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

// RegistryRequest names a registry. The zero address means the one this
// gateway was started with.
type RegistryRequest struct {
	Registry models.Address `json:"registry"`
}

type GroupAddressRequest struct {
	Registry models.Address `json:"registry"`
	Index    uint64         `json:"index"`
}

type AddressResponse struct {
	Address models.Address `json:"address"`
}

type GroupRequest struct {
	Group models.Address `json:"group"`
}

// ListRequest pages through one of a group's collections. Limit 0 returns
// everything from Offset on.
type ListRequest struct {
	Group  models.Address `json:"group"`
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
}

type MembersResponse struct {
	Members []models.MemberEntry `json:"members"`
}

type MemberActorRequest struct {
	Group  models.Address `json:"group"`
	Member models.Address `json:"member"`
}

type JoinRequestsResponse struct {
	Requests []models.JoinRequest `json:"requests"`
}

type GoalsResponse struct {
	Goals []models.Goal `json:"goals"`
}

type ExpensesResponse struct {
	Expenses []models.Expense `json:"expenses"`
}

type DebtsResponse struct {
	Debts []models.Debt `json:"debts"`
}

// EntityRequest names one goal, expense or debt of a group.
type EntityRequest struct {
	Group models.Address `json:"group"`
	ID    uint64         `json:"id"`
}

type SettlementsResponse struct {
	Settlements []calculator.DebtEdge `json:"settlements"`
}

type AddressRequest struct {
	Address models.Address `json:"address"`
}

type BalanceResponse struct {
	Address models.Address `json:"address"`
	Balance models.Coins   `json:"balance"`
}

type JournalRequest struct {
	Address models.Address `json:"address"`
	Limit   int            `json:"limit"`
}

type JournalResponse struct {
	Entries []*models.JournalEntry `json:"entries"`
}

// PreviewSplitRequest asks how a bill would split before it is recorded as
// an expense. Subtotal 0 means the bill has no tax or tip.
type PreviewSplitRequest struct {
	Items        []calculator.Item `json:"items"`
	Total        models.Coins      `json:"total"`
	Subtotal     models.Coins      `json:"subtotal"`
	Participants []models.Address  `json:"participants"`
}

type PreviewSplitResponse struct {
	Splits   map[models.Address]*calculator.PersonSplit `json:"splits"`
	Subtotal models.Coins                               `json:"subtotal"`
	Tax      models.Coins                               `json:"tax"`

	// Shares lists each participant's total in request order, ready to be
	// used as the participants and amounts of a RecordExpense.
	Shares []models.Share `json:"shares"`
}

type IssueTokenRequest struct {
	Caller models.Address `json:"caller"`
	Label  string         `json:"label"`
}

type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
