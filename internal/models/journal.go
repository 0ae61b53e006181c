package models

// CodeHash identifies the behaviour an actor runs.
type CodeHash [32]byte

// OutcomeOK marks a journal entry whose message was committed.
const OutcomeOK = "ok"

// JournalEntry records one processed message.
type JournalEntry struct {
	// ID is the message id (UUID format).
	ID string `json:"id"`

	// Address is the actor that processed the message.
	Address Address `json:"address"`
	Sender  Address `json:"sender"`
	Opcode  uint32  `json:"opcode"`
	Value   Coins   `json:"value"`

	// Outcome is OutcomeOK or the rejection code.
	Outcome string `json:"outcome"`

	// Detail carries the rejection message, empty on success.
	Detail string `json:"detail,omitempty"`

	GasUsed     uint64 `json:"gas_used"`
	ProcessedAt int64  `json:"processed_at"`
}

// ActorRecord is the persisted form of an actor.
type ActorRecord struct {
	Address   Address
	Code      CodeHash
	Snapshot  []byte
	UpdatedAt int64
}

// Commit is everything one processed message writes.
// Stores apply it atomically.
type Commit struct {
	// Actor is nil when the state did not change (rejections, queries).
	Actor *ActorRecord

	// Balances holds the new balance of every address the message touched.
	Balances map[Address]Coins

	Journal *JournalEntry
}
