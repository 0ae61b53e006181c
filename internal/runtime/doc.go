// Package runtime is the message-delivery substrate the ledger actors run on.
//
// Every actor owns a goroutine and an unbounded FIFO mailbox and handles one
// message at a time. A handler runs against a clone of the actor's state and
// the clone replaces the state only when the handler returns nil, so a
// rejected message leaves no trace besides its journal entry and the refund
// of its attached value. Messages the handler sends are buffered and only
// delivered after the commit.
//
// Actors are addressed deterministically (see protocol.DeriveAddress). The
// first message to an unknown address may carry a StateInit, in which case
// the runtime spawns the actor before delivering it. Addresses with no actor
// behind them are plain wallets that only hold balances.
package runtime
