// Package models defines the core domain records for groupledger.
//
// # Records
//
//   - Address: 20-byte actor or wallet address, the zero value is the null address
//   - Coins: amounts in nano-units (1 unit = 10^9 nano)
//   - GroupInfo, Settings, Goal, Expense, Debt: Group Ledger state
//   - Profile, MemberStats: Member actor state
//   - RegistryStatus: Registry actor state
//   - ActorRecord, JournalEntry, Commit: persistence of the actor runtime
//
// # Design Principles
//
// 1. **Append-only ledger**: goals, expenses and debts are never deleted, only flagged
// 2. **No pointers between actors**: relationships are expressed as Addresses
// 3. **Value types**: records are copied out of actors, never shared
package models
