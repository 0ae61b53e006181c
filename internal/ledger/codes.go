// Package ledger implements the Registry, Group Ledger and Member actors.
//
// The Registry spawns one Group Ledger per registered group. A Group Ledger
// spawns one Member actor per roster entry. Each actor only changes its own
// state; everything else happens through messages sent after commit.
package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// Gas charged by handlers on top of the runtime's per-message cost.
const (
	gasWrite    uint64 = 2_000
	gasPerShare uint64 = 1_500
)

// InitialReputation is the score a new Member actor starts with.
const InitialReputation = 50

// Registry defaults applied at deployment.
var (
	DefaultRegistrationFee   = models.MustParseCoins("0.05")
	DefaultMaxGroupsPerAdmin = uint32(10)
)

// Codes returns the runtime codes of all three actor kinds.
func Codes() []runtime.Code {
	return []runtime.Code{
		{Hash: protocol.RegistryCode, Deploy: deployRegistry, Restore: restore[Registry]},
		{Hash: protocol.GroupCode, Deploy: deployGroup, Restore: restore[Group]},
		{Hash: protocol.MemberCode, Deploy: deployMember, Restore: restore[Member]},
	}
}

// RegistryInit returns the deploy payload of the registry owned by owner.
func RegistryInit(owner models.Address) []byte {
	return protocol.InitData{Parent: owner}.Encode()
}

// RegistryAddress derives the address of the registry owned by owner.
func RegistryAddress(owner models.Address) models.Address {
	return protocol.DeriveAddress(protocol.RegistryCode, RegistryInit(owner))
}

// GroupAddress derives the address of the index-th group of registry. It
// answers for indices not registered yet.
func GroupAddress(registry models.Address, index uint64) models.Address {
	addr, _ := protocol.ChildAddress(protocol.GroupCode, registry, index)
	return addr
}

// MemberActorAddress derives the address of the index-th Member actor of group.
func MemberActorAddress(group models.Address, index uint64) models.Address {
	addr, _ := protocol.ChildAddress(protocol.MemberCode, group, index)
	return addr
}

// restore rebuilds an actor of type T from its JSON snapshot.
func restore[T any, PT interface {
	*T
	runtime.Behavior
}](snapshot []byte) (runtime.Behavior, error) {
	v := PT(new(T))
	if err := json.Unmarshal(snapshot, v); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return v, nil
}

// acceptTransfer returns the attached value unless it is a refund or payout,
// which the receiver keeps.
func acceptTransfer(ctx *runtime.Context) error {
	if ctx.NoReturn || ctx.Value == 0 {
		return nil
	}
	return ctx.Pay(ctx.Sender, ctx.Value, "returned")
}

// returnSurplus pays back the part of the attached value a handler did not use.
func returnSurplus(ctx *runtime.Context, used models.Coins) error {
	if ctx.NoReturn || used >= ctx.Value {
		return nil
	}
	return ctx.Pay(ctx.Sender, ctx.Value-used, "surplus")
}
