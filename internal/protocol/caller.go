package protocol

import "github.com/mmynk/groupledger/internal/models"

// Caller is the class of sender a message variant requires.
type Caller uint8

const (
	// CallerAny accepts every sender.
	CallerAny Caller = iota

	// CallerOwner is the registry owner or the member record's owner.
	CallerOwner

	// CallerAdmin is the group admin.
	CallerAdmin

	// CallerParent is the actor that spawned the receiver.
	CallerParent

	// CallerMember is any address on the group roster.
	CallerMember
)

// String returns the string representation of Caller.
func (c Caller) String() string {
	switch c {
	case CallerAny:
		return "any"
	case CallerOwner:
		return "owner"
	case CallerAdmin:
		return "admin"
	case CallerParent:
		return "parent"
	case CallerMember:
		return "member"
	default:
		return "unknown"
	}
}

// Authority resolves caller classes for one actor.
type Authority interface {
	// Allows reports whether sender belongs to class c.
	Allows(c Caller, sender models.Address) bool
}

// Authorize rejects body with ErrUnauthorized unless sender satisfies the
// caller class the variant declares. Actors call it before touching state.
func Authorize(a Authority, body Body, sender models.Address) error {
	class := body.RequiredCaller()
	if class == CallerAny || a.Allows(class, sender) {
		return nil
	}
	return Errorf(CodeUnauthorized, "%s requires %s caller, got %s", body.Opcode(), class, sender.Short())
}
