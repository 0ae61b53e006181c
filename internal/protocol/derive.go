package protocol

import (
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/mmynk/groupledger/internal/models"
)

// Code hashes of the three actor kinds.
var (
	RegistryCode = codeHash("groupledger.registry.v1")
	GroupCode    = codeHash("groupledger.group.v1")
	MemberCode   = codeHash("groupledger.member.v1")
)

func codeHash(name string) models.CodeHash {
	var h models.CodeHash
	k := sha3.NewLegacyKeccak256()
	k.Write([]byte(name))
	copy(h[:], k.Sum(nil))
	return h
}

// CodeName returns a short label for a known code hash.
func CodeName(code models.CodeHash) string {
	switch code {
	case RegistryCode:
		return "registry"
	case GroupCode:
		return "group"
	case MemberCode:
		return "member"
	default:
		return "unknown"
	}
}

// InitData is the deploy payload every child actor is derived from.
type InitData struct {
	Index  uint64
	Parent models.Address
}

// Encode serializes d in protobuf wire format.
func (d InitData) Encode() []byte {
	var e encoder
	e.uint(1, d.Index)
	e.addr(2, d.Parent)
	return e.b
}

// DecodeInitData parses the output of InitData.Encode.
func DecodeInitData(b []byte) (InitData, error) {
	d := newDecoder(b)
	out := InitData{Index: d.uint(1), Parent: d.addr(2)}
	if d.err != nil {
		return InitData{}, fmt.Errorf("failed to decode init data: %w", d.err)
	}
	return out, nil
}

// DeriveAddress computes an actor address as the last 20 bytes of
// Keccak-256(code || data). Sender and receiver compute it identically, so a
// parent can address a child before the child exists.
func DeriveAddress(code models.CodeHash, data []byte) models.Address {
	k := sha3.NewLegacyKeccak256()
	k.Write(code[:])
	k.Write(data)
	sum := k.Sum(nil)

	var a models.Address
	copy(a[:], sum[len(sum)-models.AddressLength:])
	return a
}

// ChildAddress derives the address of the index-th child of parent running code.
func ChildAddress(code models.CodeHash, parent models.Address, index uint64) (models.Address, []byte) {
	data := InitData{Index: index, Parent: parent}.Encode()
	return DeriveAddress(code, data), data
}
