package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mmynk/groupledger/internal/models"
)

var (
	alice = models.MustParseAddress("0x00000000000000000000000000000000000a11ce")
	bob   = models.MustParseAddress("0x0000000000000000000000000000000000000b0b")
)

func TestDecodeEmptyIsTransfer(t *testing.T) {
	env, err := Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, OpTransfer, env.Body.Opcode())
	assert.Equal(t, CallerAny, env.Body.RequiredCaller())
}

func TestRecordExpenseRoundTrip(t *testing.T) {
	in := &RecordExpense{
		Description:  "groceries",
		TotalAmount:  models.MustParseCoins("0.3"),
		Payer:        alice,
		Participants: []models.Address{alice, bob},
		Amounts:      []models.Coins{models.MustParseCoins("0.1"), models.MustParseCoins("0.2")},
	}

	env, err := Decode(Encode(in, 42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), env.QueryID)

	out, ok := env.Body.(*RecordExpense)
	require.True(t, ok, "got %T", env.Body)
	assert.Equal(t, in, out)
}

func TestUpdateGroupSettingsPresence(t *testing.T) {
	yes := true

	env, err := Decode(Encode(&UpdateGroupSettings{AllowSelfRemoval: &yes, MaxMembers: 2}, 0))
	require.NoError(t, err)

	out := env.Body.(*UpdateGroupSettings)
	assert.Nil(t, out.RequireAdminApproval, "unset flag must stay nil")
	require.NotNil(t, out.AllowSelfRemoval)
	assert.True(t, *out.AllowSelfRemoval)
	assert.Equal(t, uint32(2), out.MaxMembers)
	assert.Zero(t, out.MinContribution)
}

func TestUpdateProfilePartial(t *testing.T) {
	bio := "hello"

	env, err := Decode(Encode(&UpdateProfile{Bio: &bio}, 0))
	require.NoError(t, err)

	out := env.Body.(*UpdateProfile)
	assert.Nil(t, out.DisplayName)
	assert.Nil(t, out.AvatarHash)
	assert.Nil(t, out.ContactInfo)
	require.NotNil(t, out.Bio)
	assert.Equal(t, "hello", *out.Bio)
}

func TestDecodeRejects(t *testing.T) {
	var unknown []byte
	unknown = protowire.AppendTag(unknown, fieldOpcode, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 0xdeadbeef)

	var badAddr []byte
	badAddr = protowire.AppendTag(badAddr, 1, protowire.BytesType)
	badAddr = protowire.AppendBytes(badAddr, []byte{1, 2, 3})
	var badPayload []byte
	badPayload = protowire.AppendTag(badPayload, fieldOpcode, protowire.VarintType)
	badPayload = protowire.AppendVarint(badPayload, uint64(OpAddMember))
	badPayload = protowire.AppendTag(badPayload, fieldPayload, protowire.BytesType)
	badPayload = protowire.AppendBytes(badPayload, badAddr)

	tests := []struct {
		name string
		in   []byte
	}{
		{name: "unknown opcode", in: unknown},
		{name: "truncated envelope", in: []byte{0x08}},
		{name: "wrong address length", in: badPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidOpcode), "got %v", err)
			assert.Equal(t, CodeInvalidOpcode, CodeOf(err))
		})
	}
}

func TestPeekOpcode(t *testing.T) {
	op, err := PeekOpcode(Encode(&CreateGoal{Title: "trip"}, 0))
	require.NoError(t, err)
	assert.Equal(t, OpCreateGoal, op)

	_, err = PeekOpcode(nil)
	assert.ErrorIs(t, err, ErrEmptyEnvelope)
}

func TestEveryOpcodeHasVariant(t *testing.T) {
	for op := range opcodeNames {
		body := newBody(op)
		require.NotNil(t, body, "opcode %s has no variant", op)
		assert.Equal(t, op, body.Opcode())
	}
}
