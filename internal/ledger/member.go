package ledger

import (
	"encoding/json"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// Member is the per-(member, group) record actor.
type Member struct {
	models.MemberRecord
}

var (
	_ runtime.Behavior   = (*Member)(nil)
	_ protocol.Authority = (*Member)(nil)
)

func deployMember(self models.Address, data []byte) (runtime.Behavior, error) {
	init, err := protocol.DecodeInitData(data)
	if err != nil {
		return nil, err
	}
	return &Member{models.MemberRecord{
		Address: self,
		Group:   init.Parent,
		Index:   init.Index,
	}}, nil
}

// Allows implements protocol.Authority.
func (m *Member) Allows(c protocol.Caller, sender models.Address) bool {
	switch c {
	case protocol.CallerOwner:
		return m.Initialized && sender == m.Owner
	case protocol.CallerParent:
		return sender == m.Group
	default:
		return false
	}
}

func (m *Member) Clone() runtime.Behavior {
	c := *m
	return &c
}

func (m *Member) Snapshot() ([]byte, error) {
	return json.Marshal(m)
}

// Record returns a copy of the member's state.
func (m *Member) Record() models.MemberRecord {
	return m.MemberRecord
}

func (m *Member) Receive(ctx *runtime.Context, body []byte) error {
	env, err := protocol.Decode(body)
	if err != nil {
		return err
	}
	if err := protocol.Authorize(m, env.Body, ctx.Sender); err != nil {
		return err
	}

	switch msg := env.Body.(type) {
	case *protocol.Transfer:
		return acceptTransfer(ctx)
	case *protocol.InitializeMember:
		err = m.initialize(ctx, msg)
	default:
		if !m.Initialized {
			return protocol.Errorf(protocol.CodeNotFound, "member %s is not initialized", m.Address.Short())
		}
		if err := ctx.Charge(gasWrite); err != nil {
			return err
		}
		err = m.dispatch(ctx, env.Body)
	}
	if err != nil {
		return err
	}
	return returnSurplus(ctx, 0)
}

func (m *Member) dispatch(ctx *runtime.Context, body protocol.Body) error {
	switch msg := body.(type) {
	case *protocol.UpdateProfile:
		return m.updateProfile(ctx, msg)
	case *protocol.UpdateReputation:
		if msg.NewScore > models.MaxReputation {
			return protocol.Errorf(protocol.CodeInvalidArgument, "reputation score %d out of range", msg.NewScore)
		}
		m.ReputationScore = uint8(msg.NewScore)
		ctx.Logger.Info("Reputation updated", "score", msg.NewScore, "by", msg.UpdatedBy, "reason", msg.Reason)
	case *protocol.RecordContribution:
		total, err := m.TotalContributed.Add(msg.Amount)
		if err != nil {
			return protocol.Wrap(protocol.CodeInvalidAmount, err)
		}
		m.TotalContributed = total
		m.ContributionCount++
		m.SuccessfulTransactionCount++
		m.touch(ctx, msg.Timestamp)
	case *protocol.RecordDebt:
		if msg.Amount == 0 {
			return protocol.Errorf(protocol.CodeInvalidAmount, "debt amount must be positive")
		}
		owed, err := m.TotalOwed.Add(msg.Amount)
		if err != nil {
			return protocol.Wrap(protocol.CodeInvalidAmount, err)
		}
		m.TotalOwed = owed
		m.DebtCount++
		m.touch(ctx, 0)
	case *protocol.SettleMemberDebt:
		if msg.Amount == 0 || msg.Amount > m.TotalOwed {
			return protocol.Errorf(protocol.CodeInvalidAmount, "settlement %s exceeds total owed %s", msg.Amount, m.TotalOwed)
		}
		m.TotalOwed -= msg.Amount
		m.SuccessfulTransactionCount++
		m.touch(ctx, 0)
	case *protocol.UpdateStatus:
		if !msg.NewStatus.IsValid() {
			return protocol.Errorf(protocol.CodeInvalidArgument, "unknown member status %d", msg.NewStatus)
		}
		ctx.Logger.Info("Member status changed", "from", m.Status, "to", msg.NewStatus, "by", msg.UpdatedBy, "reason", msg.Reason)
		m.Status = msg.NewStatus
	default:
		return protocol.Errorf(protocol.CodeInvalidOpcode, "member does not handle %s", body.Opcode())
	}
	return nil
}

func (m *Member) initialize(ctx *runtime.Context, msg *protocol.InitializeMember) error {
	if m.Initialized {
		return protocol.Errorf(protocol.CodeAlreadyInitialized, "member %s is already initialized", m.Address.Short())
	}
	if msg.Owner.IsZero() {
		return protocol.Errorf(protocol.CodeInvalidParticipant, "member owner is the null address")
	}
	if msg.InitialScore > models.MaxReputation {
		return protocol.Errorf(protocol.CodeInvalidArgument, "initial score %d out of range", msg.InitialScore)
	}

	m.Owner = msg.Owner
	m.JoinedAt = msg.JoinedAt
	m.ReputationScore = uint8(msg.InitialScore)
	m.Status = models.StatusActive
	m.Profile.DisplayName = msg.DisplayName
	m.Initialized = true
	m.touch(ctx, msg.JoinedAt)
	ctx.Logger.Debug("Member initialized", "owner", msg.Owner)
	return nil
}

// updateProfile changes only the fields present in msg.
func (m *Member) updateProfile(ctx *runtime.Context, msg *protocol.UpdateProfile) error {
	if m.Status != models.StatusActive {
		return protocol.Errorf(protocol.CodeInactive, "member is %s", m.Status)
	}
	if msg.DisplayName != nil {
		m.Profile.DisplayName = *msg.DisplayName
	}
	if msg.AvatarHash != nil {
		m.Profile.AvatarHash = *msg.AvatarHash
	}
	if msg.Bio != nil {
		m.Profile.Bio = *msg.Bio
	}
	if msg.ContactInfo != nil {
		m.Profile.ContactInfo = *msg.ContactInfo
	}
	m.touch(ctx, 0)
	return nil
}

func (m *Member) touch(ctx *runtime.Context, at int64) {
	if at == 0 {
		at = ctx.Now.Unix()
	}
	m.LastActiveTimestamp = at
}
