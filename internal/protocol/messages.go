package protocol

import "github.com/mmynk/groupledger/internal/models"

// Body is one message variant. The set is closed: only this package can
// implement it, and Decode switches over every opcode.
type Body interface {
	Opcode() Opcode

	// RequiredCaller is the sender class the receiver must verify before
	// mutating state.
	RequiredCaller() Caller

	encode(e *encoder)
	decode(d *decoder)
}

// Transfer is the empty message. It carries value and an optional comment.
type Transfer struct {
	Comment string
}

func (*Transfer) Opcode() Opcode         { return OpTransfer }
func (*Transfer) RequiredCaller() Caller { return CallerAny }
func (m *Transfer) encode(e *encoder) {
	if m.Comment != "" {
		e.str(1, m.Comment)
	}
}
func (m *Transfer) decode(d *decoder) { m.Comment = d.str(1) }

// Registry messages.

type RegisterGroup struct {
	Name  string
	Hash  string
	Admin models.Address
}

func (*RegisterGroup) Opcode() Opcode         { return OpRegisterGroup }
func (*RegisterGroup) RequiredCaller() Caller { return CallerAny }
func (m *RegisterGroup) encode(e *encoder) {
	e.str(1, m.Name)
	e.str(2, m.Hash)
	e.addr(3, m.Admin)
}
func (m *RegisterGroup) decode(d *decoder) {
	m.Name = d.str(1)
	m.Hash = d.str(2)
	m.Admin = d.addr(3)
}

// UpdateFactorySettings changes registry settings. Zero fields are left unchanged.
type UpdateFactorySettings struct {
	MaxGroupsPerAdmin uint32
	RegistrationFee   models.Coins
}

func (*UpdateFactorySettings) Opcode() Opcode         { return OpUpdateFactorySettings }
func (*UpdateFactorySettings) RequiredCaller() Caller { return CallerOwner }
func (m *UpdateFactorySettings) encode(e *encoder) {
	e.uint(1, uint64(m.MaxGroupsPerAdmin))
	e.coins(2, m.RegistrationFee)
}
func (m *UpdateFactorySettings) decode(d *decoder) {
	m.MaxGroupsPerAdmin = d.uint32(1)
	m.RegistrationFee = d.coins(2)
}

type EmergencyStop struct {
	Reason string
}

func (*EmergencyStop) Opcode() Opcode         { return OpEmergencyStop }
func (*EmergencyStop) RequiredCaller() Caller { return CallerOwner }
func (m *EmergencyStop) encode(e *encoder)    { e.str(1, m.Reason) }
func (m *EmergencyStop) decode(d *decoder)    { m.Reason = d.str(1) }

type ResumeFactory struct{}

func (*ResumeFactory) Opcode() Opcode         { return OpResumeFactory }
func (*ResumeFactory) RequiredCaller() Caller { return CallerOwner }
func (*ResumeFactory) encode(*encoder)        {}
func (*ResumeFactory) decode(*decoder)        {}

// Group Ledger messages.

// InitializeGroup is the second phase of group creation; only the registry sends it.
type InitializeGroup struct {
	Hash  string
	Name  string
	Admin models.Address
}

func (*InitializeGroup) Opcode() Opcode         { return OpInitializeGroup }
func (*InitializeGroup) RequiredCaller() Caller { return CallerParent }
func (m *InitializeGroup) encode(e *encoder) {
	e.str(1, m.Hash)
	e.str(2, m.Name)
	e.addr(3, m.Admin)
}
func (m *InitializeGroup) decode(d *decoder) {
	m.Hash = d.str(1)
	m.Name = d.str(2)
	m.Admin = d.addr(3)
}

type AddMember struct {
	Member      models.Address
	DisplayName string
}

func (*AddMember) Opcode() Opcode         { return OpAddMember }
func (*AddMember) RequiredCaller() Caller { return CallerAdmin }
func (m *AddMember) encode(e *encoder) {
	e.addr(1, m.Member)
	e.str(2, m.DisplayName)
}
func (m *AddMember) decode(d *decoder) {
	m.Member = d.addr(1)
	m.DisplayName = d.str(2)
}

type RemoveMember struct {
	Member models.Address
	Reason string
}

func (*RemoveMember) Opcode() Opcode         { return OpRemoveMember }
func (*RemoveMember) RequiredCaller() Caller { return CallerAdmin }
func (m *RemoveMember) encode(e *encoder) {
	e.addr(1, m.Member)
	e.str(2, m.Reason)
}
func (m *RemoveMember) decode(d *decoder) {
	m.Member = d.addr(1)
	m.Reason = d.str(2)
}

type RequestJoin struct {
	DisplayName string
}

func (*RequestJoin) Opcode() Opcode         { return OpRequestJoin }
func (*RequestJoin) RequiredCaller() Caller { return CallerAny }
func (m *RequestJoin) encode(e *encoder)    { e.str(1, m.DisplayName) }
func (m *RequestJoin) decode(d *decoder)    { m.DisplayName = d.str(1) }

type LeaveGroup struct {
	Reason string
}

func (*LeaveGroup) Opcode() Opcode         { return OpLeaveGroup }
func (*LeaveGroup) RequiredCaller() Caller { return CallerMember }
func (m *LeaveGroup) encode(e *encoder)    { e.str(1, m.Reason) }
func (m *LeaveGroup) decode(d *decoder)    { m.Reason = d.str(1) }

type CreateGoal struct {
	Title        string
	Description  string
	TargetAmount models.Coins
	Deadline     int64
	Recipient    models.Address
}

func (*CreateGoal) Opcode() Opcode         { return OpCreateGoal }
func (*CreateGoal) RequiredCaller() Caller { return CallerAdmin }
func (m *CreateGoal) encode(e *encoder) {
	e.str(1, m.Title)
	e.str(2, m.Description)
	e.coins(3, m.TargetAmount)
	e.int(4, m.Deadline)
	e.addr(5, m.Recipient)
}
func (m *CreateGoal) decode(d *decoder) {
	m.Title = d.str(1)
	m.Description = d.str(2)
	m.TargetAmount = d.coins(3)
	m.Deadline = d.int(4)
	m.Recipient = d.addr(5)
}

type ContributeToGoal struct {
	GoalID uint64
	Amount models.Coins
}

func (*ContributeToGoal) Opcode() Opcode         { return OpContributeToGoal }
func (*ContributeToGoal) RequiredCaller() Caller { return CallerAny }
func (m *ContributeToGoal) encode(e *encoder) {
	e.uint(1, m.GoalID)
	e.coins(2, m.Amount)
}
func (m *ContributeToGoal) decode(d *decoder) {
	m.GoalID = d.uint(1)
	m.Amount = d.coins(2)
}

// RecordExpense splits an expense into one debt per participant. The shares
// are taken as given; their sum is not reconciled with TotalAmount.
type RecordExpense struct {
	Description  string
	TotalAmount  models.Coins
	Payer        models.Address
	Participants []models.Address
	Amounts      []models.Coins
	DueDate      int64
}

func (*RecordExpense) Opcode() Opcode         { return OpRecordExpense }
func (*RecordExpense) RequiredCaller() Caller { return CallerAdmin }
func (m *RecordExpense) encode(e *encoder) {
	e.str(1, m.Description)
	e.coins(2, m.TotalAmount)
	e.addr(3, m.Payer)
	for _, p := range m.Participants {
		e.addr(4, p)
	}
	for _, a := range m.Amounts {
		e.coins(5, a)
	}
	if m.DueDate != 0 {
		e.int(6, m.DueDate)
	}
}
func (m *RecordExpense) decode(d *decoder) {
	m.Description = d.str(1)
	m.TotalAmount = d.coins(2)
	m.Payer = d.addr(3)
	m.Participants = d.addrs(4)
	m.Amounts = d.coinList(5)
	m.DueDate = d.int(6)
}

type SettleDebt struct {
	DebtID       uint64
	Amount       models.Coins
	Creditor     models.Address
	SettlementID string
}

func (*SettleDebt) Opcode() Opcode         { return OpSettleDebt }
func (*SettleDebt) RequiredCaller() Caller { return CallerAny }
func (m *SettleDebt) encode(e *encoder) {
	e.uint(1, m.DebtID)
	e.coins(2, m.Amount)
	e.addr(3, m.Creditor)
	e.str(4, m.SettlementID)
}
func (m *SettleDebt) decode(d *decoder) {
	m.DebtID = d.uint(1)
	m.Amount = d.coins(2)
	m.Creditor = d.addr(3)
	m.SettlementID = d.str(4)
}

// UpdateGroupSettings changes group settings. Zero numbers and nil flags
// are left unchanged.
type UpdateGroupSettings struct {
	RequireAdminApproval *bool
	MinContribution      models.Coins
	MaxMembers           uint32
	AllowSelfRemoval     *bool
	ReputationThreshold  uint32
}

func (*UpdateGroupSettings) Opcode() Opcode         { return OpUpdateGroupSettings }
func (*UpdateGroupSettings) RequiredCaller() Caller { return CallerAdmin }
func (m *UpdateGroupSettings) encode(e *encoder) {
	e.optBool(1, m.RequireAdminApproval)
	e.coins(2, m.MinContribution)
	e.uint(3, uint64(m.MaxMembers))
	e.optBool(4, m.AllowSelfRemoval)
	e.uint(5, uint64(m.ReputationThreshold))
}
func (m *UpdateGroupSettings) decode(d *decoder) {
	m.RequireAdminApproval = d.optBool(1)
	m.MinContribution = d.coins(2)
	m.MaxMembers = d.uint32(3)
	m.AllowSelfRemoval = d.optBool(4)
	m.ReputationThreshold = d.uint32(5)
}

type SetMemberReputation struct {
	Member models.Address
	Score  uint32
	Reason string
}

func (*SetMemberReputation) Opcode() Opcode         { return OpSetMemberReputation }
func (*SetMemberReputation) RequiredCaller() Caller { return CallerAdmin }
func (m *SetMemberReputation) encode(e *encoder) {
	e.addr(1, m.Member)
	e.uint(2, uint64(m.Score))
	e.str(3, m.Reason)
}
func (m *SetMemberReputation) decode(d *decoder) {
	m.Member = d.addr(1)
	m.Score = d.uint32(2)
	m.Reason = d.str(3)
}

type SetMemberStatus struct {
	Member models.Address
	Status models.MemberStatus
	Reason string
}

func (*SetMemberStatus) Opcode() Opcode         { return OpSetMemberStatus }
func (*SetMemberStatus) RequiredCaller() Caller { return CallerAdmin }
func (m *SetMemberStatus) encode(e *encoder) {
	e.addr(1, m.Member)
	e.uint(2, uint64(m.Status))
	e.str(3, m.Reason)
}
func (m *SetMemberStatus) decode(d *decoder) {
	m.Member = d.addr(1)
	m.Status = models.MemberStatus(d.uint8(2))
	m.Reason = d.str(3)
}

type DeactivateGroup struct {
	Reason string
}

func (*DeactivateGroup) Opcode() Opcode         { return OpDeactivateGroup }
func (*DeactivateGroup) RequiredCaller() Caller { return CallerAdmin }
func (m *DeactivateGroup) encode(e *encoder)    { e.str(1, m.Reason) }
func (m *DeactivateGroup) decode(d *decoder)    { m.Reason = d.str(1) }

// Member messages.

// InitializeMember is sent by the parent group when it spawns the member actor.
type InitializeMember struct {
	Owner        models.Address
	JoinedAt     int64
	InitialScore uint32
	DisplayName  string
}

func (*InitializeMember) Opcode() Opcode         { return OpInitializeMember }
func (*InitializeMember) RequiredCaller() Caller { return CallerParent }
func (m *InitializeMember) encode(e *encoder) {
	e.addr(1, m.Owner)
	e.int(2, m.JoinedAt)
	e.uint(3, uint64(m.InitialScore))
	e.str(4, m.DisplayName)
}
func (m *InitializeMember) decode(d *decoder) {
	m.Owner = d.addr(1)
	m.JoinedAt = d.int(2)
	m.InitialScore = d.uint32(3)
	m.DisplayName = d.str(4)
}

// UpdateProfile edits the owner's profile. Nil fields are left untouched.
type UpdateProfile struct {
	DisplayName *string
	AvatarHash  *string
	Bio         *string
	ContactInfo *string
}

func (*UpdateProfile) Opcode() Opcode         { return OpUpdateProfile }
func (*UpdateProfile) RequiredCaller() Caller { return CallerOwner }
func (m *UpdateProfile) encode(e *encoder) {
	e.optStr(1, m.DisplayName)
	e.optStr(2, m.AvatarHash)
	e.optStr(3, m.Bio)
	e.optStr(4, m.ContactInfo)
}
func (m *UpdateProfile) decode(d *decoder) {
	m.DisplayName = d.optStr(1)
	m.AvatarHash = d.optStr(2)
	m.Bio = d.optStr(3)
	m.ContactInfo = d.optStr(4)
}

type UpdateReputation struct {
	NewScore  uint32
	Reason    string
	UpdatedBy models.Address
}

func (*UpdateReputation) Opcode() Opcode         { return OpUpdateReputation }
func (*UpdateReputation) RequiredCaller() Caller { return CallerParent }
func (m *UpdateReputation) encode(e *encoder) {
	e.uint(1, uint64(m.NewScore))
	e.str(2, m.Reason)
	e.addr(3, m.UpdatedBy)
}
func (m *UpdateReputation) decode(d *decoder) {
	m.NewScore = d.uint32(1)
	m.Reason = d.str(2)
	m.UpdatedBy = d.addr(3)
}

type RecordContribution struct {
	Amount         models.Coins
	Purpose        string
	ContributionID string
	Timestamp      int64
}

func (*RecordContribution) Opcode() Opcode         { return OpRecordContribution }
func (*RecordContribution) RequiredCaller() Caller { return CallerParent }
func (m *RecordContribution) encode(e *encoder) {
	e.coins(1, m.Amount)
	e.str(2, m.Purpose)
	e.str(3, m.ContributionID)
	e.int(4, m.Timestamp)
}
func (m *RecordContribution) decode(d *decoder) {
	m.Amount = d.coins(1)
	m.Purpose = d.str(2)
	m.ContributionID = d.str(3)
	m.Timestamp = d.int(4)
}

type RecordDebt struct {
	Amount   models.Coins
	Creditor models.Address
	DebtID   uint64
	Reason   string
	DueDate  int64
}

func (*RecordDebt) Opcode() Opcode         { return OpRecordDebt }
func (*RecordDebt) RequiredCaller() Caller { return CallerParent }
func (m *RecordDebt) encode(e *encoder) {
	e.coins(1, m.Amount)
	e.addr(2, m.Creditor)
	e.uint(3, m.DebtID)
	e.str(4, m.Reason)
	if m.DueDate != 0 {
		e.int(5, m.DueDate)
	}
}
func (m *RecordDebt) decode(d *decoder) {
	m.Amount = d.coins(1)
	m.Creditor = d.addr(2)
	m.DebtID = d.uint(3)
	m.Reason = d.str(4)
	m.DueDate = d.int(5)
}

// SettleMemberDebt mirrors a group settlement into the debtor's record.
type SettleMemberDebt struct {
	DebtID       uint64
	Amount       models.Coins
	Creditor     models.Address
	SettlementID string
}

func (*SettleMemberDebt) Opcode() Opcode         { return OpSettleMemberDebt }
func (*SettleMemberDebt) RequiredCaller() Caller { return CallerParent }
func (m *SettleMemberDebt) encode(e *encoder) {
	e.uint(1, m.DebtID)
	e.coins(2, m.Amount)
	e.addr(3, m.Creditor)
	e.str(4, m.SettlementID)
}
func (m *SettleMemberDebt) decode(d *decoder) {
	m.DebtID = d.uint(1)
	m.Amount = d.coins(2)
	m.Creditor = d.addr(3)
	m.SettlementID = d.str(4)
}

type UpdateStatus struct {
	NewStatus models.MemberStatus
	Reason    string
	UpdatedBy models.Address
}

func (*UpdateStatus) Opcode() Opcode         { return OpUpdateStatus }
func (*UpdateStatus) RequiredCaller() Caller { return CallerParent }
func (m *UpdateStatus) encode(e *encoder) {
	e.uint(1, uint64(m.NewStatus))
	e.str(2, m.Reason)
	e.addr(3, m.UpdatedBy)
}
func (m *UpdateStatus) decode(d *decoder) {
	m.NewStatus = models.MemberStatus(d.uint8(1))
	m.Reason = d.str(2)
	m.UpdatedBy = d.addr(3)
}
