package protocol

import "fmt"

// Opcode tags the message variant an envelope carries.
type Opcode uint32

const (
	// OpTransfer is the empty message: it always succeeds and returns the attached value.
	OpTransfer Opcode = 0x00000000

	OpRegisterGroup         Opcode = 0x52470001
	OpUpdateFactorySettings Opcode = 0x52470002
	OpEmergencyStop         Opcode = 0x52470003
	OpResumeFactory         Opcode = 0x52470004

	OpInitializeGroup     Opcode = 0x4c470001
	OpAddMember           Opcode = 0x4c470002
	OpRemoveMember        Opcode = 0x4c470003
	OpRequestJoin         Opcode = 0x4c470004
	OpLeaveGroup          Opcode = 0x4c470005
	OpCreateGoal          Opcode = 0x4c470006
	OpContributeToGoal    Opcode = 0x4c470007
	OpRecordExpense       Opcode = 0x4c470008
	OpSettleDebt          Opcode = 0x4c470009
	OpUpdateGroupSettings Opcode = 0x4c47000a
	OpSetMemberReputation Opcode = 0x4c47000b
	OpSetMemberStatus     Opcode = 0x4c47000c
	OpDeactivateGroup     Opcode = 0x4c47000d

	OpInitializeMember   Opcode = 0x4d520001
	OpUpdateProfile      Opcode = 0x4d520002
	OpUpdateReputation   Opcode = 0x4d520003
	OpRecordContribution Opcode = 0x4d520004
	OpRecordDebt         Opcode = 0x4d520005
	OpSettleMemberDebt   Opcode = 0x4d520006
	OpUpdateStatus       Opcode = 0x4d520007
)

var opcodeNames = map[Opcode]string{
	OpTransfer:              "transfer",
	OpRegisterGroup:         "register_group",
	OpUpdateFactorySettings: "update_factory_settings",
	OpEmergencyStop:         "emergency_stop",
	OpResumeFactory:         "resume_factory",
	OpInitializeGroup:       "initialize_group",
	OpAddMember:             "add_member",
	OpRemoveMember:          "remove_member",
	OpRequestJoin:           "request_join",
	OpLeaveGroup:            "leave_group",
	OpCreateGoal:            "create_goal",
	OpContributeToGoal:      "contribute_to_goal",
	OpRecordExpense:         "record_expense",
	OpSettleDebt:            "settle_debt",
	OpUpdateGroupSettings:   "update_group_settings",
	OpSetMemberReputation:   "set_member_reputation",
	OpSetMemberStatus:       "set_member_status",
	OpDeactivateGroup:       "deactivate_group",
	OpInitializeMember:      "initialize_member",
	OpUpdateProfile:         "update_profile",
	OpUpdateReputation:      "update_reputation",
	OpRecordContribution:    "record_contribution",
	OpRecordDebt:            "record_debt",
	OpSettleMemberDebt:      "settle_member_debt",
	OpUpdateStatus:          "update_status",
}

// String returns the snake_case name of the opcode.
func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%08x)", uint32(o))
}

// Known reports whether o names a message variant.
func (o Opcode) Known() bool {
	_, ok := opcodeNames[o]
	return ok
}
