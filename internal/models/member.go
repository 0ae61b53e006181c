package models

import "fmt"

// MemberStatus is the lifecycle state of a Member actor.
type MemberStatus uint8

const (
	StatusActive MemberStatus = iota
	StatusSuspended
	StatusInactive
)

// String returns the string representation of MemberStatus.
func (s MemberStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	case StatusInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// IsValid reports whether s is a known status.
func (s MemberStatus) IsValid() bool {
	return s <= StatusInactive
}

// MarshalText implements encoding.TextMarshaler.
func (s MemberStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MemberStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = StatusActive
	case "suspended":
		*s = StatusSuspended
	case "inactive":
		*s = StatusInactive
	default:
		return fmt.Errorf("unknown member status %q", text)
	}
	return nil
}

// MaxReputation is the upper bound of a reputation score.
const MaxReputation = 100

// Profile is the owner-editable part of a Member actor.
type Profile struct {
	DisplayName string `json:"display_name"`
	AvatarHash  string `json:"avatar_hash"`
	Bio         string `json:"bio"`
	ContactInfo string `json:"contact_info"`
}

// MemberRecord is the full state of one Member actor.
type MemberRecord struct {
	Address Address `json:"address"`
	Owner   Address `json:"owner"`
	Group   Address `json:"group"`
	Index   uint64  `json:"index"`

	Initialized bool `json:"initialized"`

	Profile         Profile      `json:"profile"`
	ReputationScore uint8        `json:"reputation_score"`
	Status          MemberStatus `json:"status"`
	JoinedAt        int64        `json:"joined_at"`

	MemberStats
}

// MemberStats are the running totals a Group Ledger reports to a Member actor.
type MemberStats struct {
	TotalContributed           Coins  `json:"total_contributed"`
	TotalOwed                  Coins  `json:"total_owed"`
	ContributionCount          uint32 `json:"contribution_count"`
	DebtCount                  uint32 `json:"debt_count"`
	SuccessfulTransactionCount uint32 `json:"successful_transaction_count"`
	LastActiveTimestamp        int64  `json:"last_active_timestamp"`
}
