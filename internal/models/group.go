package models

// Settings are the tunables of a Group Ledger.
type Settings struct {
	// RequireAdminApproval makes RequestJoin file a pending request instead of joining directly.
	RequireAdminApproval bool `json:"require_admin_approval"`

	// MinContribution is the smallest accepted goal contribution.
	MinContribution Coins `json:"min_contribution"`

	// MaxMembers caps the roster size.
	MaxMembers uint32 `json:"max_members"`

	// AllowSelfRemoval lets a member leave without the admin.
	AllowSelfRemoval bool `json:"allow_self_removal"`

	// ReputationThreshold is advisory and published to clients.
	ReputationThreshold uint8 `json:"reputation_threshold"`
}

// DefaultSettings returns the settings a freshly initialized group starts with.
func DefaultSettings() Settings {
	return Settings{
		RequireAdminApproval: true,
		MinContribution:      0,
		MaxMembers:           50,
		AllowSelfRemoval:     true,
		ReputationThreshold:  0,
	}
}

// GroupInfo is the header of a Group Ledger actor.
type GroupInfo struct {
	// Address is the actor's own address.
	Address Address `json:"address"`

	// Registry is the parent actor allowed to initialize the group.
	Registry Address `json:"registry"`

	// Index is the registry-assigned sequence number used to derive Address.
	Index uint64 `json:"index"`

	// Hash is an opaque external identifier supplied at registration.
	Hash string `json:"hash"`

	Name  string  `json:"name"`
	Admin Address `json:"admin"`

	// CreatedAt is the Unix timestamp of initialization.
	CreatedAt int64 `json:"created_at"`

	Initialized bool `json:"initialized"`
	Active      bool `json:"active"`

	MemberCount             uint32 `json:"member_count"`
	TotalMembersEverCreated uint64 `json:"total_members_ever_created"`
	GoalCount               uint64 `json:"goal_count"`
	ExpenseCount            uint64 `json:"expense_count"`
	NextDebtID              uint64 `json:"next_debt_id"`
	PendingJoinRequests     int    `json:"pending_join_requests"`

	Settings Settings `json:"settings"`
}

// MemberEntry maps a member's wallet address to its Member actor.
type MemberEntry struct {
	Address Address `json:"address"`
	Actor   Address `json:"actor"`

	// Index is the member index used to derive Actor.
	Index    uint64 `json:"index"`
	JoinedAt int64  `json:"joined_at"`
}

// JoinRequest is a pending RequestJoin awaiting admin approval.
type JoinRequest struct {
	Address     Address `json:"address"`
	DisplayName string  `json:"display_name"`
	RequestedAt int64   `json:"requested_at"`
}

// Goal is a funding target members contribute towards.
//
// CurrentAmount never exceeds TargetAmount. IsCompleted becomes true exactly
// when CurrentAmount reaches TargetAmount and never reverts.
type Goal struct {
	ID               uint64  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	TargetAmount     Coins   `json:"target_amount"`
	CurrentAmount    Coins   `json:"current_amount"`
	Deadline         int64   `json:"deadline"`
	Recipient        Address `json:"recipient"`
	IsCompleted      bool    `json:"is_completed"`
	ContributorCount uint32  `json:"contributor_count"`
	CreatedAt        int64   `json:"created_at"`
}
