package models

// RegistryStatus is the queryable state of the Registry actor.
type RegistryStatus struct {
	Address           Address `json:"address"`
	Owner             Address `json:"owner"`
	TotalGroups       uint64  `json:"total_groups"`
	IsActive          bool    `json:"is_active"`
	RegistrationFee   Coins   `json:"registration_fee"`
	MaxGroupsPerAdmin uint32  `json:"max_groups_per_admin"`
	FeesCollected     Coins   `json:"fees_collected"`
	StopReason        string  `json:"stop_reason,omitempty"`
}
