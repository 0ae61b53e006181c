package ledger

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// Registry creates groups and holds the global registration settings.
type Registry struct {
	Address           models.Address `json:"address"`
	Owner             models.Address `json:"owner"`
	TotalGroups       uint64         `json:"total_groups"`
	IsActive          bool           `json:"is_active"`
	StopReason        string         `json:"stop_reason,omitempty"`
	RegistrationFee   models.Coins   `json:"registration_fee"`
	MaxGroupsPerAdmin uint32         `json:"max_groups_per_admin"`
	FeesCollected     models.Coins   `json:"fees_collected"`

	// GroupsPerAdmin counts registered groups per admin address.
	GroupsPerAdmin map[models.Address]uint32 `json:"groups_per_admin"`
}

var (
	_ runtime.Behavior   = (*Registry)(nil)
	_ protocol.Authority = (*Registry)(nil)
)

func deployRegistry(self models.Address, data []byte) (runtime.Behavior, error) {
	init, err := protocol.DecodeInitData(data)
	if err != nil {
		return nil, err
	}
	if init.Parent.IsZero() {
		return nil, fmt.Errorf("registry owner must not be the null address")
	}
	return &Registry{
		Address:           self,
		Owner:             init.Parent,
		IsActive:          true,
		RegistrationFee:   DefaultRegistrationFee,
		MaxGroupsPerAdmin: DefaultMaxGroupsPerAdmin,
		GroupsPerAdmin:    make(map[models.Address]uint32),
	}, nil
}

// Allows implements protocol.Authority.
func (r *Registry) Allows(c protocol.Caller, sender models.Address) bool {
	return c == protocol.CallerOwner && sender == r.Owner
}

func (r *Registry) Clone() runtime.Behavior {
	c := *r
	c.GroupsPerAdmin = maps.Clone(r.GroupsPerAdmin)
	if c.GroupsPerAdmin == nil {
		c.GroupsPerAdmin = make(map[models.Address]uint32)
	}
	return &c
}

func (r *Registry) Snapshot() ([]byte, error) {
	return json.Marshal(r)
}

// Status returns the queryable state.
func (r *Registry) Status() models.RegistryStatus {
	return models.RegistryStatus{
		Address:           r.Address,
		Owner:             r.Owner,
		TotalGroups:       r.TotalGroups,
		IsActive:          r.IsActive,
		RegistrationFee:   r.RegistrationFee,
		MaxGroupsPerAdmin: r.MaxGroupsPerAdmin,
		FeesCollected:     r.FeesCollected,
		StopReason:        r.StopReason,
	}
}

func (r *Registry) Receive(ctx *runtime.Context, body []byte) error {
	env, err := protocol.Decode(body)
	if err != nil {
		return err
	}
	if err := protocol.Authorize(r, env.Body, ctx.Sender); err != nil {
		return err
	}

	switch m := env.Body.(type) {
	case *protocol.Transfer:
		return acceptTransfer(ctx)
	case *protocol.RegisterGroup:
		return r.registerGroup(ctx, m)
	case *protocol.UpdateFactorySettings:
		r.updateSettings(ctx, m)
	case *protocol.EmergencyStop:
		r.IsActive = false
		r.StopReason = m.Reason
		ctx.Logger.Warn("Registry stopped", "reason", m.Reason)
	case *protocol.ResumeFactory:
		r.IsActive = true
		r.StopReason = ""
		ctx.Logger.Info("Registry resumed")
	default:
		return protocol.Errorf(protocol.CodeInvalidOpcode, "registry does not handle %s", env.Body.Opcode())
	}
	return returnSurplus(ctx, 0)
}

func (r *Registry) registerGroup(ctx *runtime.Context, m *protocol.RegisterGroup) error {
	if !r.IsActive {
		return protocol.Errorf(protocol.CodeInactive, "registry is stopped: %s", r.StopReason)
	}
	if ctx.Value < r.RegistrationFee {
		return protocol.Errorf(protocol.CodeInvalidAmount, "registration fee is %s, got %s", r.RegistrationFee, ctx.Value)
	}
	if m.Name == "" {
		return protocol.Errorf(protocol.CodeInvalidArgument, "group name is empty")
	}
	if m.Admin.IsZero() {
		return protocol.Errorf(protocol.CodeInvalidParticipant, "group admin is the null address")
	}
	if r.MaxGroupsPerAdmin > 0 && r.GroupsPerAdmin[m.Admin] >= r.MaxGroupsPerAdmin {
		return protocol.Errorf(protocol.CodeLimitExceeded, "admin %s already has %d groups", m.Admin.Short(), r.GroupsPerAdmin[m.Admin])
	}
	if err := ctx.Charge(gasWrite); err != nil {
		return err
	}

	fees, err := r.FeesCollected.Add(r.RegistrationFee)
	if err != nil {
		return protocol.Wrap(protocol.CodeInvalidAmount, err)
	}
	index := r.TotalGroups
	addr, data := protocol.ChildAddress(protocol.GroupCode, r.Address, index)

	r.TotalGroups++
	r.GroupsPerAdmin[m.Admin]++
	r.FeesCollected = fees

	init := &runtime.StateInit{Code: protocol.GroupCode, Data: data}
	if err := ctx.Send(addr, 0, &protocol.InitializeGroup{Hash: m.Hash, Name: m.Name, Admin: m.Admin}, init); err != nil {
		return err
	}
	ctx.Logger.Info("Group registered", "index", index, "group", addr, "admin", m.Admin, "name", m.Name)
	return returnSurplus(ctx, r.RegistrationFee)
}

// updateSettings treats zero fields as "leave unchanged".
func (r *Registry) updateSettings(ctx *runtime.Context, m *protocol.UpdateFactorySettings) {
	if m.MaxGroupsPerAdmin != 0 {
		r.MaxGroupsPerAdmin = m.MaxGroupsPerAdmin
	}
	if m.RegistrationFee != 0 {
		r.RegistrationFee = m.RegistrationFee
	}
	ctx.Logger.Info("Registry settings updated", "max_groups_per_admin", r.MaxGroupsPerAdmin, "registration_fee", r.RegistrationFee)
}
