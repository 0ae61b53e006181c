package ledger

import (
	"fmt"

	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

func (g *Group) createGoal(ctx *runtime.Context, m *protocol.CreateGoal) error {
	if m.Title == "" {
		return protocol.Errorf(protocol.CodeInvalidArgument, "goal title is empty")
	}
	if m.TargetAmount == 0 {
		return protocol.Errorf(protocol.CodeInvalidAmount, "goal target must be positive")
	}
	if m.Deadline <= ctx.Now.Unix() {
		return protocol.Errorf(protocol.CodeDeadlinePassed, "goal deadline %d is not in the future", m.Deadline)
	}
	if m.Recipient.IsZero() {
		return protocol.Errorf(protocol.CodeInvalidParticipant, "goal recipient is the null address")
	}

	goal := models.Goal{
		ID:           uint64(len(g.Goals)),
		Title:        m.Title,
		Description:  m.Description,
		TargetAmount: m.TargetAmount,
		Deadline:     m.Deadline,
		Recipient:    m.Recipient,
		CreatedAt:    ctx.Now.Unix(),
	}
	g.Goals = append(g.Goals, goal)
	ctx.Logger.Info("Goal created", "goal_id", goal.ID, "target", goal.TargetAmount, "deadline", goal.Deadline)
	return nil
}

// contribute adds to a goal and completes it in the same step once the
// target is reached, paying the funds out to the recipient.
func (g *Group) contribute(ctx *runtime.Context, m *protocol.ContributeToGoal) (models.Coins, error) {
	if m.GoalID >= uint64(len(g.Goals)) {
		return 0, protocol.Errorf(protocol.CodeNotFound, "goal %d not found", m.GoalID)
	}
	goal := &g.Goals[m.GoalID]
	if goal.IsCompleted {
		return 0, protocol.Errorf(protocol.CodeGoalAlreadyFunded, "goal %d is already funded", goal.ID)
	}
	if ctx.Now.Unix() >= goal.Deadline {
		return 0, protocol.Errorf(protocol.CodeDeadlinePassed, "goal %d deadline passed", goal.ID)
	}
	if m.Amount == 0 || m.Amount < g.Settings.MinContribution {
		return 0, protocol.Errorf(protocol.CodeInvalidAmount, "contribution %s is below the minimum %s", m.Amount, g.Settings.MinContribution)
	}
	if ctx.Value < m.Amount {
		return 0, protocol.Errorf(protocol.CodeInvalidAmount, "attached %s does not cover contribution %s", ctx.Value, m.Amount)
	}
	current, err := goal.CurrentAmount.Add(m.Amount)
	if err != nil || current > goal.TargetAmount {
		return 0, protocol.Errorf(protocol.CodeInvalidAmount, "contribution %s exceeds the %s still needed", m.Amount, goal.TargetAmount-goal.CurrentAmount)
	}

	goal.CurrentAmount = current
	goal.ContributorCount++
	if goal.CurrentAmount == goal.TargetAmount {
		goal.IsCompleted = true
		if err := ctx.Pay(goal.Recipient, goal.CurrentAmount, fmt.Sprintf("goal %d funded", goal.ID)); err != nil {
			return 0, err
		}
		ctx.Logger.Info("Goal completed", "goal_id", goal.ID, "recipient", goal.Recipient, "amount", goal.CurrentAmount)
	}

	if entry, ok := g.Members[ctx.Sender]; ok {
		msg := &protocol.RecordContribution{
			Amount:         m.Amount,
			Purpose:        fmt.Sprintf("goal %d: %s", goal.ID, goal.Title),
			ContributionID: ctx.MessageID,
			Timestamp:      ctx.Now.Unix(),
		}
		if err := ctx.Send(entry.Actor, 0, msg, nil); err != nil {
			return 0, err
		}
	}
	ctx.Logger.Debug("Contribution recorded", "goal_id", goal.ID, "contributor", ctx.Sender, "amount", m.Amount, "current", goal.CurrentAmount)
	return m.Amount, nil
}
