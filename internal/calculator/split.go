package calculator

import (
	"fmt"
	"math/big"

	"github.com/mmynk/groupledger/internal/models"
)

// PersonSplit represents the calculated split for one person
type PersonSplit struct {
	Subtotal models.Coins `json:"subtotal"`
	Tax      models.Coins `json:"tax"`
	Total    models.Coins `json:"total"`
}

// Item represents a single item on the bill
type Item struct {
	Description string           `json:"description"`
	Amount      models.Coins     `json:"amount"`
	AssignedTo  []models.Address `json:"assigned_to"`
}

// EqualSplit divides total into n shares that differ by at most one nano-unit.
// The first total%n shares carry the extra unit, so the shares always sum to total.
func EqualSplit(total models.Coins, n int) []models.Coins {
	if n <= 0 {
		return nil
	}
	base := total / models.Coins(n)
	rem := int(total % models.Coins(n))
	shares := make([]models.Coins, n)
	for i := range shares {
		shares[i] = base
		if i < rem {
			shares[i]++
		}
	}
	return shares
}

// CalculateSplit computes how much each person owes including proportional tax
// Based on the algorithm: person_total = person_subtotal × (1 + (total_tax / bill_subtotal))
//
// Amounts are exact nano-units. Rounding leftovers go to participants in the
// order given, so the totals of fully assigned bills sum to billTotal.
func CalculateSplit(items []Item, billTotal, billSubtotal models.Coins, participants []models.Address) (map[models.Address]*PersonSplit, error) {
	if billSubtotal == 0 {
		return nil, fmt.Errorf("subtotal cannot be zero")
	}
	if billTotal < billSubtotal {
		return nil, fmt.Errorf("total %s is below subtotal %s", billTotal, billSubtotal)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	tax := billTotal - billSubtotal
	splits := make(map[models.Address]*PersonSplit, len(participants))
	for _, p := range participants {
		splits[p] = &PersonSplit{}
	}

	// If no items, split total equally among all participants
	if len(items) == 0 {
		subtotals := EqualSplit(billSubtotal, len(participants))
		taxes := EqualSplit(tax, len(participants))
		for i, p := range participants {
			splits[p].Subtotal = subtotals[i]
			splits[p].Tax = taxes[i]
		}
		if err := fillTotals(splits); err != nil {
			return nil, err
		}
		return splits, nil
	}

	// Calculate each person's subtotal based on assigned items
	var assigned models.Coins
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		for i, share := range EqualSplit(item.Amount, len(item.AssignedTo)) {
			split, exists := splits[item.AssignedTo[i]]
			if !exists {
				return nil, fmt.Errorf("item %q assigned to non-participant %s", item.Description, item.AssignedTo[i].Short())
			}
			subtotal, err := split.Subtotal.Add(share)
			if err != nil {
				return nil, fmt.Errorf("failed to add item %q: %w", item.Description, err)
			}
			split.Subtotal = subtotal
		}
		var err error
		if assigned, err = assigned.Add(item.Amount); err != nil {
			return nil, fmt.Errorf("failed to add item %q: %w", item.Description, err)
		}
	}
	if assigned > billSubtotal {
		return nil, fmt.Errorf("items sum to %s, above subtotal %s", assigned, billSubtotal)
	}

	// Apply proportional tax, floor each share, then hand out the leftover
	var taxed models.Coins
	for _, p := range participants {
		split := splits[p]
		split.Tax = proportion(split.Subtotal, tax, billSubtotal)
		taxed += split.Tax
	}
	if assigned == billSubtotal {
		for i := 0; taxed < tax; i = (i + 1) % len(participants) {
			splits[participants[i]].Tax++
			taxed++
		}
	}
	if err := fillTotals(splits); err != nil {
		return nil, err
	}
	return splits, nil
}

func fillTotals(splits map[models.Address]*PersonSplit) error {
	for _, split := range splits {
		total, err := split.Subtotal.Add(split.Tax)
		if err != nil {
			return fmt.Errorf("failed to total split: %w", err)
		}
		split.Total = total
	}
	return nil
}

// proportion returns floor(x * num / den) without overflowing.
func proportion(x, num, den models.Coins) models.Coins {
	v := new(big.Int).SetUint64(uint64(x))
	v.Mul(v, new(big.Int).SetUint64(uint64(num)))
	v.Quo(v, new(big.Int).SetUint64(uint64(den)))
	return models.Coins(v.Uint64())
}
