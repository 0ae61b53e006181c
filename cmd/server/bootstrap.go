package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/groupledger/internal/config"
	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// bootstrap deploys the registry owned by the configured owner, funds the
// genesis wallets when the registry is new, and brings the registry's fee
// and cap in line with the config.
func bootstrap(ctx context.Context, rt *runtime.Runtime, cfg *config.Config, logger *slog.Logger) (models.Address, error) {
	owner := cfg.Registry.Owner
	addr := ledger.RegistryAddress(owner)

	_, err := ledger.RegistryStatus(ctx, rt, addr)
	fresh := errors.Is(err, protocol.ErrNotFound)
	if err != nil && !fresh {
		return models.Address{}, fmt.Errorf("failed to query registry: %w", err)
	}

	if fresh {
		if _, err := rt.Deploy(ctx, protocol.RegistryCode, ledger.RegistryInit(owner)); err != nil {
			return models.Address{}, fmt.Errorf("failed to deploy registry: %w", err)
		}
		for _, a := range cfg.Genesis {
			if err := rt.Mint(ctx, a.Address, a.Amount); err != nil {
				return models.Address{}, fmt.Errorf("failed to apply genesis allocation: %w", err)
			}
			logger.Info("Genesis allocation minted", "address", a.Address, "amount", a.Amount)
		}
		logger.Info("Registry deployed", "address", addr, "owner", owner)
	} else {
		logger.Info("Registry restored", "address", addr, "owner", owner)
	}

	status, err := ledger.RegistryStatus(ctx, rt, addr)
	if err != nil {
		return models.Address{}, fmt.Errorf("failed to query registry: %w", err)
	}

	update := &protocol.UpdateFactorySettings{}
	if fee := cfg.Registry.RegistrationFee; fee != 0 && fee != status.RegistrationFee {
		update.RegistrationFee = fee
	}
	if limit := cfg.Registry.MaxGroupsPerAdmin; limit != 0 && limit != status.MaxGroupsPerAdmin {
		update.MaxGroupsPerAdmin = limit
	}
	if *update == (protocol.UpdateFactorySettings{}) {
		return addr, nil
	}

	receipt, err := rt.SubmitWait(ctx, owner, addr, 0, protocol.Encode(update, 0))
	if err != nil {
		return models.Address{}, fmt.Errorf("failed to update registry settings: %w", err)
	}
	if !receipt.OK() {
		return models.Address{}, fmt.Errorf("failed to update registry settings: %w", receipt.Err)
	}
	logger.Info("Registry settings updated",
		"registration_fee", update.RegistrationFee,
		"max_groups_per_admin", update.MaxGroupsPerAdmin,
	)
	return addr, nil
}
