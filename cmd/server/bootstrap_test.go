package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/groupledger/internal/config"
	"github.com/mmynk/groupledger/internal/ledger"
	"github.com/mmynk/groupledger/internal/models"
	"github.com/mmynk/groupledger/internal/runtime"
	"github.com/mmynk/groupledger/internal/storage/memory"
)

var (
	owner = models.MustParseAddress("0x0000000000000000000000000000000000000001")
	alice = models.MustParseAddress("0x00000000000000000000000000000000000000a1")
)

func startRuntime(t *testing.T, store *memory.Store) *runtime.Runtime {
	t.Helper()
	rt, err := runtime.New(context.Background(), store, runtime.Config{}, ledger.Codes()...)
	require.NoError(t, err)
	return rt
}

func stopRuntime(t *testing.T, rt *runtime.Runtime) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Close(ctx))
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	cfg := config.Default()
	cfg.Registry.Owner = owner
	cfg.Registry.RegistrationFee = models.MustParseCoins("0.5")
	cfg.Genesis = []config.Allocation{{Address: alice, Amount: models.Units(10)}}

	rt := startRuntime(t, store)
	registry, err := bootstrap(ctx, rt, cfg, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, ledger.RegistryAddress(owner), registry)
	assert.Equal(t, models.Units(10), rt.Balance(alice))

	status, err := ledger.RegistryStatus(ctx, rt, registry)
	require.NoError(t, err)
	assert.Equal(t, owner, status.Owner)
	assert.Equal(t, models.MustParseCoins("0.5"), status.RegistrationFee)
	assert.Equal(t, ledger.DefaultMaxGroupsPerAdmin, status.MaxGroupsPerAdmin, "zero cap keeps the registry's value")
	stopRuntime(t, rt)

	// A restart against the same store restores the registry and skips genesis.
	cfg.Registry.MaxGroupsPerAdmin = 2
	rt = startRuntime(t, store)
	defer stopRuntime(t, rt)

	again, err := bootstrap(ctx, rt, cfg, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, registry, again)
	assert.Equal(t, models.Units(10), rt.Balance(alice))

	status, err = ledger.RegistryStatus(ctx, rt, registry)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), status.MaxGroupsPerAdmin)
	assert.Equal(t, models.MustParseCoins("0.5"), status.RegistrationFee)
}
