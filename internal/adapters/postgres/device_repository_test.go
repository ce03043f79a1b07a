package postgres

import (
	"PushProbe/internal/core/domain"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceRepository_SaveGetRoundtrip(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewDeviceRepository(testDB, testSecSvc, &nopLogger)
	ctx := t.Context()
	defer cleanupDevices(t)

	token := "registration-token-123"
	device := &domain.Device{
		ID:                uuid.New(),
		ClientID:          "probe-client",
		RegistrationToken: &token,
		ActivationState:   domain.ActivationActivated,
	}
	require.NoError(t, repo.Save(ctx, device))
	assert.False(t, device.UpdatedAt.IsZero())

	found, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, device.ID, found.ID)
	assert.Equal(t, "probe-client", found.ClientID)
	assert.Equal(t, domain.ActivationActivated, found.ActivationState)
	require.NotNil(t, found.RegistrationToken)
	assert.Equal(t, token, *found.RegistrationToken)

	// The token must not be stored in the clear.
	var stored string
	require.NoError(t, testDB.pool.QueryRow(ctx, "SELECT registration_token FROM devices").Scan(&stored))
	assert.NotEqual(t, token, stored)
}

func TestDeviceRepository_SaveReplacesSingleRow(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewDeviceRepository(testDB, testSecSvc, &nopLogger)
	ctx := t.Context()
	defer cleanupDevices(t)

	first := &domain.Device{ID: uuid.New(), ClientID: "a", ActivationState: domain.ActivationNotActivated}
	second := &domain.Device{ID: uuid.New(), ClientID: "b", ActivationState: domain.ActivationDeactivated}
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	var count int
	require.NoError(t, testDB.pool.QueryRow(ctx, "SELECT count(*) FROM devices").Scan(&count))
	assert.Equal(t, 1, count)

	found, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
	assert.Nil(t, found.RegistrationToken)
}

func TestDeviceRepository_GetEmptyAndDelete(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewDeviceRepository(testDB, testSecSvc, &nopLogger)
	ctx := t.Context()
	cleanupDevices(t)

	found, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, found)

	require.NoError(t, repo.Save(ctx, &domain.Device{ID: uuid.New(), ClientID: "c", ActivationState: domain.ActivationActivated}))
	require.NoError(t, repo.Delete(ctx))

	found, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, found)
}
