package postgres

import (
	"PushProbe/internal/adapters/security"
	"PushProbe/internal/core/domain"
	"PushProbe/internal/core/ports"
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type deviceRepository struct {
	db     *DB
	secSvc ports.SecurityPort // Registration tokens are stored encrypted
	log    zerolog.Logger
}

var _ ports.DeviceRepository = (*deviceRepository)(nil)

// NewDeviceRepository creates a new repository for the local device.
func NewDeviceRepository(db *DB, secSvc ports.SecurityPort, baseLogger *zerolog.Logger) ports.DeviceRepository {
	return &deviceRepository{
		db:     db,
		secSvc: secSvc,
		log:    baseLogger.With().Str("component", "device_repo").Logger(),
	}
}

// Save encrypts the registration token and upserts the single device row.
func (r *deviceRepository) Save(ctx context.Context, device *domain.Device) error {
	var encToken *string
	if device.RegistrationToken != nil {
		enc, err := security.EncryptString(r.secSvc, *device.RegistrationToken)
		if err != nil {
			r.log.Error().Err(err).Msg("Failed to encrypt registration token")
			return err
		}
		encToken = &enc
	}

	query := `
		INSERT INTO devices (id, client_id, registration_token, activation_state, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (singleton) DO UPDATE SET
			id = EXCLUDED.id,
			client_id = EXCLUDED.client_id,
			registration_token = EXCLUDED.registration_token,
			activation_state = EXCLUDED.activation_state,
			updated_at = now()
		RETURNING updated_at
	`
	err := r.db.pool.QueryRow(ctx, query,
		device.ID,
		device.ClientID,
		encToken,
		device.ActivationState,
	).Scan(&device.UpdatedAt)
	if err != nil {
		r.log.Error().Err(err).Str("device_id", device.ID.String()).Msg("Failed to save device")
	}
	return err
}

// Get finds and decrypts the local device.
func (r *deviceRepository) Get(ctx context.Context) (*domain.Device, error) {
	query := `SELECT id, client_id, registration_token, activation_state, updated_at FROM devices LIMIT 1`

	var device domain.Device
	var encToken *string
	err := r.db.pool.QueryRow(ctx, query).Scan(
		&device.ID,
		&device.ClientID,
		&encToken,
		&device.ActivationState,
		&device.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Return nil, nil for "not found"
		}
		r.log.Error().Err(err).Msg("Failed to scan device row")
		return nil, err
	}

	if encToken != nil {
		token, err := security.DecryptString(r.secSvc, *encToken)
		if err != nil {
			r.log.Error().Err(err).Str("device_id", device.ID.String()).Msg("Failed to decrypt registration token (tampered?)")
			return nil, err
		}
		device.RegistrationToken = &token
	}
	return &device, nil
}

// Delete removes the local device, if any.
func (r *deviceRepository) Delete(ctx context.Context) error {
	if _, err := r.db.pool.Exec(ctx, `DELETE FROM devices`); err != nil {
		r.log.Error().Err(err).Msg("Failed to delete device")
		return err
	}
	return nil
}
