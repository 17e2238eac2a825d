package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"iap-service/internal/models"
)

// GetProfile retrieves a user profile by ID
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.GetContext(ctx, &profile,
		"SELECT id, role, credits, updated_at FROM profiles WHERE id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ApplyEntitlement applies a role change and/or credit grant in a single
// conditional update and returns the resulting profile. An empty newRole
// keeps the current role; the credit grant is an atomic increment, so
// concurrent grants for the same user cannot lose updates.
func (s *Store) ApplyEntitlement(ctx context.Context, userID, newRole string, creditsDelta int64) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET role = COALESCE(NULLIF($2, ''), role),
		    credits = credits + $3,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, role, credits, updated_at`

	var profile models.Profile
	err := s.db.GetContext(ctx, &profile, query, userID, newRole, creditsDelta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update entitlements: %w", err)
	}
	return &profile, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
