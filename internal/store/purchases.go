package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"iap-service/internal/models"
)

// CreatePurchase inserts a purchase record. A unique-constraint violation
// on purchase_token is returned as ErrDuplicatePurchaseToken so the caller
// can treat a retried submission as already recorded.
func (s *Store) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	payload, err := marshalPayload(purchase.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO iap_purchases (user_id, product_id, purchase_token, status, payload)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		RETURNING id, created_at`

	err = s.db.GetContext(ctx, purchase, query,
		purchase.UserID, purchase.ProductID, purchase.PurchaseToken, purchase.Status, payload)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicatePurchaseToken, purchase.PurchaseToken)
		}
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

// GetPurchaseByToken retrieves a purchase by its idempotency token
func (s *Store) GetPurchaseByToken(ctx context.Context, token string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := s.db.GetContext(ctx, &purchase,
		"SELECT id, user_id, product_id, purchase_token, status, created_at FROM iap_purchases WHERE purchase_token = $1",
		token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// GetPurchasesByUserID retrieves the purchase history for a user
func (s *Store) GetPurchasesByUserID(ctx context.Context, userID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.SelectContext(ctx, &purchases,
		"SELECT id, user_id, product_id, purchase_token, status, created_at FROM iap_purchases WHERE user_id = $1 ORDER BY created_at DESC",
		userID)
	return purchases, err
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if len(payload) == 0 {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal purchase payload: %w", err)
	}
	return raw, nil
}
