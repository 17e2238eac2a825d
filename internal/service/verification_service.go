package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iap-service/internal/models"
	"iap-service/internal/store"
	"iap-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service-level sentinel errors mapped to HTTP statuses at the handler
// boundary.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrProfileNotFound = errors.New("profile not found")
)

// Catalog resolves product ids against the IAP catalog
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// PurchaseStore durably records purchase attempts. A duplicate token must
// surface as store.ErrDuplicatePurchaseToken.
type PurchaseStore interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
}

// ProfileStore reads and mutates entitlement state
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	ApplyEntitlement(ctx context.Context, userID, newRole string, creditsDelta int64) (*models.Profile, error)
}

// PurchaseEventPublisher publishes purchase events (best effort)
type PurchaseEventPublisher interface {
	PublishPurchaseVerified(ctx context.Context, event *models.PurchaseVerifiedEvent) error
}

// VerificationService reconciles a client-asserted purchase against the
// catalog and applies the resulting entitlement to the user's profile.
type VerificationService struct {
	catalog   Catalog
	purchases PurchaseStore
	profiles  ProfileStore
	publisher PurchaseEventPublisher
	logger    *zap.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(
	catalog Catalog,
	purchases PurchaseStore,
	profiles ProfileStore,
	publisher PurchaseEventPublisher,
) *VerificationService {
	return &VerificationService{
		catalog:   catalog,
		purchases: purchases,
		profiles:  profiles,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// VerifyPurchaseRequest is a client-asserted purchase claim. The token is
// the idempotency key issued by the client-side store. Status and Payload
// are recorded as supplied; no receipt verification against the app store
// is performed.
type VerifyPurchaseRequest struct {
	ProductID     string         `json:"productId" binding:"required"`
	PurchaseToken string         `json:"purchaseToken" binding:"required"`
	Status        string         `json:"status,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// VerifyPurchaseResponse carries the resulting entitlement state
type VerifyPurchaseResponse struct {
	Role            string `json:"role"`
	Credits         int64  `json:"credits"`
	AlreadyRecorded bool   `json:"already_recorded"`
}

// VerifyPurchase runs the reconciliation protocol: product lookup,
// idempotent purchase insert, profile lookup, entitlement application.
// A duplicate purchase token is recovered, not surfaced: the record is not
// duplicated and the current entitlement logic still runs against the
// profile as it stands now.
func (s *VerificationService) VerifyPurchase(ctx context.Context, userID string, req *VerifyPurchaseRequest) (*VerifyPurchaseResponse, error) {
	ctx, span := util.StartSpan(ctx, "VerificationService.VerifyPurchase")
	defer span.End()

	start := time.Now()
	defer func() {
		util.VerifyPurchaseLatency.Observe(time.Since(start).Seconds())
	}()

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			util.PurchasesFailedTotal.WithLabelValues("product_not_found").Inc()
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, req.ProductID)
		}
		util.PurchasesFailedTotal.WithLabelValues("catalog_error").Inc()
		return nil, fmt.Errorf("product lookup failed: %w", err)
	}

	status := req.Status
	if status == "" {
		status = models.PurchaseStatusVerified
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	purchase := &models.Purchase{
		UserID:        userID,
		ProductID:     req.ProductID,
		PurchaseToken: req.PurchaseToken,
		Status:        status,
		Payload:       payload,
	}

	alreadyRecorded := false
	if err := s.purchases.CreatePurchase(ctx, purchase); err != nil {
		if !errors.Is(err, store.ErrDuplicatePurchaseToken) {
			util.PurchasesFailedTotal.WithLabelValues("persistence_error").Inc()
			return nil, fmt.Errorf("failed to record purchase: %w", err)
		}
		alreadyRecorded = true
		util.PurchasesDuplicateTotal.Inc()
		s.logger.Info("Duplicate purchase token, treating as already recorded",
			zap.String("user_id", userID),
			zap.String("purchase_token", req.PurchaseToken))
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			util.PurchasesFailedTotal.WithLabelValues("profile_not_found").Inc()
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
		}
		util.PurchasesFailedTotal.WithLabelValues("profile_lookup_error").Inc()
		return nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	grant := computeEntitlement(product)
	if grant.grantsNothing() {
		s.logger.Warn("Catalogued product grants no entitlement",
			zap.String("product_id", req.ProductID),
			zap.String("user_id", userID))
	}

	updated, err := s.profiles.ApplyEntitlement(ctx, profile.ID, grant.Role, grant.CreditsDelta)
	if err != nil {
		util.PurchasesFailedTotal.WithLabelValues("entitlement_update_error").Inc()
		return nil, fmt.Errorf("entitlement update failed: %w", err)
	}

	if grant.Role != "" {
		util.RoleUpgradesTotal.WithLabelValues(grant.Role).Inc()
	}
	if grant.CreditsDelta > 0 {
		util.CreditsGrantedTotal.Add(float64(grant.CreditsDelta))
	}
	util.PurchasesVerifiedTotal.WithLabelValues(req.ProductID).Inc()

	s.publishVerified(ctx, userID, req, updated, alreadyRecorded)

	s.logger.Info("Purchase verified",
		zap.String("user_id", userID),
		zap.String("product_id", req.ProductID),
		zap.String("role", updated.Role),
		zap.Int64("credits", updated.Credits),
		zap.Bool("already_recorded", alreadyRecorded))

	return &VerifyPurchaseResponse{
		Role:            updated.Role,
		Credits:         updated.Credits,
		AlreadyRecorded: alreadyRecorded,
	}, nil
}

func (s *VerificationService) publishVerified(ctx context.Context, userID string, req *VerifyPurchaseRequest, profile *models.Profile, alreadyRecorded bool) {
	if s.publisher == nil {
		return
	}

	event := &models.PurchaseVerifiedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePurchaseVerified,
			Timestamp: time.Now(),
		},
		UserID:          userID,
		ProductID:       req.ProductID,
		PurchaseToken:   req.PurchaseToken,
		Role:            profile.Role,
		Credits:         profile.Credits,
		AlreadyRecorded: alreadyRecorded,
	}

	if err := s.publisher.PublishPurchaseVerified(ctx, event); err != nil {
		s.logger.Error("Failed to publish PurchaseVerified event", zap.Error(err))
	}
}
