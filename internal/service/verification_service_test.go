package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"iap-service/internal/models"
	"iap-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products map[string]*models.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrProductNotFound, id)
	}
	return product, nil
}

type fakePurchaseStore struct {
	mu      sync.Mutex
	byToken map[string]models.Purchase
	nextID  int64
	failAll bool
}

func (f *fakePurchaseStore) CreatePurchase(_ context.Context, purchase *models.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return fmt.Errorf("connection reset")
	}
	if _, exists := f.byToken[purchase.PurchaseToken]; exists {
		return fmt.Errorf("%w: %s", store.ErrDuplicatePurchaseToken, purchase.PurchaseToken)
	}

	f.nextID++
	purchase.ID = f.nextID
	f.byToken[purchase.PurchaseToken] = *purchase
	return nil
}

func (f *fakePurchaseStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byToken)
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

func (f *fakeProfileStore) GetProfile(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profile, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userID)
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeProfileStore) ApplyEntitlement(_ context.Context, userID, newRole string, creditsDelta int64) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profile, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrProfileNotFound, userID)
	}
	if newRole != "" {
		profile.Role = newRole
	}
	profile.Credits += creditsDelta
	copied := *profile
	return &copied, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.PurchaseVerifiedEvent
}

func (f *fakePublisher) PublishPurchaseVerified(_ context.Context, event *models.PurchaseVerifiedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	svc       *VerificationService
	purchases *fakePurchaseStore
	profiles  *fakeProfileStore
	publisher *fakePublisher
}

func newFixture(profile *models.Profile) *fixture {
	catalog := &fakeCatalog{products: map[string]*models.Product{
		models.ProductProUser:           {ID: models.ProductProUser},
		models.ProductUnlimitedTier:     {ID: models.ProductUnlimitedTier},
		models.ProductSingleEventCredit: {ID: models.ProductSingleEventCredit, Credits: int64Ptr(2)},
		"LEGACY_BUNDLE":                 {ID: "LEGACY_BUNDLE"},
	}}
	purchases := &fakePurchaseStore{byToken: map[string]models.Purchase{}}
	profiles := &fakeProfileStore{profiles: map[string]*models.Profile{}}
	if profile != nil {
		profiles.profiles[profile.ID] = profile
	}
	publisher := &fakePublisher{}

	return &fixture{
		svc:       NewVerificationService(catalog, purchases, profiles, publisher),
		purchases: purchases,
		profiles:  profiles,
		publisher: publisher,
	}
}

func TestVerifyPurchaseRoleUpgrade(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree, Credits: 3})

	resp, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     models.ProductProUser,
		PurchaseToken: "tok-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RolePaid, resp.Role)
	assert.Equal(t, int64(3), resp.Credits)
	assert.False(t, resp.AlreadyRecorded)
	assert.Equal(t, 1, f.purchases.count())
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.EventTypePurchaseVerified, f.publisher.events[0].EventType)
}

func TestVerifyPurchaseRoleUpgradeHasNoDowngradeGuard(t *testing.T) {
	// Pro_User overwrites the role even for an unlimited profile.
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleUnlimited})

	resp, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     models.ProductProUser,
		PurchaseToken: "tok-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RolePaid, resp.Role)
}

func TestVerifyPurchaseCreditAccumulation(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree, Credits: 3})

	resp, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     models.ProductSingleEventCredit,
		PurchaseToken: "tok-1",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.Credits)
	assert.Equal(t, models.RoleFree, resp.Role)
}

func TestVerifyPurchaseDuplicateTokenIsRecovered(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree, Credits: 0})

	req := &VerifyPurchaseRequest{
		ProductID:     models.ProductProUser,
		PurchaseToken: "tok-1",
	}

	first, err := f.svc.VerifyPurchase(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.False(t, first.AlreadyRecorded)

	second, err := f.svc.VerifyPurchase(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.True(t, second.AlreadyRecorded)
	assert.Equal(t, models.RolePaid, second.Role)

	assert.Equal(t, 1, f.purchases.count(), "duplicate token must not create a second record")
}

func TestVerifyPurchaseUnknownProduct(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree, Credits: 3})

	_, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     "NOT_A_REAL_PRODUCT",
		PurchaseToken: "tok-1",
	})

	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, 0, f.purchases.count(), "rejected purchase must not be recorded")

	profile, err := f.profiles.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleFree, profile.Role)
	assert.Equal(t, int64(3), profile.Credits)
}

func TestVerifyPurchaseCataloguedProductWithoutEntitlement(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree, Credits: 3})

	resp, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     "LEGACY_BUNDLE",
		PurchaseToken: "tok-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.RoleFree, resp.Role)
	assert.Equal(t, int64(3), resp.Credits)
	assert.Equal(t, 1, f.purchases.count(), "purchase is still recorded")
}

func TestVerifyPurchaseProfileMissingIsFatal(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.VerifyPurchase(context.Background(), "ghost", &VerifyPurchaseRequest{
		ProductID:     models.ProductProUser,
		PurchaseToken: "tok-1",
	})

	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestVerifyPurchasePersistenceFailureIsFatal(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree})
	f.purchases.failAll = true

	_, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     models.ProductProUser,
		PurchaseToken: "tok-1",
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestVerifyPurchaseStatusDefaultsToVerified(t *testing.T) {
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree})

	_, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
		ProductID:     models.ProductProUser,
		PurchaseToken: "tok-1",
	})
	require.NoError(t, err)

	recorded := f.purchases.byToken["tok-1"]
	assert.Equal(t, models.PurchaseStatusVerified, recorded.Status)
	assert.NotNil(t, recorded.Payload)
}

func TestVerifyPurchaseConcurrentCreditGrants(t *testing.T) {
	// Distinct tokens racing on the same profile: the atomic increment in
	// ApplyEntitlement must not lose a single grant.
	f := newFixture(&models.Profile{ID: "user-1", Role: models.RoleFree, Credits: 0})

	const grants = 20
	var wg sync.WaitGroup
	for i := 0; i < grants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.VerifyPurchase(context.Background(), "user-1", &VerifyPurchaseRequest{
				ProductID:     models.ProductSingleEventCredit,
				PurchaseToken: fmt.Sprintf("tok-%d", i),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	profile, err := f.profiles.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(grants*2), profile.Credits)
	assert.Equal(t, grants, f.purchases.count())
}
