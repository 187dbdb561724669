package vouchers

import (
	"context"
	"sync"
	"testing"
	"time"

	"tripenjoy/internal/shared/testdb"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (Repository, *gorm.DB) {
	db := testdb.Open(t, &Voucher{}, &VoucherTarget{}, &VoucherRedemption{})
	return NewRepository(db), db
}

func createVoucher(t *testing.T, repo Repository, code string, mutate func(*Terms)) *Voucher {
	t.Helper()
	terms := validTerms()
	if mutate != nil {
		mutate(&terms)
	}
	v, err := NewVoucher(code, terms, CreatorAdmin, uuid.New(), nil)
	require.NoError(t, err)
	v.CreatedAt = time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), v))
	return v
}

func TestRepository_CreateAndGetByCode(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	propertyID := uuid.New()
	terms := validTerms()
	terms.MaximumDiscountAmount = decimalNull("50")
	v, err := NewVoucher("SUMMER", terms, CreatorAdmin, uuid.New(), []VoucherTarget{
		{TargetType: TargetProperty, PropertyID: &propertyID},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, v))

	got, err := repo.GetByCode(ctx, "summer")
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
	require.Len(t, got.Targets, 1)
	assert.Equal(t, propertyID, *got.Targets[0].PropertyID)
	assert.True(t, got.MaximumDiscountAmount.Valid)
	assert.True(t, got.MaximumDiscountAmount.Decimal.Equal(dec("50")))

	dup, err := NewVoucher("SUMMER", validTerms(), CreatorAdmin, uuid.New(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateCode)

	_, err = repo.GetByCode(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestRepository_IncrementUsage_RespectsLimitUnderConcurrency(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	v := createVoucher(t, repo, "SAVE10", func(terms *Terms) { terms.UsageLimit = intPtr(1) })

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.IncrementUsage(ctx, v.ID)
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrUsageLimitReached)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsedCount)
}

func TestRepository_DecrementUsageNeverGoesNegative(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	v := createVoucher(t, repo, "FLOOR", nil)

	require.NoError(t, repo.DecrementUsage(ctx, v.ID))
	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsedCount)
}

func TestRepository_UpdateChecksVersion(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	v := createVoucher(t, repo, "VERSIONED", nil)

	v.Description = "first edit"
	require.NoError(t, repo.Update(ctx, v, 1, false))
	assert.Equal(t, 2, v.Version)

	stale := *v
	stale.Description = "stale edit"
	assert.ErrorIs(t, repo.Update(ctx, &stale, 1, false), ErrVersionConflict)

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "first edit", got.Description)
	assert.Equal(t, 2, got.Version)
}

func TestRepository_UpdateReplacesTargets(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	v := createVoucher(t, repo, "RETARGET", nil)

	roomTypeID := uuid.New()
	v.Targets = []VoucherTarget{{TargetType: TargetRoomType, RoomTypeID: &roomTypeID}}
	require.NoError(t, repo.Update(ctx, v, v.Version, true))

	got, err := repo.GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got.Targets, 1)
	assert.Equal(t, TargetRoomType, got.Targets[0].TargetType)
}

func TestRepository_RedemptionLedger(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	v := createVoucher(t, repo, "LEDGER", nil)
	userID := uuid.New()
	bookingID := uuid.New()

	redemption := &VoucherRedemption{
		VoucherID:      v.ID,
		UserID:         userID,
		BookingID:      bookingID,
		DiscountAmount: dec("25"),
		Status:         RedemptionActive,
		RedeemedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.CreateRedemption(ctx, redemption))

	count, err := repo.CountActiveRedemptions(ctx, v.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	again := *redemption
	again.ID = uuid.Nil
	assert.Error(t, repo.CreateRedemption(ctx, &again), "one redemption per booking")

	found, err := repo.GetActiveRedemptionByBooking(ctx, bookingID)
	require.NoError(t, err)
	require.NoError(t, repo.ReleaseRedemption(ctx, found.ID, time.Now().UTC()))
	assert.ErrorIs(t, repo.ReleaseRedemption(ctx, found.ID, time.Now().UTC()), ErrRedemptionNotFound)

	count, err = repo.CountActiveRedemptions(ctx, v.ID, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_ExpireOverdue(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := createVoucher(t, repo, "OLD", func(terms *Terms) {
		terms.StartDate = now.Add(-72 * time.Hour)
		terms.EndDate = now.Add(-24 * time.Hour)
	})
	current := createVoucher(t, repo, "CURRENT", nil)

	affected, err := repo.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	got, err := repo.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	got, err = repo.GetByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}
