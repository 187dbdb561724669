package vouchers

import (
	"context"
	"errors"
	"time"

	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/uow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ListQuery struct {
	Page      int
	Limit     int
	Status    Status
	CreatorID *uuid.UUID
}

type Repository interface {
	Create(ctx context.Context, v *Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*Voucher, error)
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	List(ctx context.Context, query ListQuery) ([]Voucher, int64, error)
	// Update writes v when its stored version equals expectedVersion and bumps it.
	Update(ctx context.Context, v *Voucher, expectedVersion int, replaceTargets bool) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	IncrementUsage(ctx context.Context, id uuid.UUID) error
	DecrementUsage(ctx context.Context, id uuid.UUID) error
	CountActiveRedemptions(ctx context.Context, voucherID, userID uuid.UUID) (int64, error)
	CreateRedemption(ctx context.Context, r *VoucherRedemption) error
	GetActiveRedemptionByBooking(ctx context.Context, bookingID uuid.UUID) (*VoucherRedemption, error)
	ReleaseRedemption(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, v *Voucher) error {
	err := uow.DB(ctx, r.db).Create(v).Error
	if err != nil {
		if uow.IsUniqueViolation(err) {
			return ErrDuplicateCode
		}
		return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to create voucher", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Voucher, error) {
	var v Voucher
	err := uow.DB(ctx, r.db).Preload("Targets").Where("id = ?", id).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, apperror.Failure("VOUCHER_LOAD_FAILED", "failed to load voucher", err)
	}
	return &v, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	var v Voucher
	err := uow.DB(ctx, r.db).Preload("Targets").Where("code = ?", NormalizeCode(code)).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, apperror.Failure("VOUCHER_LOAD_FAILED", "failed to load voucher", err)
	}
	return &v, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]Voucher, int64, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}

	base := uow.DB(ctx, r.db).Model(&Voucher{})
	if query.Status != "" {
		base = base.Where("status = ?", query.Status)
	}
	if query.CreatorID != nil {
		base = base.Where("creator_id = ?", *query.CreatorID)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, apperror.Failure("VOUCHER_LOAD_FAILED", "failed to count vouchers", err)
	}

	var vouchers []Voucher
	err := base.Preload("Targets").
		Order("created_at DESC").
		Offset((query.Page - 1) * query.Limit).
		Limit(query.Limit).
		Find(&vouchers).Error
	if err != nil {
		return nil, 0, apperror.Failure("VOUCHER_LOAD_FAILED", "failed to list vouchers", err)
	}
	return vouchers, total, nil
}

func (r *repository) Update(ctx context.Context, v *Voucher, expectedVersion int, replaceTargets bool) error {
	write := func(tx *gorm.DB) error {
		q := tx.Model(&Voucher{}).Where("id = ? AND version = ?", v.ID, expectedVersion)
		if v.UsageLimit != nil {
			q = q.Where("used_count <= ?", *v.UsageLimit)
		}
		res := q.Updates(map[string]interface{}{
			"description":             v.Description,
			"discount_type":           v.DiscountType,
			"discount_value":          v.DiscountValue,
			"minimum_order_amount":    v.MinimumOrderAmount,
			"maximum_discount_amount": v.MaximumDiscountAmount,
			"usage_limit":             v.UsageLimit,
			"usage_limit_per_user":    v.UsageLimitPerUser,
			"start_date":              v.StartDate,
			"end_date":                v.EndDate,
			"status":                  v.Status,
			"updated_at":              v.UpdatedAt,
			"version":                 expectedVersion + 1,
		})
		if res.Error != nil {
			return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to update voucher", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}

		if replaceTargets {
			if err := tx.Where("voucher_id = ?", v.ID).Delete(&VoucherTarget{}).Error; err != nil {
				return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to replace voucher targets", err)
			}
			for i := range v.Targets {
				v.Targets[i].ID = uuid.Nil
				v.Targets[i].VoucherID = v.ID
			}
			if len(v.Targets) > 0 {
				if err := tx.Create(&v.Targets).Error; err != nil {
					return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to replace voucher targets", err)
				}
			}
		}
		v.Version = expectedVersion + 1
		return nil
	}

	if uow.InTx(ctx) {
		return write(uow.DB(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(write)
}

func (r *repository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := uow.DB(ctx, r.db).Model(&Voucher{}).
		Where("status = ? AND end_date < ?", StatusActive, now).
		Updates(map[string]interface{}{
			"status":     StatusExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, apperror.Failure("VOUCHER_SAVE_FAILED", "failed to expire vouchers", res.Error)
	}
	return res.RowsAffected, nil
}

// IncrementUsage is the single conditional update that guards UsageLimit.
// Zero affected rows means the limit was reached or the voucher left Active.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	res := uow.DB(ctx, r.db).Exec(
		`UPDATE vouchers SET used_count = used_count + 1
		 WHERE id = ? AND status = ? AND (usage_limit IS NULL OR used_count < usage_limit)`,
		id, StatusActive,
	)
	if res.Error != nil {
		return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to record voucher usage", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUsageLimitReached
	}
	return nil
}

func (r *repository) DecrementUsage(ctx context.Context, id uuid.UUID) error {
	res := uow.DB(ctx, r.db).Exec(
		`UPDATE vouchers SET used_count = used_count - 1 WHERE id = ? AND used_count > 0`,
		id,
	)
	if res.Error != nil {
		return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to release voucher usage", res.Error)
	}
	return nil
}

func (r *repository) CountActiveRedemptions(ctx context.Context, voucherID, userID uuid.UUID) (int64, error) {
	var count int64
	err := uow.DB(ctx, r.db).Model(&VoucherRedemption{}).
		Where("voucher_id = ? AND user_id = ? AND status = ?", voucherID, userID, RedemptionActive).
		Count(&count).Error
	if err != nil {
		return 0, apperror.Failure("VOUCHER_LOAD_FAILED", "failed to count redemptions", err)
	}
	return count, nil
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *VoucherRedemption) error {
	if err := uow.DB(ctx, r.db).Create(redemption).Error; err != nil {
		if uow.IsUniqueViolation(err) {
			return apperror.Conflict("VOUCHER_ALREADY_REDEEMED", "booking already redeemed a voucher")
		}
		return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to record redemption", err)
	}
	return nil
}

func (r *repository) GetActiveRedemptionByBooking(ctx context.Context, bookingID uuid.UUID) (*VoucherRedemption, error) {
	var redemption VoucherRedemption
	err := uow.DB(ctx, r.db).
		Where("booking_id = ? AND status = ?", bookingID, RedemptionActive).
		First(&redemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, apperror.Failure("VOUCHER_LOAD_FAILED", "failed to load redemption", err)
	}
	return &redemption, nil
}

func (r *repository) ReleaseRedemption(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := uow.DB(ctx, r.db).Model(&VoucherRedemption{}).
		Where("id = ? AND status = ?", id, RedemptionActive).
		Updates(map[string]interface{}{
			"status":      RedemptionReleased,
			"released_at": at,
		})
	if res.Error != nil {
		return apperror.Failure("VOUCHER_SAVE_FAILED", "failed to release redemption", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRedemptionNotFound
	}
	return nil
}
