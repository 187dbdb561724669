package vouchers

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,50}$`)

// Voucher is a discount code with eligibility rules and usage limits.
type Voucher struct {
	ID                    uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Code                  string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Description           string              `gorm:"type:text" json:"description,omitempty"`
	DiscountType          DiscountType        `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue         decimal.Decimal     `gorm:"type:numeric(18,2);not null" json:"discount_value"`
	MinimumOrderAmount    decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"minimum_order_amount"`
	MaximumDiscountAmount decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"maximum_discount_amount"`
	UsageLimit            *int                `json:"usage_limit,omitempty"`
	UsageLimitPerUser     *int                `json:"usage_limit_per_user,omitempty"`
	UsedCount             int                 `gorm:"not null" json:"used_count"`
	StartDate             time.Time           `gorm:"not null" json:"start_date"`
	EndDate               time.Time           `gorm:"not null;index" json:"end_date"`
	Status                Status              `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatorType           CreatorType         `gorm:"type:varchar(20);not null" json:"creator_type"`
	CreatorID             uuid.UUID           `gorm:"type:uuid;index;not null" json:"creator_id"`
	Version               int                 `gorm:"not null" json:"version"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             *time.Time          `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`

	Targets []VoucherTarget `gorm:"foreignKey:VoucherID" json:"targets,omitempty"`
}

// VoucherTarget scopes a voucher to a partner, property or room type.
type VoucherTarget struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	VoucherID  uuid.UUID  `gorm:"type:uuid;index;not null" json:"voucher_id"`
	TargetType TargetType `gorm:"type:varchar(20);not null" json:"target_type"`
	PartnerID  *uuid.UUID `gorm:"type:uuid" json:"partner_id,omitempty"`
	PropertyID *uuid.UUID `gorm:"type:uuid" json:"property_id,omitempty"`
	RoomTypeID *uuid.UUID `gorm:"type:uuid" json:"room_type_id,omitempty"`
}

// VoucherRedemption is the usage ledger. One ACTIVE row exists per booking
// that used a voucher.
type VoucherRedemption struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	VoucherID      uuid.UUID        `gorm:"type:uuid;index:idx_redemption_voucher_user;not null" json:"voucher_id"`
	UserID         uuid.UUID        `gorm:"type:uuid;index:idx_redemption_voucher_user;not null" json:"user_id"`
	BookingID      uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	DiscountAmount decimal.Decimal  `gorm:"type:numeric(18,2);not null" json:"discount_amount"`
	Status         RedemptionStatus `gorm:"type:varchar(20);not null" json:"status"`
	RedeemedAt     time.Time        `gorm:"not null" json:"redeemed_at"`
	ReleasedAt     *time.Time       `json:"released_at,omitempty"`
}

func (Voucher) TableName() string           { return "vouchers" }
func (VoucherTarget) TableName() string     { return "voucher_targets" }
func (VoucherRedemption) TableName() string { return "voucher_redemptions" }

func (v *Voucher) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (t *VoucherTarget) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (r *VoucherRedemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NormalizeCode trims and upper-cases a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Terms are the editable rules of a voucher.
type Terms struct {
	Description           string
	DiscountType          DiscountType
	DiscountValue         decimal.Decimal
	MinimumOrderAmount    decimal.NullDecimal
	MaximumDiscountAmount decimal.NullDecimal
	UsageLimit            *int
	UsageLimitPerUser     *int
	StartDate             time.Time
	EndDate               time.Time
}

// Validate reports every broken rule at once.
func (t Terms) Validate() error {
	var errs []error
	if !t.DiscountType.IsValid() {
		errs = append(errs, ErrInvalidDiscountType)
	}
	if !t.DiscountValue.IsPositive() {
		errs = append(errs, ErrInvalidDiscount)
	}
	if t.DiscountType == DiscountTypePercentage && t.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		errs = append(errs, ErrPercentageTooLarge)
	}
	if t.MaximumDiscountAmount.Valid {
		if t.DiscountType != DiscountTypePercentage || !t.MaximumDiscountAmount.Decimal.IsPositive() {
			errs = append(errs, ErrMaxDiscountMisuse)
		}
	}
	if t.MinimumOrderAmount.Valid && t.MinimumOrderAmount.Decimal.IsNegative() {
		errs = append(errs, ErrInvalidMinimumOrder)
	}
	if !t.StartDate.Before(t.EndDate) {
		errs = append(errs, ErrInvalidDateRange)
	}
	if (t.UsageLimit != nil && *t.UsageLimit <= 0) || (t.UsageLimitPerUser != nil && *t.UsageLimitPerUser <= 0) {
		errs = append(errs, ErrInvalidUsageLimit)
	}
	return errors.Join(errs...)
}

// NewVoucher builds an Active voucher after checking its terms, targets and
// creator rules. Catalog ownership of partner targets is checked by the
// service, which has the catalog at hand.
func NewVoucher(code string, terms Terms, creatorType CreatorType, creatorID uuid.UUID, targets []VoucherTarget) (*Voucher, error) {
	code = NormalizeCode(code)
	if !codePattern.MatchString(code) {
		return nil, ErrInvalidCode
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if err := validateTargets(creatorType, targets); err != nil {
		return nil, err
	}

	v := &Voucher{
		ID:          uuid.New(),
		Code:        code,
		Status:      StatusActive,
		CreatorType: creatorType,
		CreatorID:   creatorID,
		Version:     1,
		Targets:     targets,
	}
	v.applyTerms(terms)
	for i := range v.Targets {
		v.Targets[i].VoucherID = v.ID
	}
	return v, nil
}

func validateTargets(creatorType CreatorType, targets []VoucherTarget) error {
	switch creatorType {
	case CreatorAdmin, CreatorPartner:
	default:
		return ErrCreatorNotAllowed
	}

	nonGlobal := 0
	for _, t := range targets {
		if err := t.Validate(); err != nil {
			return err
		}
		if t.TargetType == TargetGlobal {
			if creatorType == CreatorPartner {
				return ErrTargetOutsideCatalog
			}
			continue
		}
		nonGlobal++
	}
	if creatorType == CreatorPartner && nonGlobal == 0 {
		return ErrPartnerNeedsTarget
	}
	return nil
}

// Validate checks that exactly the id matching TargetType is populated.
func (t VoucherTarget) Validate() error {
	set := 0
	for _, id := range []*uuid.UUID{t.PartnerID, t.PropertyID, t.RoomTypeID} {
		if id != nil {
			set++
		}
	}
	switch t.TargetType {
	case TargetGlobal:
		if set != 0 {
			return ErrInvalidTarget
		}
	case TargetPartner:
		if set != 1 || t.PartnerID == nil {
			return ErrInvalidTarget
		}
	case TargetProperty:
		if set != 1 || t.PropertyID == nil {
			return ErrInvalidTarget
		}
	case TargetRoomType:
		if set != 1 || t.RoomTypeID == nil {
			return ErrInvalidTarget
		}
	default:
		return ErrInvalidTarget
	}
	return nil
}

func (v *Voucher) applyTerms(t Terms) {
	v.Description = t.Description
	v.DiscountType = t.DiscountType
	v.DiscountValue = t.DiscountValue
	v.MinimumOrderAmount = t.MinimumOrderAmount
	v.MaximumDiscountAmount = t.MaximumDiscountAmount
	v.UsageLimit = t.UsageLimit
	v.UsageLimitPerUser = t.UsageLimitPerUser
	v.StartDate = t.StartDate
	v.EndDate = t.EndDate
}

// Terms returns the voucher's current editable rules.
func (v *Voucher) Terms() Terms {
	return Terms{
		Description:           v.Description,
		DiscountType:          v.DiscountType,
		DiscountValue:         v.DiscountValue,
		MinimumOrderAmount:    v.MinimumOrderAmount,
		MaximumDiscountAmount: v.MaximumDiscountAmount,
		UsageLimit:            v.UsageLimit,
		UsageLimitPerUser:     v.UsageLimitPerUser,
		StartDate:             v.StartDate,
		EndDate:               v.EndDate,
	}
}

// Revise replaces the voucher's terms. A disabled voucher cannot be revised
// and the usage limit cannot drop below what has already been used.
func (v *Voucher) Revise(t Terms, now time.Time) error {
	if v.Status == StatusDisabled {
		return ErrAlreadyDisabled
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.UsageLimit != nil && *t.UsageLimit < v.UsedCount {
		return ErrUsageLimitBelowUsed
	}
	v.applyTerms(t)
	if v.Status == StatusExpired && now.Before(v.EndDate) {
		v.Status = StatusActive
	}
	v.touch(now)
	return nil
}

// Disable takes the voucher out of circulation. Vouchers are never deleted.
func (v *Voucher) Disable(now time.Time) error {
	if v.Status == StatusDisabled {
		return ErrAlreadyDisabled
	}
	v.Status = StatusDisabled
	v.touch(now)
	return nil
}

func (v *Voucher) touch(now time.Time) {
	v.UpdatedAt = &now
}

// OwnedBy reports whether a partner created this voucher.
func (v *Voucher) OwnedBy(partnerID uuid.UUID) bool {
	return v.CreatorType == CreatorPartner && v.CreatorID == partnerID
}
