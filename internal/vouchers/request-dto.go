package vouchers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TargetRequest struct {
	TargetType TargetType `json:"target_type" binding:"required,oneof=GLOBAL PARTNER PROPERTY ROOM_TYPE"`
	PartnerID  *uuid.UUID `json:"partner_id,omitempty"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	RoomTypeID *uuid.UUID `json:"room_type_id,omitempty"`
}

type CreateVoucherRequest struct {
	Code                  string           `json:"code" binding:"required,vouchercode"`
	Description           string           `json:"description" binding:"max=500"`
	DiscountType          DiscountType     `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue         decimal.Decimal  `json:"discount_value"`
	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int             `json:"usage_limit,omitempty" binding:"omitempty,gt=0"`
	UsageLimitPerUser     *int             `json:"usage_limit_per_user,omitempty" binding:"omitempty,gt=0"`
	StartDate             time.Time        `json:"start_date" binding:"required"`
	EndDate               time.Time        `json:"end_date" binding:"required,gtfield=StartDate"`
	Targets               []TargetRequest  `json:"targets" binding:"omitempty,dive"`
}

// UpdateVoucherRequest carries the fields to change plus the version the
// caller read. Omitted fields keep their value; the Clear flags set an
// optional term back to null.
type UpdateVoucherRequest struct {
	Version               int              `json:"version" binding:"required,gt=0"`
	Description           *string          `json:"description,omitempty" binding:"omitempty,max=500"`
	DiscountType          *DiscountType    `json:"discount_type,omitempty" binding:"omitempty,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue         *decimal.Decimal `json:"discount_value,omitempty"`
	MinimumOrderAmount    *decimal.Decimal `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximum_discount_amount,omitempty"`
	UsageLimit            *int             `json:"usage_limit,omitempty" binding:"omitempty,gt=0"`
	UsageLimitPerUser     *int             `json:"usage_limit_per_user,omitempty" binding:"omitempty,gt=0"`
	StartDate             *time.Time       `json:"start_date,omitempty"`
	EndDate               *time.Time       `json:"end_date,omitempty"`
	Targets               *[]TargetRequest `json:"targets,omitempty" binding:"omitempty,dive"`

	ClearMinimumOrderAmount    bool `json:"clear_minimum_order_amount,omitempty" binding:"excluded_with=MinimumOrderAmount"`
	ClearMaximumDiscountAmount bool `json:"clear_maximum_discount_amount,omitempty" binding:"excluded_with=MaximumDiscountAmount"`
	ClearUsageLimit            bool `json:"clear_usage_limit,omitempty" binding:"excluded_with=UsageLimit"`
	ClearUsageLimitPerUser     bool `json:"clear_usage_limit_per_user,omitempty" binding:"excluded_with=UsageLimitPerUser"`
}

type PreviewItem struct {
	RoomTypeID uuid.UUID `json:"room_type_id" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required,gt=0"`
	Nights     int       `json:"nights" binding:"required,gt=0"`
}

type PreviewRequest struct {
	Code       string        `json:"code" binding:"required,vouchercode"`
	PropertyID uuid.UUID     `json:"property_id" binding:"required"`
	Items      []PreviewItem `json:"items" binding:"required,min=1,dive"`
}

func (r CreateVoucherRequest) toTerms() Terms {
	return Terms{
		Description:           r.Description,
		DiscountType:          r.DiscountType,
		DiscountValue:         r.DiscountValue,
		MinimumOrderAmount:    nullDecimal(r.MinimumOrderAmount),
		MaximumDiscountAmount: nullDecimal(r.MaximumDiscountAmount),
		UsageLimit:            r.UsageLimit,
		UsageLimitPerUser:     r.UsageLimitPerUser,
		StartDate:             r.StartDate.UTC(),
		EndDate:               r.EndDate.UTC(),
	}
}

func (r CreateVoucherRequest) toTargets() []VoucherTarget {
	return targetsFrom(r.Targets)
}

func (r UpdateVoucherRequest) applyTo(t Terms) Terms {
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.DiscountType != nil {
		t.DiscountType = *r.DiscountType
	}
	if r.DiscountValue != nil {
		t.DiscountValue = *r.DiscountValue
	}
	if r.MinimumOrderAmount != nil || r.ClearMinimumOrderAmount {
		t.MinimumOrderAmount = nullDecimal(r.MinimumOrderAmount)
	}
	if r.MaximumDiscountAmount != nil || r.ClearMaximumDiscountAmount {
		t.MaximumDiscountAmount = nullDecimal(r.MaximumDiscountAmount)
	}
	if t.DiscountType == DiscountTypeFixedAmount {
		t.MaximumDiscountAmount = decimal.NullDecimal{}
	}
	if r.UsageLimit != nil || r.ClearUsageLimit {
		t.UsageLimit = r.UsageLimit
	}
	if r.UsageLimitPerUser != nil || r.ClearUsageLimitPerUser {
		t.UsageLimitPerUser = r.UsageLimitPerUser
	}
	if r.StartDate != nil {
		t.StartDate = r.StartDate.UTC()
	}
	if r.EndDate != nil {
		t.EndDate = r.EndDate.UTC()
	}
	return t
}

func targetsFrom(reqs []TargetRequest) []VoucherTarget {
	targets := make([]VoucherTarget, 0, len(reqs))
	for _, t := range reqs {
		targets = append(targets, VoucherTarget{
			TargetType: t.TargetType,
			PartnerID:  t.PartnerID,
			PropertyID: t.PropertyID,
			RoomTypeID: t.RoomTypeID,
		})
	}
	return targets
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
