package vouchers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VoucherResponse struct {
	ID                    uuid.UUID           `json:"id"`
	Code                  string              `json:"code"`
	Description           string              `json:"description,omitempty"`
	DiscountType          DiscountType        `json:"discount_type"`
	DiscountValue         decimal.Decimal     `json:"discount_value"`
	MinimumOrderAmount    decimal.NullDecimal `json:"minimum_order_amount"`
	MaximumDiscountAmount decimal.NullDecimal `json:"maximum_discount_amount"`
	UsageLimit            *int                `json:"usage_limit,omitempty"`
	UsageLimitPerUser     *int                `json:"usage_limit_per_user,omitempty"`
	UsedCount             int                 `json:"used_count"`
	RemainingUses         *int                `json:"remaining_uses,omitempty"`
	StartDate             time.Time           `json:"start_date"`
	EndDate               time.Time           `json:"end_date"`
	Status                Status              `json:"status"`
	CreatorType           CreatorType         `json:"creator_type"`
	Version               int                 `json:"version"`
	Targets               []VoucherTarget     `json:"targets"`
}

type VoucherListResponse struct {
	Vouchers []VoucherResponse `json:"vouchers"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

func ToVoucherResponse(v *Voucher) VoucherResponse {
	resp := VoucherResponse{
		ID:                    v.ID,
		Code:                  v.Code,
		Description:           v.Description,
		DiscountType:          v.DiscountType,
		DiscountValue:         v.DiscountValue,
		MinimumOrderAmount:    v.MinimumOrderAmount,
		MaximumDiscountAmount: v.MaximumDiscountAmount,
		UsageLimit:            v.UsageLimit,
		UsageLimitPerUser:     v.UsageLimitPerUser,
		UsedCount:             v.UsedCount,
		StartDate:             v.StartDate,
		EndDate:               v.EndDate,
		Status:                v.Status,
		CreatorType:           v.CreatorType,
		Version:               v.Version,
		Targets:               v.Targets,
	}
	if v.UsageLimit != nil {
		remaining := *v.UsageLimit - v.UsedCount
		resp.RemainingUses = &remaining
	}
	if resp.Targets == nil {
		resp.Targets = []VoucherTarget{}
	}
	return resp
}
