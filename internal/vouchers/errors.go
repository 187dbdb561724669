package vouchers

import "tripenjoy/internal/shared/apperror"

var (
	ErrVoucherNotFound     = apperror.NotFound("VOUCHER_NOT_FOUND", "voucher not found")
	ErrRedemptionNotFound  = apperror.NotFound("REDEMPTION_NOT_FOUND", "voucher redemption not found")
	ErrInvalidCode         = apperror.Validation("VOUCHER_INVALID_CODE", "voucher code must be 3-50 letters, digits, '-' or '_'")
	ErrInvalidDiscountType = apperror.Validation("VOUCHER_INVALID_DISCOUNT_TYPE", "invalid discount type")
	ErrInvalidDiscount     = apperror.Validation("VOUCHER_INVALID_DISCOUNT", "discount value must be greater than zero")
	ErrPercentageTooLarge  = apperror.Validation("VOUCHER_PERCENTAGE_TOO_LARGE", "percentage discount cannot exceed 100")
	ErrMaxDiscountMisuse   = apperror.Validation("VOUCHER_MAX_DISCOUNT_MISUSE", "maximum discount amount applies only to percentage vouchers and must be positive")
	ErrInvalidMinimumOrder = apperror.Validation("VOUCHER_INVALID_MINIMUM_ORDER", "minimum order amount cannot be negative")
	ErrInvalidDateRange    = apperror.Validation("VOUCHER_INVALID_DATE_RANGE", "start date must be before end date")
	ErrInvalidUsageLimit   = apperror.Validation("VOUCHER_INVALID_USAGE_LIMIT", "usage limits must be greater than zero")
	ErrUsageLimitBelowUsed = apperror.Validation("VOUCHER_USAGE_LIMIT_BELOW_USED", "usage limit cannot be lower than the current used count")
	ErrInvalidTarget       = apperror.Validation("VOUCHER_INVALID_TARGET", "target must populate exactly the id matching its type")
	ErrPartnerNeedsTarget  = apperror.Validation("VOUCHER_PARTNER_TARGET_REQUIRED", "partner vouchers need at least one non-global target")

	ErrVoucherNotActive     = apperror.Validation("VOUCHER_NOT_ACTIVE", "voucher is not active")
	ErrVoucherNotStarted    = apperror.Validation("VOUCHER_NOT_STARTED", "voucher is not valid yet")
	ErrVoucherExpired       = apperror.Validation("VOUCHER_EXPIRED", "voucher has expired")
	ErrVoucherExhausted     = apperror.Validation("VOUCHER_EXHAUSTED", "voucher usage limit has been reached")
	ErrMinimumOrderNotMet   = apperror.Validation("VOUCHER_MINIMUM_ORDER_NOT_MET", "order amount is below the voucher minimum")
	ErrVoucherNotApplicable = apperror.Validation("VOUCHER_NOT_APPLICABLE", "voucher does not apply to this booking")
	ErrPerUserLimitReached  = apperror.Validation("VOUCHER_PER_USER_LIMIT_REACHED", "voucher already used the maximum number of times by this user")
	ErrUsageLimitReached    = apperror.Conflict("VOUCHER_USAGE_LIMIT_REACHED", "voucher usage limit exceeded")
	ErrDuplicateCode        = apperror.Conflict("VOUCHER_DUPLICATE_CODE", "voucher code already exists")
	ErrVersionConflict      = apperror.Conflict("VOUCHER_VERSION_CONFLICT", "voucher was modified by another request, reload and retry")
	ErrAlreadyDisabled      = apperror.Conflict("VOUCHER_ALREADY_DISABLED", "voucher is already disabled")
	ErrCreatorNotAllowed    = apperror.Forbidden("VOUCHER_CREATOR_NOT_ALLOWED", "only admins and partners manage vouchers")
	ErrTargetOutsideCatalog = apperror.Forbidden("VOUCHER_TARGET_FORBIDDEN", "partners may only target their own properties")
	ErrNotVoucherOwner      = apperror.Forbidden("VOUCHER_NOT_OWNER", "voucher belongs to another partner")
)
