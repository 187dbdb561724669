package vouchers

type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "PERCENTAGE"
	DiscountTypeFixedAmount DiscountType = "FIXED_AMOUNT"
)

func (d DiscountType) IsValid() bool {
	return d == DiscountTypePercentage || d == DiscountTypeFixedAmount
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusDisabled Status = "DISABLED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) String() string {
	return string(s)
}

type CreatorType string

const (
	CreatorAdmin   CreatorType = "ADMIN"
	CreatorPartner CreatorType = "PARTNER"
)

type TargetType string

const (
	TargetGlobal   TargetType = "GLOBAL"
	TargetPartner  TargetType = "PARTNER"
	TargetProperty TargetType = "PROPERTY"
	TargetRoomType TargetType = "ROOM_TYPE"
)

func (t TargetType) IsValid() bool {
	switch t {
	case TargetGlobal, TargetPartner, TargetProperty, TargetRoomType:
		return true
	}
	return false
}

type RedemptionStatus string

const (
	RedemptionActive   RedemptionStatus = "ACTIVE"
	RedemptionReleased RedemptionStatus = "RELEASED"
)

// UsagePolicy decides what a cancelled booking does to its voucher usage.
type UsagePolicy string

const (
	RetainOnCancel  UsagePolicy = "RETAIN"
	ReleaseOnCancel UsagePolicy = "RELEASE"
)
