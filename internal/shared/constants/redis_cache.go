package constants

import (
	"time"
)

// Redis keys and TTLs used across the application.
// Pattern: tripenjoy:{module}:{entity}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_STATIC_LONG       = 24 * time.Hour // partner ownership, rarely changes
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour  // room type prices
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "tripenjoy"
)

// ================== CATALOG MODULE ==================

const (
	CACHE_KEY_PROPERTY_DETAIL  = CACHE_PREFIX + ":catalog:property:uuid:"  // + property-id
	CACHE_KEY_ROOM_TYPE_DETAIL = CACHE_PREFIX + ":catalog:room_type:uuid:" // + room-type-id

	PATTERN_INVALIDATE_CATALOG_ALL = CACHE_PREFIX + ":catalog:*"
)

const (
	TTL_PROPERTY_DETAIL  = TTL_STATIC_LONG
	TTL_ROOM_TYPE_DETAIL = TTL_SEMI_STATIC_SHORT
)

// ================== RATE LIMIT ==================

const (
	RATE_LIMIT_KEY_PREFIX = CACHE_PREFIX + ":ratelimit:"
)

// ================== HELPER FUNCTIONS ==================

func BuildPropertyDetailKey(propertyID string) string {
	return CACHE_KEY_PROPERTY_DETAIL + propertyID
}

func BuildRoomTypeDetailKey(roomTypeID string) string {
	return CACHE_KEY_ROOM_TYPE_DETAIL + roomTypeID
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return RATE_LIMIT_KEY_PREFIX + clientIP + ":" + limitType
}
