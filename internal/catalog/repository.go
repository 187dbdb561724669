package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/constants"
	"tripenjoy/internal/shared/uow"
	"tripenjoy/pkg/cache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrPropertyNotFound = apperror.NotFound("PROPERTY_NOT_FOUND", "property not found")
	ErrRoomTypeNotFound = apperror.NotFound("ROOM_TYPE_NOT_FOUND", "room type not found")
)

// Repository is the read side of the property catalog. Listing management
// lives in another service; this package only answers lookups.
type Repository interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*Property, error)
	GetRoomType(ctx context.Context, id uuid.UUID) (*RoomType, error)
	PartnerIDOf(ctx context.Context, propertyID uuid.UUID) (uuid.UUID, error)
	Invalidate(ctx context.Context) error
}

type repository struct {
	db    *gorm.DB
	cache cache.Service
	ttl   time.Duration
}

// NewRepository builds the catalog reader. cache may be nil, in which case
// every lookup goes to the database.
func NewRepository(db *gorm.DB, cacheService cache.Service, roomTypeTTL time.Duration) Repository {
	if roomTypeTTL <= 0 {
		roomTypeTTL = constants.TTL_ROOM_TYPE_DETAIL
	}
	return &repository{db: db, cache: cacheService, ttl: roomTypeTTL}
}

func (r *repository) GetProperty(ctx context.Context, id uuid.UUID) (*Property, error) {
	fetch := func() (interface{}, error) {
		var property Property
		err := uow.DB(ctx, r.db).Where("id = ?", id).First(&property).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPropertyNotFound
			}
			return nil, apperror.Failure("CATALOG_LOOKUP_FAILED", "failed to load property", err)
		}
		return &property, nil
	}

	if r.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*Property), nil
	}

	var property Property
	if err := r.cache.GetOrSet(ctx, constants.BuildPropertyDetailKey(id.String()), constants.TTL_PROPERTY_DETAIL, &property, fetch); err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *repository) GetRoomType(ctx context.Context, id uuid.UUID) (*RoomType, error) {
	fetch := func() (interface{}, error) {
		var roomType RoomType
		err := uow.DB(ctx, r.db).Where("id = ?", id).First(&roomType).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRoomTypeNotFound
			}
			return nil, apperror.Failure("CATALOG_LOOKUP_FAILED", "failed to load room type", err)
		}
		return &roomType, nil
	}

	if r.cache == nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*RoomType), nil
	}

	var roomType RoomType
	if err := r.cache.GetOrSet(ctx, constants.BuildRoomTypeDetailKey(id.String()), r.ttl, &roomType, fetch); err != nil {
		return nil, err
	}
	return &roomType, nil
}

func (r *repository) PartnerIDOf(ctx context.Context, propertyID uuid.UUID) (uuid.UUID, error) {
	property, err := r.GetProperty(ctx, propertyID)
	if err != nil {
		return uuid.Nil, err
	}
	return property.PartnerID, nil
}

// Invalidate drops every cached catalog entry.
func (r *repository) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_CATALOG_ALL); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}
