package vouchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripenjoy/internal/catalog"
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/apperror"
	"tripenjoy/internal/shared/uow"
	"tripenjoy/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogReader is the slice of the catalog the voucher service needs.
type CatalogReader interface {
	PartnerIDOf(ctx context.Context, propertyID uuid.UUID) (uuid.UUID, error)
	GetRoomType(ctx context.Context, id uuid.UUID) (*catalog.RoomType, error)
}

type Service interface {
	CreateVoucher(ctx context.Context, by actor.Actor, req CreateVoucherRequest) (*Voucher, error)
	UpdateVoucher(ctx context.Context, by actor.Actor, id uuid.UUID, req UpdateVoucherRequest) (*Voucher, error)
	DisableVoucher(ctx context.Context, by actor.Actor, id uuid.UUID) (*Voucher, error)
	GetVoucherByCode(ctx context.Context, code string) (*Voucher, error)
	ListVouchers(ctx context.Context, by actor.Actor, query ListQuery) ([]Voucher, int64, error)
	PreviewDiscount(ctx context.Context, userID uuid.UUID, req PreviewRequest) (*Evaluation, error)

	// Evaluate loads the voucher by code and prices it against order.
	Evaluate(ctx context.Context, code string, order Order) (*Evaluation, error)
	// Redeem records usage of an evaluated voucher for a booking. It must run
	// inside the unit of work that persists the booking.
	Redeem(ctx context.Context, eval *Evaluation, userID, bookingID uuid.UUID) (*VoucherRedemption, error)
	// ReleaseForBooking applies the usage policy to a cancelled booking.
	ReleaseForBooking(ctx context.Context, bookingID uuid.UUID) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

type service struct {
	repo    Repository
	catalog CatalogReader
	engine  *Engine
	tx      uow.Manager
	policy  UsagePolicy
	log     *logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, catalogReader CatalogReader, tx uow.Manager, policy UsagePolicy) Service {
	if policy == "" {
		policy = RetainOnCancel
	}
	return &service{
		repo:    repo,
		catalog: catalogReader,
		engine:  NewEngine(catalogReader, repo),
		tx:      tx,
		policy:  policy,
		log:     logger.GetDefault(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateVoucher(ctx context.Context, by actor.Actor, req CreateVoucherRequest) (*Voucher, error) {
	creatorType, err := creatorTypeOf(by)
	if err != nil {
		return nil, err
	}

	targets := req.toTargets()
	v, err := NewVoucher(req.Code, req.toTerms(), creatorType, by.ID, targets)
	if err != nil {
		return nil, err
	}
	if creatorType == CreatorPartner {
		if err := s.checkPartnerTargets(ctx, by.ID, v.Targets); err != nil {
			return nil, err
		}
	}

	if _, err := s.repo.GetByCode(ctx, v.Code); err == nil {
		return nil, ErrDuplicateCode
	} else if !errors.Is(err, ErrVoucherNotFound) {
		return nil, err
	}

	v.CreatedAt = s.now()
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, fmt.Errorf("create voucher %s: %w", v.Code, err)
	}
	s.log.InfoWithContext(ctx, "Voucher Created", map[string]interface{}{
		"voucher_id": v.ID.String(),
		"code":       v.Code,
		"creator":    by.String(),
	})
	return v, nil
}

func (s *service) UpdateVoucher(ctx context.Context, by actor.Actor, id uuid.UUID, req UpdateVoucherRequest) (*Voucher, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(by, v); err != nil {
		return nil, err
	}
	if req.Version != v.Version {
		return nil, ErrVersionConflict
	}

	terms := req.applyTo(v.Terms())
	if err := v.Revise(terms, s.now()); err != nil {
		return nil, err
	}

	replaceTargets := req.Targets != nil
	if replaceTargets {
		v.Targets = targetsFrom(*req.Targets)
		if err := validateTargets(v.CreatorType, v.Targets); err != nil {
			return nil, err
		}
		if v.CreatorType == CreatorPartner {
			if err := s.checkPartnerTargets(ctx, v.CreatorID, v.Targets); err != nil {
				return nil, err
			}
		}
	}

	if err := s.repo.Update(ctx, v, req.Version, replaceTargets); err != nil {
		return nil, fmt.Errorf("update voucher %s: %w", v.Code, err)
	}
	return v, nil
}

func (s *service) DisableVoucher(ctx context.Context, by actor.Actor, id uuid.UUID) (*Voucher, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(by, v); err != nil {
		return nil, err
	}
	expected := v.Version
	if err := v.Disable(s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, v, expected, false); err != nil {
		return nil, fmt.Errorf("disable voucher %s: %w", v.Code, err)
	}
	return v, nil
}

func (s *service) GetVoucherByCode(ctx context.Context, code string) (*Voucher, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *service) ListVouchers(ctx context.Context, by actor.Actor, query ListQuery) ([]Voucher, int64, error) {
	switch {
	case by.IsAdmin():
	case by.IsPartner():
		id := by.ID
		query.CreatorID = &id
	default:
		return nil, 0, ErrCreatorNotAllowed
	}
	return s.repo.List(ctx, query)
}

func (s *service) PreviewDiscount(ctx context.Context, userID uuid.UUID, req PreviewRequest) (*Evaluation, error) {
	order := Order{UserID: userID, PropertyID: req.PropertyID}
	for _, item := range req.Items {
		roomType, err := s.catalog.GetRoomType(ctx, item.RoomTypeID)
		if err != nil {
			return nil, err
		}
		if roomType.PropertyID != req.PropertyID {
			return nil, catalog.ErrRoomTypeNotFound.Withf("room type %s is not offered by property %s", item.RoomTypeID, req.PropertyID)
		}
		amount := roomType.BasePrice.Mul(decimal.NewFromInt(int64(item.Quantity * item.Nights)))
		order.Lines = append(order.Lines, OrderLine{RoomTypeID: item.RoomTypeID, Amount: amount})
	}
	return s.Evaluate(ctx, req.Code, order)
}

func (s *service) Evaluate(ctx context.Context, code string, order Order) (*Evaluation, error) {
	v, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.engine.Evaluate(ctx, v, order, s.now())
}

func (s *service) Redeem(ctx context.Context, eval *Evaluation, userID, bookingID uuid.UUID) (*VoucherRedemption, error) {
	if eval == nil || eval.Voucher == nil {
		return nil, apperror.Validation("VOUCHER_NOT_EVALUATED", "voucher must be evaluated before redemption")
	}
	v := eval.Voucher

	var redemption *VoucherRedemption
	err := s.tx.Do(ctx, func(ctx context.Context) error {
		// the conditional update also takes the voucher row lock, which
		// serializes the per-user count below across concurrent bookings
		if err := s.repo.IncrementUsage(ctx, v.ID); err != nil {
			return err
		}
		if v.UsageLimitPerUser != nil {
			used, err := s.repo.CountActiveRedemptions(ctx, v.ID, userID)
			if err != nil {
				return err
			}
			if err := CheckPerUserLimit(v, used); err != nil {
				return err
			}
		}
		redemption = &VoucherRedemption{
			VoucherID:      v.ID,
			UserID:         userID,
			BookingID:      bookingID,
			DiscountAmount: eval.Discount,
			Status:         RedemptionActive,
			RedeemedAt:     s.now(),
		}
		return s.repo.CreateRedemption(ctx, redemption)
	})
	if err != nil {
		return nil, fmt.Errorf("redeem voucher %s: %w", v.Code, err)
	}

	s.log.LogVoucherRedeemed(ctx, v.Code, bookingID.String(), userID.String(), eval.Discount.StringFixed(2))
	return redemption, nil
}

func (s *service) ReleaseForBooking(ctx context.Context, bookingID uuid.UUID) error {
	if s.policy != ReleaseOnCancel {
		return nil
	}
	return s.tx.Do(ctx, func(ctx context.Context) error {
		redemption, err := s.repo.GetActiveRedemptionByBooking(ctx, bookingID)
		if err != nil {
			if errors.Is(err, ErrRedemptionNotFound) {
				return nil
			}
			return err
		}
		if err := s.repo.ReleaseRedemption(ctx, redemption.ID, s.now()); err != nil {
			return err
		}
		return s.repo.DecrementUsage(ctx, redemption.VoucherID)
	})
}

func (s *service) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.repo.ExpireOverdue(ctx, s.now())
}

func (s *service) authorize(by actor.Actor, v *Voucher) error {
	switch {
	case by.IsAdmin():
		return nil
	case by.IsPartner():
		if !v.OwnedBy(by.ID) {
			return ErrNotVoucherOwner
		}
		return nil
	default:
		return ErrCreatorNotAllowed
	}
}

// checkPartnerTargets makes sure every target lies inside the partner's own
// catalog.
func (s *service) checkPartnerTargets(ctx context.Context, partnerID uuid.UUID, targets []VoucherTarget) error {
	for _, t := range targets {
		var owner uuid.UUID
		switch t.TargetType {
		case TargetPartner:
			owner = *t.PartnerID
		case TargetProperty:
			id, err := s.catalog.PartnerIDOf(ctx, *t.PropertyID)
			if err != nil {
				return err
			}
			owner = id
		case TargetRoomType:
			roomType, err := s.catalog.GetRoomType(ctx, *t.RoomTypeID)
			if err != nil {
				return err
			}
			id, err := s.catalog.PartnerIDOf(ctx, roomType.PropertyID)
			if err != nil {
				return err
			}
			owner = id
		default:
			return ErrTargetOutsideCatalog
		}
		if owner != partnerID {
			return ErrTargetOutsideCatalog
		}
	}
	return nil
}

func creatorTypeOf(by actor.Actor) (CreatorType, error) {
	switch {
	case by.IsAdmin():
		return CreatorAdmin, nil
	case by.IsPartner():
		return CreatorPartner, nil
	default:
		return "", ErrCreatorNotAllowed
	}
}
