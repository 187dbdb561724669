package database

import (
	"tripenjoy/internal/bookings"
	"tripenjoy/internal/catalog"
	"tripenjoy/internal/payments"
	"tripenjoy/internal/vouchers"

	"gorm.io/gorm"
)

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&catalog.Property{},
		&catalog.RoomType{},
		&vouchers.Voucher{},
		&vouchers.VoucherTarget{},
		&vouchers.VoucherRedemption{},
		&bookings.Booking{},
		&bookings.BookingDetail{},
		&bookings.BookingHistory{},
		&payments.Payment{},
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
