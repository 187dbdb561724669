package database

import (
	"fmt"

	"gorm.io/gorm"
)

type checkConstraint struct {
	table string
	name  string
	expr  string
}

// Row-level invariants the domain code also enforces. The database is the
// last line when two writers race past the application checks.
var checkConstraints = []checkConstraint{
	{"room_types", "chk_room_types_capacity", "capacity > 0 AND base_price >= 0"},
	{"vouchers", "chk_vouchers_used_count", "used_count >= 0 AND (usage_limit IS NULL OR used_count <= usage_limit)"},
	{"vouchers", "chk_vouchers_dates", "end_date > start_date"},
	{"vouchers", "chk_vouchers_discount_value", "discount_value > 0"},
	{"bookings", "chk_bookings_dates", "check_out_date > check_in_date"},
	{"bookings", "chk_bookings_total", "total_price >= 0 AND number_of_guests > 0"},
	{"booking_details", "chk_booking_details_amounts", "quantity > 0 AND nights > 0 AND discount_amount >= 0 AND total_price >= 0"},
	{"payments", "chk_payments_amount", "amount > 0"},
	{"payments", "chk_payments_success_tx", "status NOT IN ('SUCCESS', 'REFUNDED') OR transaction_id IS NOT NULL"},
	{"payments", "chk_payments_stray_capture", "captured_amount IS NULL OR (status = 'FAILED' AND transaction_id IS NOT NULL)"},
}

// MigrateConstraints adds CHECK constraints on PostgreSQL. Other dialects
// rely on the application checks.
func MigrateConstraints(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, c := range checkConstraints {
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s`, c.table, c.name)).Error; err != nil {
				return err
			}
			return tx.Exec(fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)`, c.table, c.name, c.expr)).Error
		})
		if err != nil {
			return fmt.Errorf("constraint %s: %w", c.name, err)
		}
	}
	return nil
}
