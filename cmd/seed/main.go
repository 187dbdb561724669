package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tripenjoy/internal/catalog"
	"tripenjoy/internal/shared/actor"
	"tripenjoy/internal/shared/config"
	"tripenjoy/internal/shared/database"
	"tripenjoy/internal/vouchers"
	"tripenjoy/pkg/cache"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Seeder struct {
	db  *database.DB
	cfg *config.Config
}

// demo accounts; identities live in an external service, the seeder only
// needs stable ids to hand out tokens for
var (
	adminID   = uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	partnerID = uuid.MustParse("00000000-0000-0000-0000-00000000b001")
	userID    = uuid.MustParse("00000000-0000-0000-0000-00000000c001")
)

func main() {
	fmt.Println("Starting TripEnjoy database seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db, cfg: cfg}

	fmt.Println("\nCleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\nSeeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\nDevelopment tokens (valid 24h):")
	for _, acc := range []struct {
		id    uuid.UUID
		email string
		role  string
	}{
		{adminID, "admin@tripenjoy.local", actor.RoleAdmin},
		{partnerID, "partner@tripenjoy.local", actor.RolePartner},
		{userID, "guest@tripenjoy.local", actor.RoleUser},
	} {
		token, err := seeder.IssueToken(acc.id, acc.email, acc.role)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Printf("  %-8s %s\n", acc.role, token)
	}

	fmt.Println("\nSeeding completed.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"payments",
		"booking_histories",
		"booking_details",
		"bookings",
		"voucher_redemptions",
		"voucher_targets",
		"vouchers",
		"room_types",
		"properties",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	properties, err := s.SeedCatalog()
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	if err := s.SeedVouchers(properties); err != nil {
		return fmt.Errorf("failed to seed vouchers: %w", err)
	}

	// cached catalog entries would point at truncated rows
	if s.db.Redis != nil {
		catalogRepo := catalog.NewRepository(s.db.PostgreSQL, cache.NewService(s.db.Redis), 0)
		if err := catalogRepo.Invalidate(ctx); err != nil {
			log.Printf("Warning: Failed to clear catalog cache: %v", err)
		}
	}
	return nil
}

// SeedCatalog creates two properties of the demo partner with their room types
func (s *Seeder) SeedCatalog() ([]catalog.Property, error) {
	fmt.Println("  Seeding properties...")

	data := []struct {
		name  string
		city  string
		rooms []struct {
			name     string
			price    string
			capacity int
		}
	}{
		{"Riverside Hotel", "Hanoi", []struct {
			name     string
			price    string
			capacity int
		}{
			{"Standard Double", "850000", 2},
			{"Deluxe River View", "1450000", 3},
			{"Family Suite", "2300000", 5},
		}},
		{"Sunset Beach Resort", "Da Nang", []struct {
			name     string
			price    string
			capacity int
		}{
			{"Garden Bungalow", "1200000", 2},
			{"Ocean Villa", "3900000", 6},
		}},
	}

	var properties []catalog.Property
	for _, p := range data {
		property := catalog.Property{
			PartnerID: partnerID,
			Name:      p.name,
			City:      p.city,
			IsActive:  true,
		}
		for _, r := range p.rooms {
			property.RoomTypes = append(property.RoomTypes, catalog.RoomType{
				Name:      r.name,
				BasePrice: decimal.RequireFromString(r.price),
				Capacity:  r.capacity,
				IsActive:  true,
			})
		}
		if err := s.db.PostgreSQL.Create(&property).Error; err != nil {
			return nil, fmt.Errorf("failed to create property %s: %w", p.name, err)
		}
		fmt.Printf("    Created property: %s (%d room types)\n", property.Name, len(property.RoomTypes))
		properties = append(properties, property)
	}
	return properties, nil
}

// SeedVouchers creates a platform-wide voucher and two partner vouchers
func (s *Seeder) SeedVouchers(properties []catalog.Property) error {
	fmt.Println("  Seeding vouchers...")

	now := time.Now().UTC()
	limit := func(n int) *int { return &n }
	maxDiscount := decimal.NewNullDecimal(decimal.NewFromInt(500000))
	minOrder := decimal.NewNullDecimal(decimal.NewFromInt(2000000))
	propertyID := properties[0].ID
	roomTypeID := properties[1].RoomTypes[1].ID

	seeds := []struct {
		code    string
		terms   vouchers.Terms
		creator vouchers.CreatorType
		by      uuid.UUID
		targets []vouchers.VoucherTarget
	}{
		{
			code: "WELCOME10",
			terms: vouchers.Terms{
				Description:           "10% off your first stays",
				DiscountType:          vouchers.DiscountTypePercentage,
				DiscountValue:         decimal.NewFromInt(10),
				MaximumDiscountAmount: maxDiscount,
				UsageLimit:            limit(1000),
				UsageLimitPerUser:     limit(1),
				StartDate:             now,
				EndDate:               now.AddDate(0, 3, 0),
			},
			creator: vouchers.CreatorAdmin,
			by:      adminID,
			targets: []vouchers.VoucherTarget{{TargetType: vouchers.TargetGlobal}},
		},
		{
			code: "RIVERSIDE200K",
			terms: vouchers.Terms{
				Description:        "200,000 VND off stays at Riverside Hotel",
				DiscountType:       vouchers.DiscountTypeFixedAmount,
				DiscountValue:      decimal.NewFromInt(200000),
				MinimumOrderAmount: minOrder,
				UsageLimit:         limit(50),
				StartDate:          now,
				EndDate:            now.AddDate(0, 1, 0),
			},
			creator: vouchers.CreatorPartner,
			by:      partnerID,
			targets: []vouchers.VoucherTarget{{TargetType: vouchers.TargetProperty, PropertyID: &propertyID}},
		},
		{
			code: "OCEANVILLA15",
			terms: vouchers.Terms{
				Description:   "15% off Ocean Villa nights",
				DiscountType:  vouchers.DiscountTypePercentage,
				DiscountValue: decimal.NewFromInt(15),
				StartDate:     now,
				EndDate:       now.AddDate(0, 2, 0),
			},
			creator: vouchers.CreatorPartner,
			by:      partnerID,
			targets: []vouchers.VoucherTarget{{TargetType: vouchers.TargetRoomType, RoomTypeID: &roomTypeID}},
		},
	}

	repo := vouchers.NewRepository(s.db.PostgreSQL)
	for _, seed := range seeds {
		v, err := vouchers.NewVoucher(seed.code, seed.terms, seed.creator, seed.by, seed.targets)
		if err != nil {
			return fmt.Errorf("voucher %s: %w", seed.code, err)
		}
		v.CreatedAt = now
		if err := repo.Create(context.Background(), v); err != nil {
			return fmt.Errorf("voucher %s: %w", seed.code, err)
		}
		fmt.Printf("    Created voucher: %s (%s)\n", v.Code, v.CreatorType)
	}
	return nil
}

// IssueToken signs an access token the JWT middleware accepts.
func (s *Seeder) IssueToken(id uuid.UUID, email, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id.String(),
		"email":   email,
		"role":    role,
		"type":    "access",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWT.Secret))
}
