package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Property is the read-only view of a listing that the booking engine needs.
type Property struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PartnerID uuid.UUID  `gorm:"type:uuid;index;not null" json:"partner_id"`
	Name      string     `gorm:"type:varchar(200);not null" json:"name"`
	City      string     `gorm:"type:varchar(100)" json:"city"`
	IsActive  bool       `gorm:"not null" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	RoomTypes []RoomType `gorm:"foreignKey:PropertyID" json:"room_types,omitempty"`
}

type RoomType struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PropertyID uuid.UUID       `gorm:"type:uuid;index;not null" json:"property_id"`
	Name       string          `gorm:"type:varchar(120);not null" json:"name"`
	BasePrice  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"base_price"`
	Capacity   int             `gorm:"not null" json:"capacity"`
	IsActive   bool            `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (Property) TableName() string { return "properties" }
func (RoomType) TableName() string { return "room_types" }

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (rt *RoomType) BeforeCreate(tx *gorm.DB) error {
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	return nil
}
