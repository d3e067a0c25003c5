package database

import (
	"log"

	"giftshop/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.TaxSlab{},
		&model.TaxConfiguration{},
		&model.CommissionRule{},
		&model.CommissionEarning{},
		&model.ProductAssignment{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	if err := SeedTaxSlabs(db); err != nil {
		log.Println("WARNING: Failed to seed default tax slabs:", err)
	}

	return db, nil
}

// SeedTaxSlabs inserts the default GST slab per tax category. Categories that
// already carry an active slab are left untouched.
func SeedTaxSlabs(db *gorm.DB) error {
	for _, slab := range model.DefaultTaxSlabs() {
		var count int64
		if err := db.Model(&model.TaxSlab{}).
			Where("category = ? AND active = ?", slab.Category, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&slab).Error; err != nil {
			return err
		}
	}
	return nil
}
