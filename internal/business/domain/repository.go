package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, business *Business) error
	Update(ctx context.Context, db *gorm.DB, business *Business) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Business, error)
	FindByOwnerEmail(ctx context.Context, db *gorm.DB, email string) (*Business, error)
	FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*Business, error)
	FindByPhoneNumber(ctx context.Context, db *gorm.DB, number string) (*Business, error)
	// AddMinutesUsed increments minutes_used in place so concurrent call
	// completions never lose an update.
	AddMinutesUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, minutes int, at time.Time) error
}
