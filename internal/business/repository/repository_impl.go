package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/receptionist/internal/business/domain"
	"gorm.io/gorm"
)

const selectColumns = `SELECT id, owner_email, name, slug, industry, description,
	phone_number, phone_number_sid, phone_number_status, receptionist_enabled, is_active,
	greeting_style, business_hours, common_services, timezone, faqs,
	stripe_customer_id, subscription_status, minutes_used, minutes_limit,
	created_at, updated_at
	FROM businesses`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, b *domain.Business) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO businesses (id, owner_email, name, slug, industry, description,
			phone_number, phone_number_sid, phone_number_status, receptionist_enabled, is_active,
			greeting_style, business_hours, common_services, timezone, faqs,
			stripe_customer_id, subscription_status, minutes_used, minutes_limit,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID,
		b.OwnerEmail,
		b.Name,
		b.Slug,
		b.Industry,
		b.Description,
		b.PhoneNumber,
		b.PhoneNumberSID,
		b.PhoneNumberStatus,
		b.ReceptionistEnabled,
		b.IsActive,
		b.GreetingStyle,
		b.BusinessHours,
		b.CommonServices,
		b.Timezone,
		b.FAQs,
		b.StripeCustomerID,
		b.SubscriptionStatus,
		b.MinutesUsed,
		b.MinutesLimit,
		b.CreatedAt,
		b.UpdatedAt,
	).Error
}

// Update writes the editable columns. minutes_used only moves through
// AddMinutesUsed.
func (r *repo) Update(ctx context.Context, db *gorm.DB, b *domain.Business) error {
	return db.WithContext(ctx).Exec(
		`UPDATE businesses SET name = ?, slug = ?, industry = ?, description = ?,
			phone_number = ?, phone_number_sid = ?, phone_number_status = ?,
			receptionist_enabled = ?, is_active = ?, greeting_style = ?, business_hours = ?,
			common_services = ?, timezone = ?, faqs = ?, stripe_customer_id = ?,
			subscription_status = ?, minutes_limit = ?, updated_at = ?
		 WHERE id = ?`,
		b.Name,
		b.Slug,
		b.Industry,
		b.Description,
		b.PhoneNumber,
		b.PhoneNumberSID,
		b.PhoneNumberStatus,
		b.ReceptionistEnabled,
		b.IsActive,
		b.GreetingStyle,
		b.BusinessHours,
		b.CommonServices,
		b.Timezone,
		b.FAQs,
		b.StripeCustomerID,
		b.SubscriptionStatus,
		b.MinutesLimit,
		b.UpdatedAt,
		b.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Business, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE id = ?`, id)
}

func (r *repo) FindByOwnerEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Business, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE owner_email = ? ORDER BY created_at ASC LIMIT 1`, email)
}

func (r *repo) FindByStripeCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*domain.Business, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE stripe_customer_id = ? LIMIT 1`, customerID)
}

func (r *repo) FindByPhoneNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Business, error) {
	return r.findOne(ctx, db, selectColumns+` WHERE phone_number = ? ORDER BY created_at ASC LIMIT 1`, number)
}

func (r *repo) AddMinutesUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, minutes int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE businesses SET minutes_used = minutes_used + ?, updated_at = ? WHERE id = ?`,
		minutes, at, id,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Business, error) {
	var business domain.Business
	err := db.WithContext(ctx).Raw(query, args...).Scan(&business).Error
	if err != nil {
		return nil, err
	}
	if business.ID == 0 {
		return nil, nil
	}
	return &business, nil
}
