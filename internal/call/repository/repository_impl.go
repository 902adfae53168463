package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/receptionist/internal/call/domain"
	"gorm.io/gorm"
)

const selectCallColumns = `SELECT id, business_id, call_sid, from_number, to_number, status,
	duration, minutes_billed, recording_url, transcript, summary, intent,
	appointment_booked, created_at, updated_at
	FROM calls`

const selectContactColumns = `SELECT id, business_id, phone_number, name, email, notes,
	is_blocked, created_at, updated_at
	FROM contacts`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCall(ctx context.Context, db *gorm.DB, c *domain.Call) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO calls (id, business_id, call_sid, from_number, to_number, status,
			duration, minutes_billed, recording_url, transcript, summary, intent,
			appointment_booked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.BusinessID,
		c.CallSID,
		c.FromNumber,
		c.ToNumber,
		c.Status,
		c.Duration,
		c.MinutesBilled,
		c.RecordingURL,
		c.Transcript,
		c.Summary,
		c.Intent,
		c.AppointmentBooked,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) UpdateCall(ctx context.Context, db *gorm.DB, c *domain.Call) error {
	return db.WithContext(ctx).Exec(
		`UPDATE calls SET from_number = ?, to_number = ?, status = ?, duration = ?,
			minutes_billed = ?, recording_url = ?, transcript = ?, summary = ?, intent = ?,
			appointment_booked = ?, updated_at = ?
		 WHERE id = ?`,
		c.FromNumber,
		c.ToNumber,
		c.Status,
		c.Duration,
		c.MinutesBilled,
		c.RecordingURL,
		c.Transcript,
		c.Summary,
		c.Intent,
		c.AppointmentBooked,
		c.UpdatedAt,
		c.ID,
	).Error
}

func (r *repo) FinishCall(ctx context.Context, db *gorm.DB, c *domain.Call) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE calls SET from_number = ?, status = ?, duration = ?, minutes_billed = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN (?)`,
		c.FromNumber,
		c.Status,
		c.Duration,
		c.MinutesBilled,
		c.UpdatedAt,
		c.ID,
		domain.TerminalStatuses,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindCallBySID(ctx context.Context, db *gorm.DB, callSID string) (*domain.Call, error) {
	var call domain.Call
	err := db.WithContext(ctx).Raw(selectCallColumns+` WHERE call_sid = ? LIMIT 1`, callSID).Scan(&call).Error
	if err != nil {
		return nil, err
	}
	if call.ID == 0 {
		return nil, nil
	}
	return &call, nil
}

func (r *repo) ListCalls(ctx context.Context, db *gorm.DB, businessID snowflake.ID, limit int) ([]domain.CallView, error) {
	var rows []domain.CallView
	err := db.WithContext(ctx).Raw(
		`SELECT calls.id, calls.call_sid, calls.from_number,
			COALESCE(NULLIF(contacts.name, ''), ?) AS caller_name,
			calls.status, calls.duration, calls.created_at, calls.appointment_booked,
			COALESCE(NULLIF(calls.intent, ''), ?) AS intent,
			calls.transcript, calls.summary, calls.recording_url
		 FROM calls
		 LEFT JOIN contacts
			ON contacts.business_id = calls.business_id AND contacts.phone_number = calls.from_number
		 WHERE calls.business_id = ?
		 ORDER BY calls.created_at DESC, calls.id DESC
		 LIMIT ?`,
		domain.UnknownCallerName,
		domain.DefaultIntent,
		businessID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO contacts (id, business_id, phone_number, name, email, notes,
			is_blocked, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.BusinessID,
		c.PhoneNumber,
		c.Name,
		c.Email,
		c.Notes,
		c.IsBlocked,
		c.CreatedAt,
		c.UpdatedAt,
	).Error
}

func (r *repo) UpdateContact(ctx context.Context, db *gorm.DB, c *domain.Contact) error {
	return db.WithContext(ctx).Exec(
		`UPDATE contacts SET name = ?, email = ?, notes = ?, is_blocked = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name,
		c.Email,
		c.Notes,
		c.IsBlocked,
		c.UpdatedAt,
		c.ID,
	).Error
}

func (r *repo) FindContactByPhone(ctx context.Context, db *gorm.DB, businessID snowflake.ID, phone string) (*domain.Contact, error) {
	var contact domain.Contact
	err := db.WithContext(ctx).Raw(
		selectContactColumns+` WHERE business_id = ? AND phone_number = ? LIMIT 1`,
		businessID, phone,
	).Scan(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == 0 {
		return nil, nil
	}
	return &contact, nil
}
