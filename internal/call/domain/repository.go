package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCall(ctx context.Context, db *gorm.DB, call *Call) error
	UpdateCall(ctx context.Context, db *gorm.DB, call *Call) error
	// FinishCall writes a terminal status only while the stored one is still
	// open. It reports false when another callback finished the call first.
	FinishCall(ctx context.Context, db *gorm.DB, call *Call) (bool, error)
	FindCallBySID(ctx context.Context, db *gorm.DB, callSID string) (*Call, error)
	// ListCalls returns the newest calls first, with the caller's contact
	// name where one is on file.
	ListCalls(ctx context.Context, db *gorm.DB, businessID snowflake.ID, limit int) ([]CallView, error)

	InsertContact(ctx context.Context, db *gorm.DB, contact *Contact) error
	UpdateContact(ctx context.Context, db *gorm.DB, contact *Contact) error
	FindContactByPhone(ctx context.Context, db *gorm.DB, businessID snowflake.ID, phone string) (*Contact, error)
}
