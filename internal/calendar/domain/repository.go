package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, token *Token) error
	Update(ctx context.Context, db *gorm.DB, token *Token) error
	FindByBusinessID(ctx context.Context, db *gorm.DB, businessID string) (*Token, error)
}
