package repository

import (
	"context"

	"github.com/smallbiznis/receptionist/internal/calendar/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, t *domain.Token) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO calendar_tokens (id, business_id, access_token_encrypted, refresh_token_encrypted,
			token_type, scope, expires_at, is_connected, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.BusinessID,
		t.AccessTokenEncrypted,
		t.RefreshTokenEncrypted,
		t.TokenType,
		t.Scope,
		t.ExpiresAt,
		t.IsConnected,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, t *domain.Token) error {
	return db.WithContext(ctx).Exec(
		`UPDATE calendar_tokens SET access_token_encrypted = ?, refresh_token_encrypted = ?,
			token_type = ?, scope = ?, expires_at = ?, is_connected = ?, updated_at = ?
		 WHERE id = ?`,
		t.AccessTokenEncrypted,
		t.RefreshTokenEncrypted,
		t.TokenType,
		t.Scope,
		t.ExpiresAt,
		t.IsConnected,
		t.UpdatedAt,
		t.ID,
	).Error
}

func (r *repo) FindByBusinessID(ctx context.Context, db *gorm.DB, businessID string) (*domain.Token, error) {
	var token domain.Token
	err := db.WithContext(ctx).Raw(
		`SELECT id, business_id, access_token_encrypted, refresh_token_encrypted, token_type,
			scope, expires_at, is_connected, created_at, updated_at
		 FROM calendar_tokens
		 WHERE business_id = ?
		 LIMIT 1`,
		businessID,
	).Scan(&token).Error
	if err != nil {
		return nil, err
	}
	if token.ID == 0 {
		return nil, nil
	}
	return &token, nil
}
