package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/auth_service/internal/models"
)

// PersistRefreshToken inserts a new ledger row. The generated ID becomes the
// jti of the token signed for it.
func (r *GormRepo) PersistRefreshToken(ctx context.Context, userID uint, expiresAt time.Time) (*models.RefreshToken, error) {
	token := models.RefreshToken{
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}
	if err := r.DB.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// FindActiveRefreshToken looks the row up by id and owner. A row whose
// owner differs is treated as absent.
func (r *GormRepo) FindActiveRefreshToken(ctx context.Context, recordID, userID uint) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordID, userID).
		First(&token).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

// DeleteRefreshToken is idempotent: deleting a missing row is not an error.
func (r *GormRepo) DeleteRefreshToken(ctx context.Context, recordID uint) error {
	return r.DB.WithContext(ctx).Delete(&models.RefreshToken{}, recordID).Error
}

func (r *GormRepo) CountRefreshTokens(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// PurgeExpiredRefreshTokens drops rows past their expiry. Their tokens can
// no longer verify, so the rows only take space.
func (r *GormRepo) PurgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", now.UTC()).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

// ConsumeRefreshToken deletes the row only if it still belongs to userID
// and reports whether it did. Of two concurrent rotations of the same token
// exactly one sees true.
func (r *GormRepo) ConsumeRefreshToken(ctx context.Context, recordID, userID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", recordID, userID).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
