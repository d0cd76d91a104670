package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/suPer8Hu/gemini-chat/internal/common"
	"github.com/suPer8Hu/gemini-chat/internal/models"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts u; a taken email yields common.ErrConflict.
func (r *Repo) Create(ctx context.Context, u *models.User) error {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", u.Email).
		Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return fmt.Errorf("%w: email already in use", common.ErrConflict)
	}

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		// lost a race against a concurrent registration
		if _, getErr := r.GetByEmail(ctx, u.Email); getErr == nil {
			return fmt.Errorf("%w: email already in use", common.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", common.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", common.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}
