package prompt

import (
	"context"
	"errors"
	"fmt"

	"github.com/suPer8Hu/gemini-chat/internal/common"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("prompt %w", common.ErrNotFound)
	}
	return err
}

func (r *Repo) Create(ctx context.Context, t *Template) error {
	if t.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// ListVisible returns the user's templates plus all global ones, most
// recently updated first.
func (r *Repo) ListVisible(ctx context.Context, userID uint64) ([]Template, error) {
	out := []Template{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ? OR is_global = ?", userID, true).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) GetVisible(ctx context.Context, userID uint64, id string) (*Template, error) {
	var t Template
	if err := r.db.WithContext(ctx).
		Where("id = ? AND (user_id = ? OR is_global = ?)", id, userID, true).
		First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *Repo) GetOwned(ctx context.Context, userID uint64, id string) (*Template, error) {
	var t Template
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *Repo) Save(ctx context.Context, t *Template) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// DeleteOwned removes the template only when userID owns it.
func (r *Repo) DeleteOwned(ctx context.Context, userID uint64, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Template{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("prompt %w", common.ErrNotFound)
	}
	return nil
}
