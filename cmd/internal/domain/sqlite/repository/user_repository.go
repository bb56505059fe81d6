package repository

import (
	"agenthelper/cmd/internal/domain/entity"
	"errors"

	"gorm.io/gorm"
)

type DefaultUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *DefaultUserRepository {
	return &DefaultUserRepository{db: db}
}

func (u *DefaultUserRepository) FindAllActive() ([]*entity.User, error) {
	var users []*entity.User
	err := u.db.Where("active = ?", true).Order("id").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (u *DefaultUserRepository) FindOnline() ([]*entity.User, error) {
	var users []*entity.User
	err := u.db.
		Where("active = ? AND is_online = ?", true, true).
		Order("last_seen DESC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (u *DefaultUserRepository) FindByID(id int64) (*entity.User, error) {
	var user entity.User
	err := u.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *DefaultUserRepository) FindActiveBySub(sub string) (*entity.User, error) {
	var user entity.User
	err := u.db.Where("sub_uuid = ? AND active = ?", sub, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *DefaultUserRepository) ExistsByEmail(email string) (bool, error) {
	var exists int
	err := u.db.
		Raw("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", email).
		Scan(&exists).Error
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// Create inserts a new account. Presence columns keep their defaults.
func (u *DefaultUserRepository) Create(user *entity.User) error {
	return u.db.Create(user).Error
}

// UpdatePresence is the only write path for the presence columns.
//
// It returns the record as it was before the write, or nil (and no error)
// when no active user has the given ID.
func (u *DefaultUserRepository) UpdatePresence(id int64, isOnline bool, now int64) (*entity.User, error) {
	var previous entity.User
	err := u.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("active = ?", true).First(&previous, id).Error; err != nil {
			return err
		}

		return tx.Model(&entity.User{}).
			Where("id = ?", id).
			UpdateColumns(map[string]any{
				"is_online":  isOnline,
				"last_seen":  now,
				"updated_at": now,
			}).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &previous, nil
}
