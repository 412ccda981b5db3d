package repositories

import (
	"context"
	"errors"
	"time"

	"acai-delivery-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

type attendanceUserRepository struct {
	db *gorm.DB
}

func NewAttendanceUserRepository(db *gorm.DB) AttendanceUserRepository {
	return &attendanceUserRepository{db: db}
}

func (r *attendanceUserRepository) Create(ctx context.Context, user *models.AttendanceUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *attendanceUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AttendanceUser, error) {
	var user models.AttendanceUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *attendanceUserRepository) GetByUsername(ctx context.Context, username string) (*models.AttendanceUser, error) {
	var user models.AttendanceUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *attendanceUserRepository) Update(ctx context.Context, user *models.AttendanceUser) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *attendanceUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.AttendanceUser{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *attendanceUserRepository) List(ctx context.Context) ([]models.AttendanceUser, error) {
	var users []models.AttendanceUser
	err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error
	return users, err
}

func (r *attendanceUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AttendanceUser{}).
		Where("id = ?", id).
		Update("last_login", at).Error
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sale.ID == uuid.Nil {
			sale.ID = uuid.New()
		}
		if err := tx.Omit("Items").Create(sale).Error; err != nil {
			return err
		}
		if len(sale.Items) == 0 {
			return nil
		}
		for i := range sale.Items {
			sale.Items[i].SaleID = sale.ID
			if sale.Items[i].ID == uuid.Nil {
				sale.Items[i].ID = uuid.New()
			}
		}
		return tx.Create(&sale.Items).Error
	})
}

func (r *saleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&sale).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, limit, offset int) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sales).Error
	return sales, err
}

func (r *saleRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepository) Cancel(ctx context.Context, id uuid.UUID, reason string, by *uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ? AND status = ?", id, models.SaleCompleted).
		Updates(map[string]interface{}{
			"status":        models.SaleCancelled,
			"cancel_reason": reason,
			"cancelled_by":  by,
			"cancelled_at":  at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.OrderSettings, error) {
	var settings models.OrderSettings
	err := r.db.WithContext(ctx).Where("id = ?", models.DefaultSettingsID).First(&settings).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *models.OrderSettings) error {
	settings.ID = models.DefaultSettingsID
	return r.db.WithContext(ctx).Save(settings).Error
}
