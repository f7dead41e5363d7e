package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/internal/infra/database/models"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Latest(ctx context.Context) (*domain.GateSettings, error) {
	var model models.LprSettings
	err := r.db.WithContext(ctx).Order("id DESC").Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	settings := settingsDomain(model)
	return &settings, nil
}

func (r *SettingsRepository) Create(ctx context.Context, settings domain.GateSettings) (domain.GateSettings, error) {
	model := settingsModel(settings)
	model.ID = 0
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return domain.GateSettings{}, err
	}
	return settingsDomain(model), nil
}

func (r *SettingsRepository) Update(ctx context.Context, settings domain.GateSettings) (domain.GateSettings, error) {
	model := settingsModel(settings)
	result := r.db.WithContext(ctx).
		Model(&models.LprSettings{ID: settings.ID}).
		Select("lpr_token", "cooldown_seconds", "allowed_statuses", "allow_repeat_after_entered", "timezone").
		Updates(&model)
	if result.Error != nil {
		return domain.GateSettings{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.GateSettings{}, domain.NotFoundError{Resource: "lpr settings"}
	}

	var saved models.LprSettings
	err := r.db.WithContext(ctx).Take(&saved, settings.ID).Error
	if err != nil {
		return domain.GateSettings{}, err
	}
	return settingsDomain(saved), nil
}

func settingsModel(settings domain.GateSettings) models.LprSettings {
	return models.LprSettings{
		ID:                      settings.ID,
		LprToken:                settings.LprToken,
		CooldownSeconds:         settings.CooldownSeconds,
		AllowedStatuses:         settings.AllowedStatuses,
		AllowRepeatAfterEntered: settings.AllowRepeatAfterEntered,
		Timezone:                settings.Timezone,
	}
}

func settingsDomain(model models.LprSettings) domain.GateSettings {
	return domain.GateSettings{
		ID:                      model.ID,
		LprToken:                model.LprToken,
		CooldownSeconds:         model.CooldownSeconds,
		AllowedStatuses:         model.AllowedStatuses,
		AllowRepeatAfterEntered: model.AllowRepeatAfterEntered,
		Timezone:                model.Timezone,
		CreatedAt:               model.CreatedAt,
		UpdatedAt:               model.UpdatedAt,
	}
}
