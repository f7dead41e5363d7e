package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/internal/infra/database/models"
	"github.com/totegamma/passgate/internal/usecase"
)

type PassRepository struct {
	db *gorm.DB
}

func NewPassRepository(db *gorm.DB) *PassRepository {
	return &PassRepository{db: db}
}

func (r *PassRepository) Create(ctx context.Context, pass domain.Pass) (domain.Pass, error) {
	model := passModel(pass)
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		return domain.Pass{}, err
	}
	return passDomain(model), nil
}

func (r *PassRepository) Update(ctx context.Context, pass domain.Pass) (domain.Pass, error) {
	model := passModel(pass)
	result := r.db.WithContext(ctx).
		Model(&models.Pass{ID: pass.ID}).
		Select(
			"vehicle_type", "vehicle_brand", "vehicle_number", "plate_norm", "entry_date",
			"address", "comment", "security_comment", "is_permanent", "status",
		).
		Updates(&model)
	if result.Error != nil {
		return domain.Pass{}, result.Error
	}
	if result.RowsAffected == 0 {
		return domain.Pass{}, domain.NotFoundError{Resource: "pass"}
	}
	return r.Get(ctx, pass.ID)
}

func (r *PassRepository) SetStatus(ctx context.Context, id uint, status domain.PassStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Pass{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "pass"}
	}
	return nil
}

func (r *PassRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Pass{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "pass"}
	}
	return nil
}

func (r *PassRepository) Get(ctx context.Context, id uint) (domain.Pass, error) {
	var model models.Pass
	err := r.db.WithContext(ctx).Take(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Pass{}, domain.NotFoundError{Resource: "pass"}
		}
		return domain.Pass{}, err
	}
	return passDomain(model), nil
}

func (r *PassRepository) List(ctx context.Context, filter domain.PassFilter) ([]domain.Pass, error) {
	q := r.db.WithContext(ctx)
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.EntryDate != "" {
		q = q.Where("entry_date = ?", filter.EntryDate)
	}
	if filter.VehicleType != "" {
		q = q.Where("vehicle_type = ?", string(filter.VehicleType))
	}

	var rows []models.Pass
	err := q.Order("entry_date DESC, created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	passes := make([]domain.Pass, 0, len(rows))
	for _, row := range rows {
		passes = append(passes, passDomain(row))
	}
	return passes, nil
}

// FindActive picks the live pass that opens the gate: permanent passes in
// PermanentAllowed, or temporary passes dated Today in Allowed. Permanent
// wins, then the newest.
func (r *PassRepository) FindActive(ctx context.Context, query usecase.ActiveQuery) (*domain.Pass, error) {
	var model models.Pass
	err := r.db.WithContext(ctx).
		Where("plate_norm = ?", query.PlateNorm).
		Where(
			r.db.Where("is_permanent = ? AND status IN ?", true, query.PermanentAllowed).
				Or("(is_permanent IS NULL OR is_permanent = ?) AND entry_date = ? AND status IN ?", false, query.Today, query.Allowed),
		).
		Order("CASE WHEN is_permanent THEN 1 ELSE 0 END DESC, created_at DESC, id DESC").
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	pass := passDomain(model)
	return &pass, nil
}

func passModel(pass domain.Pass) models.Pass {
	return models.Pass{
		ID:              pass.ID,
		UserID:          pass.UserID,
		VehicleType:     string(pass.VehicleType),
		VehicleBrand:    pass.VehicleBrand,
		VehicleNumber:   pass.VehicleNumber,
		PlateNorm:       pass.PlateNorm,
		EntryDate:       pass.EntryDate,
		Address:         pass.Address,
		Comment:         pass.Comment,
		SecurityComment: pass.SecurityComment,
		IsPermanent:     pass.IsPermanent,
		Status:          string(pass.Status),
	}
}

func passDomain(model models.Pass) domain.Pass {
	var deletedAt *time.Time
	if model.DeletedAt.Valid {
		t := model.DeletedAt.Time
		deletedAt = &t
	}
	return domain.Pass{
		ID:              model.ID,
		UserID:          model.UserID,
		VehicleType:     domain.VehicleType(model.VehicleType),
		VehicleBrand:    model.VehicleBrand,
		VehicleNumber:   model.VehicleNumber,
		PlateNorm:       model.PlateNorm,
		EntryDate:       model.EntryDate,
		Address:         model.Address,
		Comment:         model.Comment,
		SecurityComment: model.SecurityComment,
		IsPermanent:     model.IsPermanent,
		Status:          domain.PassStatus(model.Status),
		DeletedAt:       deletedAt,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}
