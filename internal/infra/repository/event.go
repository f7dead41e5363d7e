package repository

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/internal/infra/database/models"
)

// EventRepository is insert-only by construction: it exposes no update
// or delete.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event domain.LprEvent) error {
	model := models.LprEvent{
		GateID:     event.GateID,
		EventType:  string(event.EventType),
		PlateRaw:   event.PlateRaw,
		PlateNorm:  event.PlateNorm,
		Confidence: event.Confidence,
		PassID:     event.PassID,
		RequestID:  event.RequestID,
		Payload:    datatypes.JSON(event.Payload),
		CreatedAt:  event.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *EventRepository) List(ctx context.Context, filter domain.EventFilter) ([]domain.LprEvent, error) {
	q := r.db.WithContext(ctx)
	if filter.RequestID != "" {
		q = q.Where("request_id = ?", filter.RequestID)
	}
	if filter.GateID != "" {
		q = q.Where("gate_id = ?", filter.GateID)
	}
	if filter.PassID != nil {
		q = q.Where("pass_id = ?", *filter.PassID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []models.LprEvent
	err := q.Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]domain.LprEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, domain.LprEvent{
			ID:         row.ID,
			GateID:     row.GateID,
			EventType:  domain.EventType(row.EventType),
			PlateRaw:   row.PlateRaw,
			PlateNorm:  row.PlateNorm,
			Confidence: row.Confidence,
			PassID:     row.PassID,
			RequestID:  row.RequestID,
			Payload:    json.RawMessage(row.Payload),
			CreatedAt:  row.CreatedAt,
		})
	}
	return events, nil
}
