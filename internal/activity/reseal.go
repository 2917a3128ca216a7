package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/internal/observability"
	"github.com/hugh/salespulse/pkg/crypto"
)

const defaultResealBatch = 200

type ResealStats struct {
	Resealed int `json:"resealed"`
	Failed   int `json:"failed"`
}

// ResealMetadata walks every encrypted event and seals its metadata again
// to the current primary key, so retired keys can be dropped afterwards.
// Values no key in the ring can open are counted and left alone.
func (s *Service) ResealMetadata(ctx context.Context, batch int) (*ResealStats, error) {
	if s.encryptor == nil {
		return nil, crypto.ErrNoKey
	}
	if batch <= 0 {
		batch = defaultResealBatch
	}

	stats := &ResealStats{}
	defer func() { observability.RecordMetadataReseal(stats.Resealed, stats.Failed) }()

	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var events []models.ActivityEvent
		if err := s.db.WithContext(ctx).
			Select("id", "metadata").
			Where("metadata_encrypted = ? AND id > ?", true, after).
			Order("id").
			Limit(batch).
			Find(&events).Error; err != nil {
			return stats, fmt.Errorf("loading encrypted events: %w", err)
		}
		if len(events) == 0 {
			return stats, nil
		}

		for _, e := range events {
			after = e.ID
			if e.Metadata == nil {
				continue
			}
			sealed, err := s.encryptor.Reseal(*e.Metadata)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return stats, err
				}
				s.logger.Warn("cannot reseal event metadata", "event_id", e.ID, "error", err)
				stats.Failed++
				continue
			}
			if err := s.db.WithContext(ctx).
				Model(&models.ActivityEvent{}).
				Where("id = ?", e.ID).
				Update("metadata", sealed).Error; err != nil {
				return stats, fmt.Errorf("storing resealed metadata: %w", err)
			}
			stats.Resealed++
		}

		if len(events) < batch {
			return stats, nil
		}
	}
}
