package mapper

import (
	"time"

	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type VectorRecordMapper struct{}

func NewVectorRecordMapper() *VectorRecordMapper {
	return &VectorRecordMapper{}
}

func (m *VectorRecordMapper) ToEntity(r *model.ChunkRecord) *entity.VectorRecord {
	if r == nil {
		return nil
	}

	var updatedAt *time.Time
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		updatedAt = &t
	}

	return &entity.VectorRecord{
		Id:         r.RecordId,
		SourceId:   r.SourceId,
		ChunkIndex: r.ChunkIndex,
		Text:       r.Document,
		Embedding:  r.Embedding.Slice(),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  updatedAt,
	}
}

func (m *VectorRecordMapper) ToModel(collection string, r *entity.VectorRecord) *model.ChunkRecord {
	if r == nil {
		return nil
	}

	var updatedAt time.Time
	if r.UpdatedAt != nil {
		updatedAt = *r.UpdatedAt
	}

	return &model.ChunkRecord{
		CollectionName: collection,
		RecordId:       r.Id,
		SourceId:       r.SourceId,
		ChunkIndex:     r.ChunkIndex,
		Document:       r.Text,
		Embedding:      pgvector.NewVector(r.Embedding),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *VectorRecordMapper) ToModels(collection string, records []*entity.VectorRecord) []*model.ChunkRecord {
	models := make([]*model.ChunkRecord, len(records))
	for i, r := range records {
		models[i] = m.ToModel(collection, r)
	}
	return models
}
