package implementation

import (
	"context"
	"errors"
	"fmt"

	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/mapper"
	"doc-qa-be/internal/model"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/pkg/apperr"

	"doc-qa-be/internal/constant"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PgVectorStoreImpl struct {
	db     *gorm.DB
	mapper *mapper.VectorRecordMapper
}

func NewPgVectorStore(db *gorm.DB) contract.VectorStore {
	return &PgVectorStoreImpl{
		db:     db,
		mapper: mapper.NewVectorRecordMapper(),
	}
}

func (r *PgVectorStoreImpl) findCollection(ctx context.Context, name string) (*model.VectorCollection, error) {
	var m model.VectorCollection
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewStoreError(apperr.KindCollectionNotFound,
				fmt.Errorf("collection %q does not exist", name))
		}
		return nil, apperr.NewStoreError(apperr.KindStoreQuery, err)
	}
	return &m, nil
}

func (r *PgVectorStoreImpl) EnsureCollection(ctx context.Context, name string, dimension int, metric string) error {
	existing, err := r.findCollection(ctx, name)
	if err == nil {
		if existing.Dimension != dimension {
			return apperr.NewStoreError(apperr.KindDimensionConflict,
				fmt.Errorf("collection %q has dimension %d, requested %d", name, existing.Dimension, dimension))
		}
		if existing.Metric != metric {
			return apperr.NewStoreError(apperr.KindDimensionConflict,
				fmt.Errorf("collection %q uses metric %q, requested %q", name, existing.Metric, metric))
		}
		return nil
	}

	var se *apperr.StoreError
	if !errors.As(err, &se) || se.Kind != apperr.KindCollectionNotFound {
		return err
	}

	// DoNothing keeps a concurrent create from failing; the re-read below
	// then verifies whoever won used the same parameters.
	m := &model.VectorCollection{Name: name, Dimension: dimension, Metric: metric}
	createErr := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(m).Error
	if createErr != nil {
		return apperr.NewStoreError(apperr.KindStoreQuery, createErr)
	}

	winner, err := r.findCollection(ctx, name)
	if err != nil {
		return err
	}
	if winner.Dimension != dimension || winner.Metric != metric {
		return apperr.NewStoreError(apperr.KindDimensionConflict,
			fmt.Errorf("collection %q exists with dimension %d metric %q", name, winner.Dimension, winner.Metric))
	}
	return nil
}

func (r *PgVectorStoreImpl) Upsert(ctx context.Context, collection string, records []*entity.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	coll, err := r.findCollection(ctx, collection)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if len(rec.Embedding) != coll.Dimension {
			return apperr.NewStoreError(apperr.KindDimensionMismatch,
				fmt.Errorf("record %q has vector length %d, collection dimension is %d",
					rec.Id, len(rec.Embedding), coll.Dimension))
		}
	}

	models := r.mapper.ToModels(collection, records)
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_name"}, {Name: "record_id"}},
		UpdateAll: true,
	}

	batchErr := r.db.WithContext(ctx).Clauses(upsert).Create(models).Error
	if batchErr == nil {
		return nil
	}

	// The batch insert is all-or-nothing under gorm, so retry row by row to
	// find out which ids are actually refused. No silent partial success.
	var failedIds []string
	for _, m := range models {
		if err := r.db.WithContext(ctx).Clauses(upsert).Create(m).Error; err != nil {
			failedIds = append(failedIds, m.RecordId)
		}
	}
	if len(failedIds) == 0 {
		// Everything went through on the second pass; the batch failure was
		// transient.
		return nil
	}
	return &apperr.StoreError{Kind: apperr.KindPartialUpsert, FailedIDs: failedIds, Err: batchErr}
}

// scoreExpr returns a SQL expression whose value is higher for more relevant
// rows, whatever the metric. pgvector's <#> yields negative inner product
// and <-> a distance, so both are negated.
func scoreExpr(metric string) (string, error) {
	switch metric {
	case constant.MetricCosine:
		return "1 - (embedding <=> ?)", nil
	case constant.MetricDot:
		return "-(embedding <#> ?)", nil
	case constant.MetricEuclidean:
		return "-(embedding <-> ?)", nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", metric)
	}
}

func (r *PgVectorStoreImpl) Search(ctx context.Context, collection string, queryVector []float32, topK int) ([]*entity.ScoredRecord, error) {
	if topK <= 0 {
		topK = 5
	}

	coll, err := r.findCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(queryVector) != coll.Dimension {
		return nil, apperr.NewStoreError(apperr.KindDimensionMismatch,
			fmt.Errorf("query vector length %d, collection dimension is %d", len(queryVector), coll.Dimension))
	}

	expr, err := scoreExpr(coll.Metric)
	if err != nil {
		return nil, apperr.NewStoreError(apperr.KindStoreQuery, err)
	}

	type row struct {
		model.ChunkRecord
		Score float64
	}
	var rows []row

	queryVec := pgvector.NewVector(queryVector)
	err = r.db.WithContext(ctx).
		Table("chunk_records").
		Select("chunk_records.*, "+expr+" as score", queryVec).
		Where("collection_name = ?", collection).
		Order("score DESC").
		Order("record_id ASC").
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.NewStoreError(apperr.KindStoreQuery, err)
	}

	results := make([]*entity.ScoredRecord, len(rows))
	for i, rw := range rows {
		rec := rw.ChunkRecord
		results[i] = &entity.ScoredRecord{
			Record: r.mapper.ToEntity(&rec),
			Score:  rw.Score,
		}
	}
	return results, nil
}

func (r *PgVectorStoreImpl) CountRecords(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChunkRecord{}).
		Where("collection_name = ?", collection).
		Count(&count).Error
	if err != nil {
		return 0, apperr.NewStoreError(apperr.KindStoreQuery, err)
	}
	return count, nil
}
