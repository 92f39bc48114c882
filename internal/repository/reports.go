package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/reportstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const reportsCollection = "duplicate_check_reports"

type reportDocument struct {
	LabID     string    `bson:"labId"`
	RunID     string    `bson:"runId"`
	Key       string    `bson:"key"`
	Payload   []byte    `bson:"payload"`
	CreatedAt time.Time `bson:"createdAt"`
}

// ReportsRepository is a report store keeping one document per (lab, run, key)
type ReportsRepository struct {
	mongoRepo *MongoRepository
}

func NewReportsRepository(mongoRepo *MongoRepository) *ReportsRepository {
	return &ReportsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *ReportsRepository) EnsureIndexes(ctx context.Context) error {
	keys := bson.D{{Key: "labId", Value: 1}, {Key: "runId", Value: 1}, {Key: "key", Value: 1}}
	if err := r.mongoRepo.EnsureIndex(ctx, reportsCollection, keys); err != nil {
		return fmt.Errorf("failed to create report index: %w", err)
	}
	return nil
}

// Put inserts one report. EnsureIndexes must have run for duplicate keys to be rejected.
func (r *ReportsRepository) Put(ctx context.Context, labID, runID, key string, payload []byte) error {
	doc := &reportDocument{
		LabID:     labID,
		RunID:     runID,
		Key:       key,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	return insertErr(r.mongoRepo.InsertOne(ctx, reportsCollection, doc))
}

// insertErr relies on the unique (labId, runId, key) index to reject a second write of a key
func insertErr(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return reportstore.ErrExists
	}
	return apperr.Storage("insert report", err)
}

func (r *ReportsRepository) Get(ctx context.Context, labID, runID, key string) ([]byte, error) {
	filter := bson.M{"labId": labID, "runId": runID, "key": key}

	var doc reportDocument
	err := r.mongoRepo.FindOne(ctx, reportsCollection, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, reportstore.ErrNotFound
	}
	if err != nil {
		return nil, apperr.Storage("find report", err)
	}
	return doc.Payload, nil
}

func (r *ReportsRepository) List(ctx context.Context, labID string) ([]string, error) {
	values, err := r.mongoRepo.Distinct(ctx, reportsCollection, "runId", bson.M{"labId": labID, "key": models.RunKey})
	if err != nil {
		return nil, apperr.Storage("list runs", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
