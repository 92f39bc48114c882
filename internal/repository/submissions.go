package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const submissionsCollection = "lab_submission_files"

// SubmissionsRepository stores ingested submission files, one document per (lab, student, path)
type SubmissionsRepository struct {
	mongoRepo *MongoRepository
}

func NewSubmissionsRepository(mongoRepo *MongoRepository) *SubmissionsRepository {
	return &SubmissionsRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *SubmissionsRepository) EnsureIndexes(ctx context.Context) error {
	keys := bson.D{{Key: "labId", Value: 1}, {Key: "studentId", Value: 1}, {Key: "path", Value: 1}}
	if err := r.mongoRepo.EnsureIndex(ctx, submissionsCollection, keys); err != nil {
		return fmt.Errorf("failed to create submission index: %w", err)
	}
	return nil
}

// UpsertFile stores file, replacing an earlier version of the same path
func (r *SubmissionsRepository) UpsertFile(ctx context.Context, file *models.StoredFile) error {
	file.UpdatedAt = time.Now()
	filter := bson.M{"labId": file.LabID, "studentId": file.StudentID, "path": file.Path}

	if err := r.mongoRepo.Upsert(ctx, submissionsCollection, filter, file); err != nil {
		return apperr.Storage("upsert submission file", err)
	}
	return nil
}

// ListSubmissions groups the stored files of labID by student
func (r *SubmissionsRepository) ListSubmissions(ctx context.Context, labID string) ([]models.RawSubmission, error) {
	filter := bson.M{"labId": labID}
	opts := options.Find().SetSort(bson.D{{Key: "studentId", Value: 1}, {Key: "path", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, submissionsCollection, filter, opts)
	if err != nil {
		return nil, apperr.Storage("find submission files", err)
	}
	defer cursor.Close(ctx)

	var files []models.StoredFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, apperr.Storage("decode submission files", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: lab %s", apperr.ErrSubmissionsNotFound, labID)
	}

	return groupByStudent(files), nil
}

func (r *SubmissionsRepository) CountFiles(ctx context.Context, labID string) (int64, error) {
	count, err := r.mongoRepo.CountDocuments(ctx, submissionsCollection, bson.M{"labId": labID})
	if err != nil {
		return 0, apperr.Storage("count submission files", err)
	}
	return count, nil
}

func groupByStudent(files []models.StoredFile) []models.RawSubmission {
	byStudent := make(map[string]*models.RawSubmission)
	var order []string
	for _, f := range files {
		sub, ok := byStudent[f.StudentID]
		if !ok {
			sub = &models.RawSubmission{ID: f.StudentID}
			byStudent[f.StudentID] = sub
			order = append(order, f.StudentID)
		}
		sub.Files = append(sub.Files, models.RawFile{Path: f.Path, Content: f.Content})
	}
	sort.Strings(order)

	subs := make([]models.RawSubmission, 0, len(order))
	for _, id := range order {
		sub := byStudent[id]
		sort.Slice(sub.Files, func(i, j int) bool { return sub.Files[i].Path < sub.Files[j].Path })
		subs = append(subs, *sub)
	}
	return subs
}
