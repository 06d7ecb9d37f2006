package repository

import (
	"context"

	"participant-import-backend/internal/models"
	"participant-import-backend/internal/services/importrequest"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoImportRequestRepository stores import requests in a Mongo collection.
// Documents use the same record as the Postgres table.
type MongoImportRequestRepository struct {
	coll *mongo.Collection
}

func NewMongoImportRequestRepository(db *mongo.Database) *MongoImportRequestRepository {
	return &MongoImportRequestRepository{coll: db.Collection("import_requests")}
}

func (r *MongoImportRequestRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("event_created")},
		{Keys: bson.D{{Key: "empresa_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("empresa_created")},
	})
	return errors.Wrap(err, "create import request indexes")
}

func (r *MongoImportRequestRepository) Save(ctx context.Context, req *importrequest.ImportRequest) error {
	rec, err := models.ImportRequestFromDomain(req)
	if err != nil {
		return err
	}
	_, err = r.coll.InsertOne(ctx, rec)
	return errors.Wrap(err, "insert import request")
}

func (r *MongoImportRequestRepository) FindByID(ctx context.Context, id string) (*importrequest.ImportRequest, error) {
	var rec models.ImportRequest
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, importrequest.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find import request %s", id)
	}
	return rec.ToDomain()
}

func (r *MongoImportRequestRepository) FindByEvent(ctx context.Context, eventID string) ([]importrequest.ImportRequest, error) {
	return r.find(ctx, bson.M{"event_id": eventID})
}

func (r *MongoImportRequestRepository) FindByCompany(ctx context.Context, empresaID string) ([]importrequest.ImportRequest, error) {
	return r.find(ctx, bson.M{"empresa_id": empresaID})
}

func (r *MongoImportRequestRepository) FindAll(ctx context.Context) ([]importrequest.ImportRequest, error) {
	return r.find(ctx, bson.M{})
}

func (r *MongoImportRequestRepository) find(ctx context.Context, filter bson.M) ([]importrequest.ImportRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list import requests")
	}
	defer cur.Close(ctx)

	recs := []models.ImportRequest{}
	for cur.Next(ctx) {
		var rec models.ImportRequest
		if err := cur.Decode(&rec); err != nil {
			return nil, errors.Wrap(err, "decode import request")
		}
		recs = append(recs, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate import requests")
	}
	return toDomainList(recs)
}

// UpdateStatus matches on both id and expected status, so a concurrent
// transition leaves MatchedCount at zero.
func (r *MongoImportRequestRepository) UpdateStatus(ctx context.Context, id string, expected importrequest.Status, change importrequest.StatusChange) error {
	set := bson.M{
		"status":     string(change.Status),
		"updated_at": change.UpdatedAt,
	}
	if change.ApprovedBy != "" {
		set["approved_by"] = change.ApprovedBy
	}
	if change.ApprovedAt != nil {
		set["approved_at"] = *change.ApprovedAt
	}
	if change.Notes != "" {
		set["notes"] = change.Notes
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(expected)}, bson.M{"$set": set})
	if err != nil {
		return errors.Wrap(err, "update import request status")
	}
	if res.MatchedCount == 0 {
		return importrequest.ErrConflict
	}
	return nil
}

type mongoStatRow struct {
	Status        string `bson:"_id"`
	Count         int64  `bson:"count"`
	TotalRows     int64  `bson:"total_rows"`
	ValidRows     int64  `bson:"valid_rows"`
	InvalidRows   int64  `bson:"invalid_rows"`
	DuplicateRows int64  `bson:"duplicate_rows"`
}

func (r *MongoImportRequestRepository) StatsByEvent(ctx context.Context, eventID string) ([]importrequest.StatRow, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"event_id": eventID}}},
		{{Key: "$group", Value: bson.M{
			"_id":            "$status",
			"count":          bson.M{"$sum": 1},
			"total_rows":     bson.M{"$sum": "$total_rows"},
			"valid_rows":     bson.M{"$sum": "$valid_rows"},
			"invalid_rows":   bson.M{"$sum": "$invalid_rows"},
			"duplicate_rows": bson.M{"$sum": "$duplicate_rows"},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate import requests")
	}
	defer cur.Close(ctx)

	var raw []mongoStatRow
	if err := cur.All(ctx, &raw); err != nil {
		return nil, errors.Wrap(err, "decode import request stats")
	}

	rows := make([]importrequest.StatRow, 0, len(raw))
	for _, s := range raw {
		rows = append(rows, importrequest.StatRow{
			Status:        importrequest.Status(s.Status),
			Count:         s.Count,
			TotalRows:     s.TotalRows,
			ValidRows:     s.ValidRows,
			InvalidRows:   s.InvalidRows,
			DuplicateRows: s.DuplicateRows,
		})
	}
	return rows, nil
}
