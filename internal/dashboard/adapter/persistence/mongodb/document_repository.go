package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/domain/repository"
	"office-dashboard/internal/shared/database"
	apperrors "office-dashboard/internal/shared/errors"
	"office-dashboard/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

// storedDocument is the on-disk shape: entity fields live under "data" so
// they can never clash with server-managed keys.
type storedDocument struct {
	ID        string                 `bson:"_id"`
	Data      map[string]interface{} `bson:"data"`
	CreatedAt time.Time              `bson:"createdAt"`
	UpdatedAt time.Time              `bson:"updatedAt"`
}

// DocumentRepository stores each tenant in its own database and each kind
// in its own collection.
type DocumentRepository struct {
	tenants *database.TenantManager
	logger  logger.Logger
}

func NewDocumentRepository(tenants *database.TenantManager, log logger.Logger) *DocumentRepository {
	return &DocumentRepository{tenants: tenants, logger: log.WithComponent("mongo-documents")}
}

func (r *DocumentRepository) coll(ctx context.Context, tenantID, kind string) (*mongo.Collection, error) {
	db, err := r.tenants.Database(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("tenant database unavailable").WithCause(err)
	}
	return db.Collection(kind), nil
}

func (r *DocumentRepository) Create(ctx context.Context, tenantID string, doc *model.Document) error {
	c, err := r.coll(ctx, tenantID, doc.Kind)
	if err != nil {
		return err
	}
	_, err = c.InsertOne(ctx, toStored(doc))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s/%s", apperrors.ErrConflict, doc.Kind, doc.ID)
	}
	if err != nil {
		r.logger.WithFields(map[string]interface{}{"kind": doc.Kind, "error": err.Error()}).Error("insert failed")
		return apperrors.NewInfrastructureError("failed to store document").WithCause(err)
	}
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, tenantID, kind, id string) (*model.Document, error) {
	c, err := r.coll(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	var sd storedDocument
	err = c.FindOne(ctx, bson.M{"_id": id}).Decode(&sd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrDocumentNotFound
	}
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to load document").WithCause(err)
	}
	return fromStored(&sd, tenantID, kind), nil
}

func (r *DocumentRepository) Update(ctx context.Context, tenantID string, doc *model.Document) error {
	c, err := r.coll(ctx, tenantID, doc.Kind)
	if err != nil {
		return err
	}
	res, err := c.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{
		"data":      doc.Data,
		"updatedAt": doc.UpdatedAt,
	}})
	if err != nil {
		return apperrors.NewInfrastructureError("failed to update document").WithCause(err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, tenantID, kind, id string) error {
	c, err := r.coll(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperrors.NewInfrastructureError("failed to delete document").WithCause(err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) List(ctx context.Context, tenantID, kind string, q model.Query, searchFields []string) ([]*model.Document, error) {
	c, err := r.coll(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	filter := BuildFilter(q, searchFields)

	dir := 1
	if q.Direction == model.Descending {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: fieldPath(q.OrderBy), Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Offset))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to query documents").WithCause(err)
	}
	defer cur.Close(ctx)
	return r.decodeAll(ctx, cur, tenantID, kind)
}

func (r *DocumentRepository) GetMany(ctx context.Context, tenantID, kind string, ids []string) ([]*model.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	c, err := r.coll(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}
	cur, err := c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to load documents").WithCause(err)
	}
	defer cur.Close(ctx)
	return r.decodeAll(ctx, cur, tenantID, kind)
}

func (r *DocumentRepository) Tenants(ctx context.Context) ([]string, error) {
	tenants, err := r.tenants.Tenants(ctx)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to list tenants").WithCause(err)
	}
	sort.Strings(tenants)
	return tenants, nil
}

func (r *DocumentRepository) decodeAll(ctx context.Context, cur *mongo.Cursor, tenantID, kind string) ([]*model.Document, error) {
	docs := make([]*model.Document, 0)
	for cur.Next(ctx) {
		var sd storedDocument
		if err := cur.Decode(&sd); err != nil {
			r.logger.WithFields(map[string]interface{}{"kind": kind, "error": err.Error()}).Warn("skipping undecodable document")
			continue
		}
		docs = append(docs, fromStored(&sd, tenantID, kind))
	}
	if err := cur.Err(); err != nil {
		return nil, apperrors.NewInfrastructureError("cursor failed").WithCause(err)
	}
	return docs, nil
}

// BuildFilter translates a normalized query into a MongoDB filter.
func BuildFilter(q model.Query, searchFields []string) bson.M {
	var and []bson.M
	for _, f := range q.Filters {
		path := fieldPath(f.Field)
		switch f.Operator {
		case model.OperatorEqual:
			and = append(and, bson.M{path: f.Value})
		case model.OperatorNotEqual:
			and = append(and, bson.M{path: bson.M{"$ne": f.Value}})
		case model.OperatorLessThan:
			and = append(and, bson.M{path: bson.M{"$lt": f.Value}})
		case model.OperatorLessThanOrEqual:
			and = append(and, bson.M{path: bson.M{"$lte": f.Value}})
		case model.OperatorGreaterThan:
			and = append(and, bson.M{path: bson.M{"$gt": f.Value}})
		case model.OperatorGreaterThanOrEqual:
			and = append(and, bson.M{path: bson.M{"$gte": f.Value}})
		case model.OperatorIn:
			and = append(and, bson.M{path: bson.M{"$in": f.Value}})
		}
	}
	if q.Search != "" && len(searchFields) > 0 {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		or := make([]bson.M, 0, len(searchFields))
		for _, s := range searchFields {
			or = append(or, bson.M{fieldPath(s): pattern})
		}
		and = append(and, bson.M{"$or": or})
	}
	switch len(and) {
	case 0:
		return bson.M{}
	case 1:
		return and[0]
	}
	return bson.M{"$and": and}
}

func fieldPath(field string) string {
	switch field {
	case model.KeyID, "":
		return "_id"
	case model.KeyCreatedAt, model.KeyUpdatedAt:
		return field
	}
	return "data." + field
}

func toStored(doc *model.Document) storedDocument {
	return storedDocument{ID: doc.ID, Data: doc.Data, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}
}

func fromStored(sd *storedDocument, tenantID, kind string) *model.Document {
	data := make(map[string]interface{}, len(sd.Data))
	for k, v := range sd.Data {
		data[k] = Normalize(v)
	}
	return &model.Document{
		ID:        sd.ID,
		Kind:      kind,
		TenantID:  tenantID,
		Data:      data,
		CreatedAt: sd.CreatedAt.UTC(),
		UpdatedAt: sd.UpdatedAt.UTC(),
	}
}

// Normalize converts driver types into the plain Go values the rest of
// the service works with.
func Normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.A:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = Normalize(t[i])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i := range t {
			out[i] = Normalize(t[i])
		}
		return out
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = Normalize(val)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = Normalize(e.Value)
		}
		return out
	case int32:
		return int64(t)
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
