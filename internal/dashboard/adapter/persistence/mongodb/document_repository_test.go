package mongodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"office-dashboard/internal/dashboard/adapter/persistence/mongodb"
	"office-dashboard/internal/dashboard/domain/model"
	"office-dashboard/internal/dashboard/testutil"
	"office-dashboard/internal/shared/database"
	"office-dashboard/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestBuildFilter(t *testing.T) {
	q := model.Query{
		Filters: []model.Filter{
			{Field: "status", Operator: model.OperatorEqual, Value: "sent"},
			{Field: "amount", Operator: model.OperatorGreaterThan, Value: 10.0},
			{Field: "id", Operator: model.OperatorIn, Value: []interface{}{"a", "b"}},
		},
		Search: "a.b",
	}
	f := mongodb.BuildFilter(q, []string{"number"})
	and := f["$and"].([]bson.M)
	assert.Len(t, and, 4)
	assert.Equal(t, bson.M{"data.status": "sent"}, and[0])
	assert.Equal(t, bson.M{"data.amount": bson.M{"$gt": 10.0}}, and[1])
	assert.Equal(t, bson.M{"_id": bson.M{"$in": []interface{}{"a", "b"}}}, and[2])
	or := and[3]["$or"].([]bson.M)
	assert.Equal(t, primitive.Regex{Pattern: `a\.b`, Options: "i"}, or[0]["data.number"])

	assert.Equal(t, bson.M{}, mongodb.BuildFilter(model.Query{}, nil))
	assert.Equal(t, bson.M{"createdAt": bson.M{"$lt": 1}},
		mongodb.BuildFilter(model.Query{Filters: []model.Filter{{Field: "createdAt", Operator: "<", Value: 1}}}, nil))
}

func TestNormalize(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := bson.M{
		"due":   primitive.NewDateTimeFromTime(when),
		"tags":  primitive.A{"x", int32(2)},
		"inner": primitive.D{{Key: "k", Value: "v"}},
	}
	out := mongodb.Normalize(in).(map[string]interface{})
	assert.Equal(t, when, out["due"])
	assert.Equal(t, []interface{}{"x", int64(2)}, out["tags"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, out["inner"])
}

func TestDocumentRepositoryContract(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skip("MongoDB not available for testing")
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skip("MongoDB not available for testing")
	}
	defer client.Disconnect(context.Background())

	tm := database.NewTenantManager(client, database.TenantConfig{DatabasePrefix: "office_test_"}, logger.Nop())
	tenantA := "contract-a-" + time.Now().Format("150405")
	tenantB := "contract-b-" + time.Now().Format("150405")
	defer func() {
		_ = tm.Drop(context.Background(), tenantA)
		_ = tm.Drop(context.Background(), tenantB)
	}()

	repo := mongodb.NewDocumentRepository(tm, logger.Nop())
	testutil.RunDocumentRepositoryContract(t, repo, tenantA, tenantB)
}
