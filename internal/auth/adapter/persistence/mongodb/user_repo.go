package mongodb

import (
	"context"
	"errors"
	"fmt"

	"office-dashboard/internal/auth/domain/model"
	"office-dashboard/internal/auth/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAuthRepository implements AuthRepository on the shared auth database.
type MongoAuthRepository struct {
	usersCollection   *mongo.Collection
	tenantsCollection *mongo.Collection
}

var _ repository.AuthRepository = (*MongoAuthRepository)(nil)

// NewMongoAuthRepository creates the repository and its indexes.
func NewMongoAuthRepository(ctx context.Context, db *mongo.Database) (*MongoAuthRepository, error) {
	repo := &MongoAuthRepository{
		usersCollection:   db.Collection("users"),
		tenantsCollection: db.Collection("tenants"),
	}

	_, err := repo.usersCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "createdAt", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create user indexes: %w", err)
	}
	return repo, nil
}

func (r *MongoAuthRepository) CreateTenant(ctx context.Context, tenant *model.Tenant) error {
	if tenant == nil {
		return errors.New("tenant cannot be nil")
	}
	if _, err := r.tenantsCollection.InsertOne(ctx, tenant); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrTenantExists
		}
		return err
	}
	return nil
}

func (r *MongoAuthRepository) GetTenant(ctx context.Context, id string) (*model.Tenant, error) {
	var tenant model.Tenant
	err := r.tenantsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&tenant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *MongoAuthRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if _, err := r.usersCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrUserExists
		}
		return err
	}
	return nil
}

func (r *MongoAuthRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	return r.findUser(ctx, bson.M{"email": email})
}

func (r *MongoAuthRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("user id cannot be empty")
	}
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *MongoAuthRepository) ListUsers(ctx context.Context, tenantID string) ([]*model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.usersCollection.Find(ctx, bson.M{"tenantId": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]*model.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *MongoAuthRepository) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var user model.User
	if err := r.usersCollection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
