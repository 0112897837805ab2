package users

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (AdminUser, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByUsername(ctx context.Context, username string) (AdminUser, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (AdminUser, error) {
	var u AdminUser
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return AdminUser{}, ErrNotFound
		}
		return AdminUser{}, err
	}
	return u, nil
}

func (r *MongoRepository) Create(ctx context.Context, u AdminUser) error {
	_, err := r.col.InsertOne(ctx, u)
	return err
}
