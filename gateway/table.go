package gateway

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/deletions"
	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/store"
)

const ownerIdField = "owner_id"

//go:generate mockgen -source=./table.go -destination=./test/mock_table.go -package test Table

// Table is a typed, table-scoped view of the backend. Every call is a fresh round trip.
type Table[T any, P any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Insert(ctx context.Context, record T) (*T, error)
	Update(ctx context.Context, id string, patch P) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Mapper translates between a domain record (camelCase) and its stored row (snake_case).
// Each entity has exactly one Mapper.
type Mapper[T any, R any, P any] interface {
	ToRow(ownerId string, record T) (R, error)
	FromRow(row R) T
	ToUpdate(patch P) (bson.M, error)
}

type CollectionOptions[R any] struct {
	Indexes      []mongo.IndexModel
	Sort         []store.Sort
	BeforeInsert func(ctx context.Context, ownerId string, row *R) error
	AfterInsert  func(ctx context.Context, ownerId string, row R)
	// BeforeDelete runs before the row is removed. An error aborts the delete.
	BeforeDelete func(ctx context.Context, ownerId string, id primitive.ObjectID) error
	Deletions    deletions.Repository[R]
}

type Collection[T any, R any, P any] struct {
	name       string
	collection *mongo.Collection
	mapper     Mapper[T, R, P]
	opts       CollectionOptions[R]
	logger     *zap.SugaredLogger
}

var _ Table[struct{}, struct{}] = &Collection[struct{}, struct{}, struct{}]{}

func NewCollection[T any, R any, P any](db *mongo.Database, name string, mapper Mapper[T, R, P], opts CollectionOptions[R], logger *zap.SugaredLogger) *Collection[T, R, P] {
	return &Collection[T, R, P]{
		name:       name,
		collection: db.Collection(name),
		mapper:     mapper,
		opts:       opts,
		logger:     logger,
	}
}

func (c *Collection[T, R, P]) Name() string {
	return c.name
}

func (c *Collection[T, R, P]) Initialize(ctx context.Context) error {
	indexes := append([]mongo.IndexModel{
		{
			Keys:    bson.D{{Key: ownerIdField, Value: 1}},
			Options: options.Index().SetName("Owner"),
		},
	}, c.opts.Indexes...)
	_, err := c.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (c *Collection[T, R, P]) List(ctx context.Context) ([]T, error) {
	owner, err := c.owner(ctx, "list")
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(c.opts.Sort) > 0 {
		sort := bson.D{}
		for _, s := range c.opts.Sort {
			sort = append(sort, bson.E{Key: s.Attribute, Value: s.Order()})
		}
		opts.SetSort(sort)
	}
	cursor, err := c.collection.Find(ctx, bson.M{ownerIdField: owner}, opts)
	if err != nil {
		return nil, remoteError(c.name, "list", fmt.Errorf("error listing %s: %w", c.name, err))
	}

	var rows []R
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, remoteError(c.name, "list", fmt.Errorf("error decoding %s list: %w", c.name, err))
	}

	records := make([]T, 0, len(rows))
	for _, row := range rows {
		records = append(records, c.mapper.FromRow(row))
	}
	return records, nil
}

func (c *Collection[T, R, P]) Get(ctx context.Context, id string) (*T, error) {
	owner, err := c.owner(ctx, "get")
	if err != nil {
		return nil, err
	}
	selector, ok := c.selector(owner, id)
	if !ok {
		return nil, notFoundError(c.name, "get", id)
	}

	var row R
	if err := c.collection.FindOne(ctx, selector).Decode(&row); err != nil {
		if store.IsNotFoundError(err) {
			return nil, notFoundError(c.name, "get", id)
		}
		return nil, remoteError(c.name, "get", err)
	}

	record := c.mapper.FromRow(row)
	return &record, nil
}

func (c *Collection[T, R, P]) Insert(ctx context.Context, record T) (*T, error) {
	owner, err := c.owner(ctx, "insert")
	if err != nil {
		return nil, err
	}

	row, err := c.mapper.ToRow(owner, record)
	if err != nil {
		return nil, NewRemoteError(c.name, "insert", errs.BadRequest, err.Error())
	}
	if c.opts.BeforeInsert != nil {
		if err := c.opts.BeforeInsert(ctx, owner, &row); err != nil {
			return nil, remoteError(c.name, "insert", err)
		}
	}

	res, err := c.collection.InsertOne(ctx, row)
	if err != nil {
		return nil, remoteError(c.name, "insert", fmt.Errorf("error creating %s row: %w", c.name, err))
	}

	var inserted R
	if err := c.collection.FindOne(ctx, bson.M{"_id": res.InsertedID}).Decode(&inserted); err != nil {
		return nil, remoteError(c.name, "insert", err)
	}
	if c.opts.AfterInsert != nil {
		c.opts.AfterInsert(ctx, owner, inserted)
	}

	result := c.mapper.FromRow(inserted)
	return &result, nil
}

func (c *Collection[T, R, P]) Update(ctx context.Context, id string, patch P) (*T, error) {
	owner, err := c.owner(ctx, "update")
	if err != nil {
		return nil, err
	}
	selector, ok := c.selector(owner, id)
	if !ok {
		return nil, notFoundError(c.name, "update", id)
	}

	update, err := c.mapper.ToUpdate(patch)
	if err != nil {
		return nil, NewRemoteError(c.name, "update", errs.BadRequest, err.Error())
	}
	if len(update) == 0 {
		return c.Get(ctx, id)
	}

	var row R
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = c.collection.FindOneAndUpdate(ctx, selector, bson.M{"$set": update}, opts).Decode(&row)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, notFoundError(c.name, "update", id)
		}
		return nil, remoteError(c.name, "update", fmt.Errorf("error updating %s row: %w", c.name, err))
	}

	record := c.mapper.FromRow(row)
	return &record, nil
}

func (c *Collection[T, R, P]) Delete(ctx context.Context, id string) error {
	owner, err := c.owner(ctx, "delete")
	if err != nil {
		return err
	}
	selector, ok := c.selector(owner, id)
	if !ok {
		return notFoundError(c.name, "delete", id)
	}
	if c.opts.BeforeDelete != nil {
		if err := c.opts.BeforeDelete(ctx, owner, selector["_id"].(primitive.ObjectID)); err != nil {
			return err
		}
	}

	var row R
	if err := c.collection.FindOneAndDelete(ctx, selector).Decode(&row); err != nil {
		if store.IsNotFoundError(err) {
			return notFoundError(c.name, "delete", id)
		}
		return remoteError(c.name, "delete", err)
	}

	if c.opts.Deletions != nil {
		if err := c.opts.Deletions.Create(ctx, row, deletions.Metadata{DeletedByUserId: &owner}); err != nil {
			c.logger.Warnw("unable to archive deleted row", "table", c.name, "id", id, "error", err)
		}
	}
	return nil
}

func (c *Collection[T, R, P]) owner(ctx context.Context, op string) (string, error) {
	authData := auth.GetAuthData(ctx)
	if authData == nil || authData.SubjectId == "" {
		return "", rowLevelSecurityError(c.name, op)
	}
	return authData.SubjectId, nil
}

func (c *Collection[T, R, P]) selector(owner, id string) (bson.M, bool) {
	objectId, ok := store.ObjectIDFromString(id)
	if !ok {
		return nil, false
	}
	return bson.M{"_id": objectId, ownerIdField: owner}, true
}
