package deletions

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Metadata struct {
	DeletedByUserId *string `bson:"deleted_by_user_id,omitempty"`
}

// Repository archives rows removed from a table so deletions stay auditable.
type Repository[T any] interface {
	Create(context.Context, T, Metadata) error
	Initialize(ctx context.Context) error
}

func NewRepository[T any](typ string, primaryKeyAttributes []string, db *mongo.Database, logger *zap.SugaredLogger) Repository[T] {
	return &deletionsRepository[T]{
		collection:           db.Collection(CollectionName(typ)),
		logger:               logger,
		documentType:         typ,
		primaryKeyAttributes: primaryKeyAttributes,
	}
}

func CollectionName(typ string) string {
	return fmt.Sprintf("%s_deletions", typ)
}

type deletionsRepository[T any] struct {
	collection           *mongo.Collection
	logger               *zap.SugaredLogger
	documentType         string
	primaryKeyAttributes []string
}

func (p *deletionsRepository[T]) Initialize(ctx context.Context) error {
	_, err := p.collection.Indexes().CreateMany(ctx, p.getIndexes())
	return err
}

func (p *deletionsRepository[T]) getIndexes() []mongo.IndexModel {
	var primaryIndexKeys bson.D

	for _, attr := range p.primaryKeyAttributes {
		primaryIndexKeys = append(primaryIndexKeys, primitive.E{
			Key:   fmt.Sprintf("%s.%s", p.documentType, attr),
			Value: 1,
		})
	}

	title := cases.Title(language.English).String(p.documentType)
	return []mongo.IndexModel{
		{
			Keys:    primaryIndexKeys,
			Options: options.Index().SetName(fmt.Sprintf("%sDeletion", title)),
		},
		{
			Keys:    append(bson.D{primitive.E{Key: "deleted_time", Value: 1}}, primaryIndexKeys...),
			Options: options.Index().SetName("DeletedTime"),
		},
	}
}

func (p *deletionsRepository[T]) Create(ctx context.Context, deleted T, meta Metadata) error {
	document := p.prepareDocument(deleted, meta)
	if _, err := p.collection.InsertOne(ctx, document); err != nil {
		return fmt.Errorf("error persisting deleted object in collection %s: %w", p.collection.Name(), err)
	}
	p.logger.Debugw("archived deleted row", "collection", p.collection.Name())
	return nil
}

func (p *deletionsRepository[T]) prepareDocument(deleted T, meta Metadata) bson.M {
	deletion := bson.M{
		"deleted_time": time.Now(),
		p.documentType: deleted,
	}
	if meta.DeletedByUserId != nil {
		deletion["deleted_by_user_id"] = meta.DeletedByUserId
	}
	return deletion
}
