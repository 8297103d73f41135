package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/store"
)

const (
	usersCollectionName    = "users"
	sessionsCollectionName = "sessions"
)

type UserRecord struct {
	Id           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash []byte             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (u UserRecord) toUser() User {
	return User{
		Id:        u.Id.Hex(),
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type SessionRecord struct {
	Id        string    `bson:"_id"`
	UserId    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type Repository interface {
	CreateUser(ctx context.Context, email string, passwordHash []byte) (*UserRecord, error)
	FindUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindUser(ctx context.Context, id string) (*UserRecord, error)
	CreateSession(ctx context.Context, session SessionRecord) error
	FindSession(ctx context.Context, id string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
}

func NewRepository(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (Repository, error) {
	repo := &repository{
		users:    db.Collection(usersCollectionName),
		sessions: db.Collection(sessionsCollectionName),
		logger:   logger,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	users    *mongo.Collection
	sessions *mongo.Collection
	logger   *zap.SugaredLogger
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "email", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("UniqueEmail"),
		},
	})
	if err != nil {
		return err
	}

	_, err = r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().
				SetName("SessionUser"),
		},
		{
			Keys: bson.D{
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().
				SetExpireAfterSeconds(0).
				SetName("SessionExpiration"),
		},
	})
	return err
}

func (r *repository) CreateUser(ctx context.Context, email string, passwordHash []byte) (*UserRecord, error) {
	record := UserRecord{
		Email:        normalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	res, err := r.users.InsertOne(ctx, record)
	if err != nil {
		if store.IsDuplicateKeyError(err) {
			return nil, ErrUserAlreadyRegistered
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	record.Id = res.InsertedID.(primitive.ObjectID)
	return &record, nil
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return r.findUser(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *repository) FindUser(ctx context.Context, id string) (*UserRecord, error) {
	objectId, ok := store.ObjectIDFromString(id)
	if !ok {
		return nil, errs.NotFound
	}
	return r.findUser(ctx, bson.M{"_id": objectId})
}

func (r *repository) findUser(ctx context.Context, selector bson.M) (*UserRecord, error) {
	record := &UserRecord{}
	if err := r.users.FindOne(ctx, selector).Decode(record); err != nil {
		if store.IsNotFoundError(err) {
			return nil, errs.NotFound
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}
	return record, nil
}

func (r *repository) CreateSession(ctx context.Context, session SessionRecord) error {
	if _, err := r.sessions.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (r *repository) FindSession(ctx context.Context, id string) (*SessionRecord, error) {
	record := &SessionRecord{}
	if err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(record); err != nil {
		if store.IsNotFoundError(err) {
			return nil, errs.NotFound
		}
		return nil, fmt.Errorf("error finding session: %w", err)
	}
	return record, nil
}

func (r *repository) DeleteSession(ctx context.Context, id string) error {
	res, err := r.sessions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	if res.DeletedCount == 0 {
		r.logger.Debugw("session was already removed", "sessionId", id)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
