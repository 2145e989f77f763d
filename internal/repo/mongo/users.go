package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/taskdeck/internal/domain/user"
	"github.com/geocoder89/taskdeck/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"password_hash,omitempty"`
	Provider       string    `bson:"provider"`
	ProviderUserID string    `bson:"provider_user_id,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func toDoc(u user.User) userDoc {
	return userDoc{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Provider:       u.Provider,
		ProviderUserID: u.ProviderUserID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d userDoc) toUser() user.User {
	return user.User{
		ID:             d.ID,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		Provider:       d.Provider,
		ProviderUserID: d.ProviderUserID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// UsersRepo keeps credentials in a MongoDB collection.
type UsersRepo struct {
	col  *mongo.Collection
	prom *observability.Prom
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{col: db.Collection("users"), prom: prom}
}

// EnsureIndexes creates the unique email index the repo relies on for
// duplicate detection.
func (r *UsersRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	if err != nil {
		return fmt.Errorf("mongo users index: %w", err)
	}
	return nil
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M) (user.User, error) {
	var doc userDoc

	err := r.prom.ObserveDB(op, func() error {
		return r.col.FindOne(ctx, filter).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return doc.toUser(), nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": user.NormalizeEmail(email)})
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": id})
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.col.InsertOne(ctx, toDoc(u))
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("mongo insert: %w", err)
	}
	return u, nil
}

// FindOrCreate upserts on email with $setOnInsert so an existing account is
// never modified, then reads back the stored document.
func (r *UsersRepo) FindOrCreate(ctx context.Context, u user.User) (user.User, bool, error) {
	var created bool

	err := r.prom.ObserveDB("users.find_or_create", func() error {
		res, err := r.col.UpdateOne(ctx,
			bson.M{"email": u.Email},
			bson.M{"$setOnInsert": toDoc(u)},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			// two upserts racing on the unique index: the loser reads the winner
			if mongo.IsDuplicateKeyError(err) {
				return nil
			}
			return err
		}
		created = res.UpsertedCount == 1
		return nil
	})
	if err != nil {
		return user.User{}, false, err
	}

	stored, err := r.GetByEmail(ctx, u.Email)
	if err != nil {
		return user.User{}, false, err
	}
	return stored, created, nil
}
