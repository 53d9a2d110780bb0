package users

import (
	"context"
	"errors"
	"time"

	"github.com/picload/picload/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned by mutating operations when the target user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateFilename is returned by AppendImages when an incoming
	// filename is already present in the user's image list.
	ErrDuplicateFilename = errors.New("duplicate image filename")
)

// UserRepository defines persistence operations for users.
// Image-list mutations are targeted (append, remove-by-membership) so
// concurrent requests never race on a whole-document overwrite.
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	AppendImages(ctx context.Context, id string, refs []models.ImageRef) (*models.User, error)
	RemoveImagesByFilename(ctx context.Context, id string, filenames []string) (*models.User, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection.
// An email unique index is ensured up front (idempotent).
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Images == nil {
		u.Images = []models.ImageRef{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// AppendImages pushes refs onto the image list in arrival order.
// The filter excludes documents already holding any incoming filename,
// so the uniqueness rule is enforced in the same atomic update. A batch
// repeating a filename within itself would slip past that filter, so it
// is rejected up front.
func (r *MongoUserRepository) AppendImages(ctx context.Context, id string, refs []models.ImageRef) (*models.User, error) {
	filenames := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.Filename] {
			return nil, ErrDuplicateFilename
		}
		seen[ref.Filename] = true
		filenames = append(filenames, ref.Filename)
	}
	filter := bson.M{
		"_id":             id,
		"images.filename": bson.M{"$nin": filenames},
	}
	update := bson.M{
		"$push": bson.M{"images": bson.M{"$each": refs}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// distinguish a missing user from a filename collision
			existing, ferr := r.FindByID(ctx, id)
			if ferr != nil {
				return nil, ferr
			}
			if existing == nil {
				return nil, ErrNotFound
			}
			return nil, ErrDuplicateFilename
		}
		return nil, err
	}
	return &updated, nil
}

// RemoveImagesByFilename pulls every entry whose filename is in the
// requested set. Filenames not present are no-ops.
func (r *MongoUserRepository) RemoveImagesByFilename(ctx context.Context, id string, filenames []string) (*models.User, error) {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$pull": bson.M{"images": bson.M{"filename": bson.M{"$in": filenames}}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}
