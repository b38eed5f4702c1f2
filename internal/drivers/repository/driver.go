package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	driverserrors "navette/internal/drivers/errors"
	"navette/pkg/config"
	"navette/pkg/model"
)

const (
	CollectionName = "Drivers"
)

type mongoDriverRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

type DriverRepository interface {
	Create(ctx context.Context, driver *model.Driver) error
	FindByID(ctx context.Context, id string) (*model.Driver, error)
	FindByEmail(ctx context.Context, email string) (*model.Driver, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Driver, error)
	FindActive(ctx context.Context) ([]*model.Driver, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, update *model.DriverUpdate) (*model.Driver, error)
	Delete(ctx context.Context, id string) error
	RegisterFailedLogin(ctx context.Context, id string, lockUntil *time.Time) error
	ResetLoginAttempts(ctx context.Context, id string) error
	UpdateRatingStats(ctx context.Context, id string, rating float64, completedRides, totalRides int) error
	IncrementEarnings(ctx context.Context, id string, amount float64) error
	EnsureIndexes(ctx context.Context) error
}

func NewMongoDriverRepository(cfg *config.Config) DriverRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDriverRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoDriverRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoDriverRepository) Create(ctx context.Context, driver *model.Driver) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	driver.CreatedAt = now
	driver.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, driver)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return driverserrors.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create driver: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		driver.ID = oid.Hex()
	}
	return nil
}

func (r *mongoDriverRepository) FindByID(ctx context.Context, id string) (*model.Driver, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	var driver model.Driver
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, driverserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find driver: %w", err)
	}

	return &driver, nil
}

func (r *mongoDriverRepository) FindByEmail(ctx context.Context, email string) (*model.Driver, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var driver model.Driver
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&driver)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, driverserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find driver by email: %w", err)
	}

	return &driver, nil
}

func (r *mongoDriverRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Driver, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeDrivers(ctx, cursor)
}

// FindActive returns the public roster: active drivers with only the
// fields the unauthenticated listing exposes.
func (r *mongoDriverRepository) FindActive(ctx context.Context) ([]*model.Driver, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{
			"first_name": 1,
			"last_name":  1,
			"vehicle":    1,
			"rating":     1,
		}).
		SetSort(bson.D{{Key: "rating", Value: -1}})

	cursor, err := r.collection.Find(ctx, bson.M{"status": model.DriverActive}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list active drivers: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeDrivers(ctx, cursor)
}

func (r *mongoDriverRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count drivers: %w", err)
	}
	return count, nil
}

func (r *mongoDriverRepository) Update(ctx context.Context, id string, update *model.DriverUpdate) (*model.Driver, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	fields := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	if update.FirstName != "" {
		fields["first_name"] = update.FirstName
	}
	if update.LastName != "" {
		fields["last_name"] = update.LastName
	}
	if update.Phone != "" {
		fields["phone"] = update.Phone
	}
	if update.Status != "" {
		fields["status"] = update.Status
	}
	if update.Vehicle != nil {
		fields["vehicle"] = update.Vehicle
	}
	if update.Professional != nil {
		fields["professional"] = update.Professional
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Driver
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": fields}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, driverserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update driver: %w", err)
	}

	return &updated, nil
}

func (r *mongoDriverRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete driver: %w", err)
	}
	if result.DeletedCount == 0 {
		return driverserrors.ErrNotFound
	}

	return nil
}

// RegisterFailedLogin increments the failure counter and, once the
// threshold is crossed, stamps the lockout window in the same update.
func (r *mongoDriverRepository) RegisterFailedLogin(ctx context.Context, id string, lockUntil *time.Time) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	update := bson.M{"$inc": bson.M{"failed_login_attempts": 1}}
	if lockUntil != nil {
		update["$set"] = bson.M{"locked_until": *lockUntil}
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update); err != nil {
		return fmt.Errorf("failed to register failed login: %w", err)
	}
	return nil
}

// ResetLoginAttempts clears the failure counter and records the
// successful login.
func (r *mongoDriverRepository) ResetLoginAttempts(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"failed_login_attempts": 0,
			"last_login":            time.Now().UTC().Truncate(time.Millisecond),
		},
		"$unset": bson.M{"locked_until": ""},
	}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

func (r *mongoDriverRepository) UpdateRatingStats(ctx context.Context, id string, rating float64, completedRides, totalRides int) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	update := bson.M{"$set": bson.M{
		"rating":          rating,
		"completed_rides": completedRides,
		"total_rides":     totalRides,
		"updated_at":      time.Now().UTC().Truncate(time.Millisecond),
	}}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update); err != nil {
		return fmt.Errorf("failed to update rating stats: %w", err)
	}
	return nil
}

// IncrementEarnings uses an atomic increment so concurrent completions
// cannot lose an update.
func (r *mongoDriverRepository) IncrementEarnings(ctx context.Context, id string, amount float64) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", driverserrors.ErrInvalidID, id)
	}

	update := bson.M{"$inc": bson.M{"total_earnings": amount}}

	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update); err != nil {
		return fmt.Errorf("failed to increment earnings: %w", err)
	}
	return nil
}

func (r *mongoDriverRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create driver indexes: %w", err)
	}
	return nil
}

func decodeDrivers(ctx context.Context, cursor *mongo.Cursor) ([]*model.Driver, error) {
	drivers := []*model.Driver{}
	for cursor.Next(ctx) {
		var d model.Driver
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode driver: %w", err)
		}
		drivers = append(drivers, &d)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return drivers, nil
}
