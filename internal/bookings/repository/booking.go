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

	bookingserrors "navette/internal/bookings/errors"
	"navette/pkg/config"
	mongotx "navette/pkg/db/mongo"
	"navette/pkg/model"
)

const (
	CollectionName = "Bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	CreatePair(ctx context.Context, first, second *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, status string) (int64, error)
	FindByGroup(ctx context.Context, groupID string) ([]*model.Booking, error)
	FindByDriver(ctx context.Context, driverID string, statuses []string) ([]*model.Booking, error)
	FindOwnedActive(ctx context.Context, id, driverID string) (*model.Booking, error)
	FindCompletedInRange(ctx context.Context, driverID string, from, to time.Time) ([]*model.Booking, error)
	UpdateFields(ctx context.Context, id string, fields bson.M) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	CountByDriverAndStatuses(ctx context.Context, driverID string, statuses []string) (int64, error)
	TotalCompletedEarnings(ctx context.Context, driverID string) (float64, error)
	EnsureIndexes(ctx context.Context) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it is a session
// context, which cannot be wrapped without breaking transaction
// semantics.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithTimeout(ctx, time.Until(deadline))
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

// CreatePair inserts two linked bookings inside a single transaction so
// a crash cannot leave an orphaned group id.
func (r *mongoBookingRepository) CreatePair(ctx context.Context, first, second *model.Booking) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := r.Create(sessCtx, first); err != nil {
			return err
		}
		return r.Create(sessCtx, second)
	})
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{
			{Key: "journey.outbound.date", Value: 1},
			{Key: "journey.outbound.pickup_time", Value: 1},
			{Key: "journey.inbound.date", Value: 1},
		}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

func (r *mongoBookingRepository) Count(ctx context.Context, status string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) FindByGroup(ctx context.Context, groupID string) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"booking_group_id": groupID})
	if err != nil {
		return nil, fmt.Errorf("failed to find booking group: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

func (r *mongoBookingRepository) FindByDriver(ctx context.Context, driverID string, statuses []string) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"driver_id": driverID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find driver bookings: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

// FindOwnedActive resolves a booking by id and assigned driver,
// excluding completed bookings. Used by the completion path: a second
// completion attempt simply does not match.
func (r *mongoBookingRepository) FindOwnedActive(ctx context.Context, id, driverID string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":       objectID,
		"driver_id": driverID,
		"status":    bson.M{"$ne": model.StatusCompleted},
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindCompletedInRange(ctx context.Context, driverID string, from, to time.Time) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"driver_id":    driverID,
		"status":       model.StatusCompleted,
		"completed_at": bson.M{"$gte": from, "$lte": to},
	}

	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find completed bookings: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeBookings(ctx, cursor)
}

// UpdateFields applies a partial update and returns the updated
// document. updated_at is always refreshed.
func (r *mongoBookingRepository) UpdateFields(ctx context.Context, id string, fields bson.M) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	fields["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Booking
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": fields}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	return &updated, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) CountByDriverAndStatuses(ctx context.Context, driverID string, statuses []string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"driver_id": driverID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count driver bookings: %w", err)
	}
	return count, nil
}

// TotalCompletedEarnings sums driver earnings over completed bookings
// with a grouping pipeline, keeping the reduction in the store.
func (r *mongoBookingRepository) TotalCompletedEarnings(ctx context.Context, driverID string) (float64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"driver_id": driverID,
			"status":    model.StatusCompleted,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$driver_earnings"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate earnings: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode earnings aggregation: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *mongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "payment_method", Value: 1}}},
		{Keys: bson.D{{Key: "client.email", Value: 1}}},
		{
			Keys:    bson.D{{Key: "booking_group_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func decodeBookings(ctx context.Context, cursor *mongo.Cursor) ([]*model.Booking, error) {
	bookings := []*model.Booking{}
	for cursor.Next(ctx) {
		var b model.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, &b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}
