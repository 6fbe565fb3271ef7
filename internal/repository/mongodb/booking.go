package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

// booking claims one doctor for one calendar day. The _id is unique, so a
// second active surgery for the same doctor and day fails to insert.
type booking struct {
	ID        string    `bson:"_id"`
	DoctorID  string    `bson:"doctor_id"`
	Day       string    `bson:"day"`
	SurgeryID string    `bson:"surgery_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// BookingKey is the unique key of a doctor's day.
func BookingKey(doctorID, day string) string {
	return doctorID + ":" + day
}

type bookingRepository struct {
	*Store
	loc *time.Location
}

// NewBookingRepository keeps bookings keyed by calendar days in loc.
func NewBookingRepository(store *Store, loc *time.Location) repository.BookingRepository {
	return &bookingRepository{Store: store, loc: loc}
}

func (r *bookingRepository) Reserve(ctx context.Context, surgeryID string, doctorIDs []string, day string) error {
	start := time.Now()
	coll := r.collection(bookingsCollection)

	var inserted, taken []string
	for _, doctorID := range doctorIDs {
		key := BookingKey(doctorID, day)
		_, err := coll.InsertOne(ctx, booking{
			ID:        key,
			DoctorID:  doctorID,
			Day:       day,
			SurgeryID: surgeryID,
			CreatedAt: start.UTC(),
		})
		if err == nil {
			inserted = append(inserted, key)
			continue
		}
		if !mongo.IsDuplicateKeyError(err) {
			r.rollback(ctx, inserted)
			r.observe(bookingsCollection, "reserve", start, err)
			return fmt.Errorf("failed to reserve booking: %w", err)
		}

		held, reclaimed, err := r.holdOrReclaim(ctx, key, surgeryID, start.UTC())
		if err != nil {
			r.rollback(ctx, inserted)
			r.observe(bookingsCollection, "reserve", start, err)
			return err
		}
		switch {
		case reclaimed:
			inserted = append(inserted, key)
		case !held:
			taken = append(taken, doctorID)
		}
	}

	if len(taken) > 0 {
		r.rollback(ctx, inserted)
		r.observe(bookingsCollection, "reserve", start, nil)
		return &repository.BookingTakenError{DoctorIDs: taken, Day: day}
	}
	r.observe(bookingsCollection, "reserve", start, nil)
	return nil
}

func (r *bookingRepository) Prune(ctx context.Context, surgeryID string, doctorIDs []string, day string) error {
	keep := make([]string, 0, len(doctorIDs))
	for _, doctorID := range doctorIDs {
		keep = append(keep, BookingKey(doctorID, day))
	}
	return r.delete(ctx, "prune", bson.M{"surgery_id": surgeryID, "_id": bson.M{"$nin": keep}})
}

func (r *bookingRepository) Release(ctx context.Context, surgeryID string) error {
	return r.delete(ctx, "release", bson.M{"surgery_id": surgeryID})
}

func (r *bookingRepository) delete(ctx context.Context, operation string, filter bson.M) error {
	start := time.Now()
	_, err := r.collection(bookingsCollection).DeleteMany(ctx, filter)
	r.observe(bookingsCollection, operation, start, err)
	if err != nil {
		return fmt.Errorf("failed to %s bookings: %w", operation, err)
	}
	return nil
}

// holdOrReclaim runs after an insert of key lost to an existing booking.
// It reports whether surgeryID already holds key, or whether it reclaimed
// key from a holder that no longer backs it.
func (r *bookingRepository) holdOrReclaim(ctx context.Context, key, surgeryID string, now time.Time) (held, reclaimed bool, err error) {
	var existing booking
	err = r.collection(bookingsCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Released between the insert and this read; report it as taken so
		// the caller retries with a fresh view.
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to read booking: %w", err)
	}
	if existing.SurgeryID == surgeryID {
		return true, false, nil
	}
	if now.Sub(existing.CreatedAt) < repository.StaleBookingAge {
		return false, false, nil
	}

	holder, err := r.holder(ctx, existing.SurgeryID)
	if err != nil {
		return false, false, err
	}
	if !repository.Reclaimable(holder, existing.DoctorID, existing.Day, existing.CreatedAt, now, r.loc) {
		return false, false, nil
	}

	// The filter on the old holder loses to anyone who reclaimed it first.
	res, err := r.collection(bookingsCollection).UpdateOne(ctx,
		bson.M{"_id": key, "surgery_id": existing.SurgeryID},
		bson.M{"$set": bson.M{"surgery_id": surgeryID, "created_at": now}},
	)
	if err != nil {
		return false, false, fmt.Errorf("failed to reclaim booking: %w", err)
	}
	return false, res.ModifiedCount == 1, nil
}

// holder returns the surgery holding a booking, or nil when it is gone.
func (r *bookingRepository) holder(ctx context.Context, surgeryID string) (*model.Surgery, error) {
	var surgery model.Surgery
	err := r.collection(surgeriesCollection).FindOne(ctx, bson.M{"_id": surgeryID}).Decode(&surgery)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read booking holder: %w", err)
	}
	return &surgery, nil
}

func (r *bookingRepository) rollback(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	// Best effort; a leftover booking only blocks its own doctor and day.
	_, _ = r.collection(bookingsCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
}
