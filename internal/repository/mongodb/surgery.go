package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/scheduling"
)

type surgeryRepository struct {
	*Store
}

func NewSurgeryRepository(store *Store) repository.SurgeryRepository {
	return &surgeryRepository{store}
}

// surgeryFilter translates filters into a query document. A zero or
// unbounded window places no constraint on the date.
func surgeryFilter(f repository.SurgeryFilters) bson.M {
	filter := bson.M{}
	if !f.Window.Start.IsZero() && !f.Window.IsUnbounded() {
		filter["date"] = bson.M{"$gte": f.Window.Start, "$lt": f.Window.End}
	}
	if f.Active != nil {
		filter["active"] = *f.Active
	}
	if len(f.DoctorIDs) > 0 {
		filter["doctor_ids"] = bson.M{"$in": f.DoctorIDs}
	}
	if f.PatientID != "" {
		filter["patient_id"] = f.PatientID
	}
	return filter
}

func (r *surgeryRepository) Create(ctx context.Context, surgery *model.Surgery) error {
	if surgery.ID == "" {
		surgery.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	surgery.CreatedAt = now
	surgery.UpdatedAt = now

	_, err := r.collection(surgeriesCollection).InsertOne(ctx, surgery)
	r.observe(surgeriesCollection, "insert", now, err)
	if err != nil {
		return fmt.Errorf("failed to insert surgery: %w", err)
	}
	return nil
}

func (r *surgeryRepository) Get(ctx context.Context, id string) (*model.Surgery, error) {
	start := time.Now()
	var surgery model.Surgery
	err := notFound(r.collection(surgeriesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&surgery))
	r.observe(surgeriesCollection, "find_one", start, err)
	if err != nil {
		return nil, err
	}
	return &surgery, nil
}

func (r *surgeryRepository) Update(ctx context.Context, surgery *model.Surgery) error {
	start := time.Now()
	surgery.UpdatedAt = time.Now().UTC()

	res, err := r.collection(surgeriesCollection).ReplaceOne(ctx, bson.M{"_id": surgery.ID}, surgery)
	if err == nil && res.MatchedCount == 0 {
		err = repository.ErrNotFound
	}
	r.observe(surgeriesCollection, "replace", start, err)
	return err
}

func (r *surgeryRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	res, err := r.collection(surgeriesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err == nil && res.DeletedCount == 0 {
		err = repository.ErrNotFound
	}
	r.observe(surgeriesCollection, "delete", start, err)
	return err
}

func (r *surgeryRepository) List(ctx context.Context, filters repository.SurgeryFilters) ([]*model.Surgery, error) {
	return r.find(ctx, surgeryFilter(filters))
}

func (r *surgeryRepository) FindActiveOnDay(ctx context.Context, window scheduling.Window) ([]*model.Surgery, error) {
	active := true
	return r.find(ctx, surgeryFilter(repository.SurgeryFilters{Window: window, Active: &active}))
}

func (r *surgeryRepository) FindActive(ctx context.Context) ([]*model.Surgery, error) {
	return r.find(ctx, bson.M{"active": true})
}

func (r *surgeryRepository) ListByDoctor(ctx context.Context, doctorID string) ([]*model.Surgery, error) {
	return r.find(ctx, bson.M{"doctor_ids": doctorID})
}

func (r *surgeryRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.Surgery, error) {
	return r.find(ctx, bson.M{"patient_id": patientID})
}

func (r *surgeryRepository) Count(ctx context.Context, filters repository.SurgeryFilters) (int64, error) {
	start := time.Now()
	n, err := r.collection(surgeriesCollection).CountDocuments(ctx, surgeryFilter(filters))
	r.observe(surgeriesCollection, "count", start, err)
	return n, err
}

func (r *surgeryRepository) find(ctx context.Context, filter bson.M) ([]*model.Surgery, error) {
	start := time.Now()
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "title", Value: 1}})
	cursor, err := r.collection(surgeriesCollection).Find(ctx, filter, opts)
	if err != nil {
		r.observe(surgeriesCollection, "find", start, err)
		return nil, fmt.Errorf("failed to query surgeries: %w", err)
	}

	surgeries := []*model.Surgery{}
	err = cursor.All(ctx, &surgeries)
	r.observe(surgeriesCollection, "find", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to decode surgeries: %w", err)
	}
	return surgeries, nil
}
