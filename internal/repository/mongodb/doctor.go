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
)

type doctorRepository struct {
	*Store
}

func NewDoctorRepository(store *Store) repository.DoctorRepository {
	return &doctorRepository{store}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now

	_, err := r.collection(doctorsCollection).InsertOne(ctx, doctor)
	r.observe(doctorsCollection, "insert", now, err)
	if err != nil {
		return fmt.Errorf("failed to insert doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id string) (*model.Doctor, error) {
	start := time.Now()
	var doctor model.Doctor
	err := notFound(r.collection(doctorsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doctor))
	r.observe(doctorsCollection, "find_one", start, err)
	if err != nil {
		return nil, err
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	start := time.Now()
	doctor.UpdatedAt = time.Now().UTC()

	res, err := r.collection(doctorsCollection).ReplaceOne(ctx, bson.M{"_id": doctor.ID}, doctor)
	if err == nil && res.MatchedCount == 0 {
		err = repository.ErrNotFound
	}
	r.observe(doctorsCollection, "replace", start, err)
	return err
}

func (r *doctorRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	res, err := r.collection(doctorsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err == nil && res.DeletedCount == 0 {
		err = repository.ErrNotFound
	}
	r.observe(doctorsCollection, "delete", start, err)
	return err
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	return r.find(ctx, bson.M{})
}

func (r *doctorRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Doctor, error) {
	if len(ids) == 0 {
		return []*model.Doctor{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *doctorRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := r.collection(doctorsCollection).CountDocuments(ctx, bson.M{})
	r.observe(doctorsCollection, "count", start, err)
	return n, err
}

func (r *doctorRepository) find(ctx context.Context, filter bson.M) ([]*model.Doctor, error) {
	start := time.Now()
	cursor, err := r.collection(doctorsCollection).Find(ctx, filter, options.Find().SetSort(byName))
	if err != nil {
		r.observe(doctorsCollection, "find", start, err)
		return nil, fmt.Errorf("failed to query doctors: %w", err)
	}

	doctors := []*model.Doctor{}
	err = cursor.All(ctx, &doctors)
	r.observe(doctorsCollection, "find", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}
	return doctors, nil
}
