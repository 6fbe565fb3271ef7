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

type patientRepository struct {
	*Store
}

func NewPatientRepository(store *Store) repository.PatientRepository {
	return &patientRepository{store}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	_, err := r.collection(patientsCollection).InsertOne(ctx, patient)
	r.observe(patientsCollection, "insert", now, err)
	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	start := time.Now()
	var patient model.Patient
	err := notFound(r.collection(patientsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&patient))
	r.observe(patientsCollection, "find_one", start, err)
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	start := time.Now()
	patient.UpdatedAt = time.Now().UTC()

	res, err := r.collection(patientsCollection).ReplaceOne(ctx, bson.M{"_id": patient.ID}, patient)
	if err == nil && res.MatchedCount == 0 {
		err = repository.ErrNotFound
	}
	r.observe(patientsCollection, "replace", start, err)
	return err
}

func (r *patientRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	res, err := r.collection(patientsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err == nil && res.DeletedCount == 0 {
		err = repository.ErrNotFound
	}
	r.observe(patientsCollection, "delete", start, err)
	return err
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	return r.find(ctx, bson.M{})
}

func (r *patientRepository) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := r.collection(patientsCollection).CountDocuments(ctx, bson.M{})
	r.observe(patientsCollection, "count", start, err)
	return n, err
}

func (r *patientRepository) find(ctx context.Context, filter bson.M) ([]*model.Patient, error) {
	start := time.Now()
	cursor, err := r.collection(patientsCollection).Find(ctx, filter, options.Find().SetSort(byName))
	if err != nil {
		r.observe(patientsCollection, "find", start, err)
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}

	patients := []*model.Patient{}
	err = cursor.All(ctx, &patients)
	r.observe(patientsCollection, "find", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patients: %w", err)
	}
	return patients, nil
}
