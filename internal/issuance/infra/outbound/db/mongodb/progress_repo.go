package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
)

type ProgressRepoMongoDB struct {
	coll *mongo.Collection
}

var _ domain.ProgressRepository = (*ProgressRepoMongoDB)(nil)

func NewProgressRepoMongoDB(client *mongo.Client, dbName string) *ProgressRepoMongoDB {
	return &ProgressRepoMongoDB{coll: client.Database(dbName).Collection("workflow_progress")}
}

func unfinishedFilter(after domain.ResumeCursor) bson.M {
	filter := bson.M{"finished": false}
	if !after.IsZero() {
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{"$gt": after.CreatedAt}},
			bson.M{"createdAt": after.CreatedAt, "_id": bson.M{"$gt": after.CertificateID.String()}},
		}
	}
	return filter
}

// EnsureIndexes crea el índice que usa ListUnfinished.
func (r *ProgressRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "finished", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}

// --- Structs de BSON para el mapeo ---

type mongoStepRecord struct {
	Completed   bool           `bson:"completed"`
	Output      string         `bson:"output,omitempty"`
	Attempts    map[string]int `bson:"attempts,omitempty"`
	LastError   string         `bson:"lastError,omitempty"`
	CompletedAt *time.Time     `bson:"completedAt,omitempty"`
}

type mongoProgress struct {
	ID             string                     `bson:"_id"`
	Kind           string                     `bson:"kind"`
	WalletEndpoint string                     `bson:"walletEndpoint"`
	Status         string                     `bson:"status"`
	Steps          map[string]mongoStepRecord `bson:"steps"`
	FailureReason  string                     `bson:"failureReason"`
	FaultHandled   bool                       `bson:"faultHandled"`
	Finished       bool                       `bson:"finished"`
	CreatedAt      time.Time                  `bson:"createdAt"`
	UpdatedAt      time.Time                  `bson:"updatedAt"`
}

func toMongoProgress(st *domain.WorkflowState) mongoProgress {
	steps := make(map[string]mongoStepRecord, len(st.Steps))
	for step, rec := range st.Steps {
		attempts := make(map[string]int, len(rec.Attempts))
		for kind, n := range rec.Attempts {
			attempts[string(kind)] = n
		}
		steps[string(step)] = mongoStepRecord{
			Completed:   rec.Completed,
			Output:      rec.Output,
			Attempts:    attempts,
			LastError:   rec.LastError,
			CompletedAt: rec.CompletedAt,
		}
	}
	return mongoProgress{
		ID:             st.CertificateID.String(),
		Kind:           string(st.Kind),
		WalletEndpoint: st.WalletEndpoint,
		Status:         string(st.Status),
		Steps:          steps,
		FailureReason:  st.FailureReason,
		FaultHandled:   st.FaultHandled,
		Finished:       st.Finished(),
		CreatedAt:      st.CreatedAt,
		UpdatedAt:      st.UpdatedAt,
	}
}

func fromMongoProgress(mp *mongoProgress) (*domain.WorkflowState, error) {
	id, err := uuid.Parse(mp.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in workflow_progress document: %w", err)
	}
	st := &domain.WorkflowState{
		CertificateID:  id,
		Kind:           certDomain.Kind(mp.Kind),
		WalletEndpoint: mp.WalletEndpoint,
		Status:         domain.Status(mp.Status),
		Steps:          make(map[domain.Step]*domain.StepRecord, len(mp.Steps)),
		FailureReason:  mp.FailureReason,
		FaultHandled:   mp.FaultHandled,
		CreatedAt:      mp.CreatedAt.UTC(),
		UpdatedAt:      mp.UpdatedAt.UTC(),
	}
	for step, rec := range mp.Steps {
		r := &domain.StepRecord{
			Completed:   rec.Completed,
			Output:      rec.Output,
			LastError:   rec.LastError,
			CompletedAt: rec.CompletedAt,
		}
		if len(rec.Attempts) > 0 {
			r.Attempts = make(map[domain.FailureKind]int, len(rec.Attempts))
			for kind, n := range rec.Attempts {
				r.Attempts[domain.FailureKind(kind)] = n
			}
		}
		st.Steps[domain.Step(step)] = r
	}
	return st, nil
}

func (r *ProgressRepoMongoDB) LoadProgress(ctx context.Context, certificateID uuid.UUID) (*domain.WorkflowState, error) {
	var mp mongoProgress
	err := r.coll.FindOne(ctx, bson.M{"_id": certificateID.String()}).Decode(&mp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrProgressNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoProgress(&mp)
}

func (r *ProgressRepoMongoDB) SaveProgress(ctx context.Context, st *domain.WorkflowState) error {
	mp := toMongoProgress(st)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": mp.ID}, mp, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save workflow progress: %w", err)
	}
	return nil
}

func (r *ProgressRepoMongoDB) ListUnfinished(ctx context.Context, after domain.ResumeCursor, limit int) ([]*domain.WorkflowState, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, unfinishedFilter(after), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var states []*domain.WorkflowState
	for cursor.Next(ctx) {
		var mp mongoProgress
		if err := cursor.Decode(&mp); err != nil {
			return nil, err
		}
		st, err := fromMongoProgress(&mp)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, cursor.Err()
}
