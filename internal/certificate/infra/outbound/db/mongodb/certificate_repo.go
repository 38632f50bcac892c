package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedDomain "github.com/davicafu/hexacert/internal/shared/domain"
	sharedMongo "github.com/davicafu/hexacert/internal/shared/infra/platform/db/mongodb"
)

// CertificateRepoMongoDB implementa CertificateRepository. Certificado y outbox se escriben
// en la misma transacción multi-documento, así que necesita un replica set.
type CertificateRepoMongoDB struct {
	client     *mongo.Client
	certsColl  *mongo.Collection
	outboxColl *mongo.Collection
}

var _ domain.CertificateRepository = (*CertificateRepoMongoDB)(nil)

func NewCertificateRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*CertificateRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &CertificateRepoMongoDB{
		client:     client,
		certsColl:  db.Collection("certificates"),
		outboxColl: db.Collection(sharedMongo.OutboxCollection),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoCertificate struct {
	ID                 string    `bson:"_id"`
	Kind               string    `bson:"kind"`
	GridArea           string    `bson:"gridArea"`
	PeriodFrom         time.Time `bson:"periodFrom"`
	PeriodTo           time.Time `bson:"periodTo"`
	MeteringPointOwner string    `bson:"meteringPointOwner"`
	GSRN               string    `bson:"gsrn"`
	Quantity           int64     `bson:"quantity"`
	BlindingValue      []byte    `bson:"blindingValue"`
	FuelCode           string    `bson:"fuelCode,omitempty"`
	TechCode           string    `bson:"techCode,omitempty"`
	IssuedState        string    `bson:"issuedState"`
	RejectionReason    *string   `bson:"rejectionReason"`
	CreatedAt          time.Time `bson:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt"`
}

func toMongoCertificate(c *domain.Certificate) mongoCertificate {
	s := c.Snapshot()
	mc := mongoCertificate{
		ID:                 s.ID.String(),
		Kind:               string(s.Kind),
		GridArea:           s.GridArea,
		PeriodFrom:         s.Period.From,
		PeriodTo:           s.Period.To,
		MeteringPointOwner: s.MeteringPointOwner,
		GSRN:               s.GSRN,
		Quantity:           s.Quantity,
		BlindingValue:      s.BlindingValue,
		IssuedState:        string(s.IssuedState),
		RejectionReason:    s.RejectionReason,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if s.Technology != nil {
		mc.FuelCode = s.Technology.FuelCode
		mc.TechCode = s.Technology.TechCode
	}
	return mc
}

func fromMongoCertificate(mc *mongoCertificate) (*domain.Certificate, error) {
	id, err := uuid.Parse(mc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in certificate document: %w", err)
	}
	s := domain.Snapshot{
		ID:   id,
		Kind: domain.Kind(mc.Kind),
		Facts: domain.Facts{
			GridArea:           mc.GridArea,
			Period:             domain.Period{From: mc.PeriodFrom, To: mc.PeriodTo},
			MeteringPointOwner: mc.MeteringPointOwner,
			GSRN:               mc.GSRN,
			Quantity:           mc.Quantity,
			BlindingValue:      mc.BlindingValue,
		},
		IssuedState:     domain.IssuedState(mc.IssuedState),
		RejectionReason: mc.RejectionReason,
		CreatedAt:       mc.CreatedAt,
		UpdatedAt:       mc.UpdatedAt,
	}
	if mc.FuelCode != "" || mc.TechCode != "" {
		s.Technology = &domain.Technology{FuelCode: mc.FuelCode, TechCode: mc.TechCode}
	}
	return domain.Restore(s), nil
}

// --- CRUD Transaccional ---

func (r *CertificateRepoMongoDB) Create(ctx context.Context, c *domain.Certificate, msg sharedDomain.OutboxMessage) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.certsColl.InsertOne(sessCtx, toMongoCertificate(c)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrCertificateAlreadyExists
			}
			return nil, err
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, sharedMongo.ToMongoOutboxMessage(msg)); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (r *CertificateRepoMongoDB) FindByID(ctx context.Context, id uuid.UUID, kind domain.Kind) (*domain.Certificate, error) {
	var mc mongoCertificate
	err := r.certsColl.FindOne(ctx, bson.M{"_id": id.String(), "kind": string(kind)}).Decode(&mc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromMongoCertificate(&mc)
}

// Save filtra por issuedState = creating para no sobrescribir un estado terminal.
func (r *CertificateRepoMongoDB) Save(ctx context.Context, c *domain.Certificate, msgs ...sharedDomain.OutboxMessage) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		filter := bson.M{"_id": c.ID().String(), "kind": string(c.Kind()), "issuedState": string(domain.StateCreating)}
		update := bson.M{"$set": bson.M{
			"issuedState":     string(c.IssuedState()),
			"rejectionReason": c.RejectionReason(),
			"updatedAt":       c.UpdatedAt(),
		}}

		res, err := r.certsColl.UpdateOne(sessCtx, filter, update)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			var current mongoCertificate
			err := r.certsColl.FindOne(sessCtx, bson.M{"_id": c.ID().String(), "kind": string(c.Kind())}).Decode(&current)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, domain.ErrCertificateNotFound
			}
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: certificate %s is already %s", domain.ErrInvalidStateTransition, c.ID(), current.IssuedState)
		}

		for _, msg := range msgs {
			if _, err := r.outboxColl.InsertOne(sessCtx, sharedMongo.ToMongoOutboxMessage(msg)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
