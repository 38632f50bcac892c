package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/hexacert/internal/certificate/domain"
	sharedCache "github.com/davicafu/hexacert/internal/shared/infra/platform/cache"
	sharedUtils "github.com/davicafu/hexacert/internal/shared/infra/utils"
)

const (
	readAttempts = 3
	readDelay    = 100 * time.Millisecond
)

// CreateCertificateCommand son los datos de entrada para crear un certificado.
type CreateCertificateCommand struct {
	Kind           domain.Kind
	Facts          domain.Facts
	Technology     *domain.Technology
	WalletEndpoint string
}

// CertificateService define los casos de uso del agregado Certificate.
type CertificateService struct {
	repo     domain.CertificateRepository
	cache    sharedCache.Cache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewCertificateService(repo domain.CertificateRepository, cache sharedCache.Cache, cacheTTL time.Duration, log *zap.Logger) *CertificateService {
	return &CertificateService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// CreateCertificate valida los hechos, guarda el certificado en Creating y encola
// el disparador del workflow en la misma transacción.
func (s *CertificateService) CreateCertificate(ctx context.Context, cmd CreateCertificateCommand) (*domain.Certificate, error) {
	if cmd.WalletEndpoint == "" {
		return nil, fmt.Errorf("%w: wallet endpoint is required", domain.ErrInvalidCertificate)
	}

	kind, err := domain.ParseKind(string(cmd.Kind))
	if err != nil {
		return nil, err
	}

	var cert *domain.Certificate
	if kind == domain.KindProduction {
		if cmd.Technology == nil {
			return nil, fmt.Errorf("%w: production certificates need a technology", domain.ErrInvalidCertificate)
		}
		cert, err = domain.NewProductionCertificate(cmd.Facts, *cmd.Technology)
	} else {
		cert, err = domain.NewConsumptionCertificate(cmd.Facts)
	}
	if err != nil {
		return nil, err
	}

	msg, err := domain.NewCreatedMessage(cert, cmd.WalletEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to build created message: %w", err)
	}
	if err := s.repo.Create(ctx, cert, msg); err != nil {
		return nil, err
	}

	s.log.Info("📝 Certificado creado",
		zap.String("certificate_id", cert.ID().String()),
		zap.String("kind", string(cert.Kind())),
	)
	sharedCache.AsyncCacheSet(s.cache, domain.CacheKeyByID(cert.Kind(), cert.ID()), cert.View(), s.cacheTTL, s.log)
	return cert, nil
}

// GetCertificate obtiene la vista del certificado (primero intenta desde cache).
func (s *CertificateService) GetCertificate(ctx context.Context, kind domain.Kind, id uuid.UUID) (*domain.CertificateView, error) {
	key := domain.CacheKeyByID(kind, id)

	// 1. Intentar cache
	if s.cache != nil {
		var view domain.CertificateView
		if ok, err := s.cache.Get(ctx, key, &view); err != nil {
			s.log.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return &view, nil
		}
	}

	// 2. Ir al repo con reintentos; un "no encontrado" no se reintenta
	var cert *domain.Certificate
	err := sharedUtils.Retry(ctx, readAttempts, readDelay, func(err error) bool {
		return !errors.Is(err, domain.ErrCertificateNotFound)
	}, func() error {
		var err error
		cert, err = s.repo.FindByID(ctx, id, kind)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 3. Actualizar cache en background sin bloquear la respuesta
	view := cert.View()
	sharedCache.AsyncCacheSet(s.cache, key, view, s.cacheTTL, s.log)
	return &view, nil
}
