package application

import (
	"context"
	"errors"
	"sync"
	"time"

	certDomain "github.com/davicafu/hexacert/internal/certificate/domain"
	"github.com/davicafu/hexacert/internal/issuance/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Workflow es lo que el Runner necesita del orquestador.
type Workflow interface {
	Prepare(ctx context.Context, req StartRequest) (*domain.WorkflowState, error)
	Resume(ctx context.Context, st *domain.WorkflowState) (*domain.WorkflowState, error)
}

// Runner ejecuta cada workflow en su propia goroutine, con un máximo de concurrencia.
// Un certificado nunca tiene dos workflows en vuelo dentro del mismo proceso.
type Runner struct {
	workflow    Workflow
	progress    domain.ProgressRepository
	sem         *semaphore.Weighted
	concurrency int
	resumeBatch int
	log         *zap.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
	wg       sync.WaitGroup
}

func NewRunner(workflow Workflow, progress domain.ProgressRepository, concurrency, resumeBatch int, log *zap.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if resumeBatch < 1 {
		resumeBatch = 1
	}
	return &Runner{
		workflow:    workflow,
		progress:    progress,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		concurrency: concurrency,
		resumeBatch: resumeBatch,
		log:         log,
		inFlight:    make(map[uuid.UUID]struct{}),
	}
}

// Submit guarda el registro de progreso y lanza el resto del workflow en background.
// Cuando devuelve nil el trigger ya es durable; con error, el mensaje debe volver a entregarse.
// Bloquea mientras no haya hueco libre. Devuelve false si el certificado ya tenía un workflow
// en vuelo o ya terminado.
func (r *Runner) Submit(ctx context.Context, req StartRequest) (bool, error) {
	if !r.claim(req.CertificateID) {
		r.log.Debug("Workflow already running", zap.String("certificate_id", req.CertificateID.String()))
		return false, nil
	}

	st, err := r.workflow.Prepare(ctx, req)
	if err != nil {
		r.release(req.CertificateID)
		return false, err
	}
	if st.Finished() {
		r.release(req.CertificateID)
		return false, nil
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.release(req.CertificateID)
		return false, err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.sem.Release(1)
		defer r.release(req.CertificateID)

		if _, err := r.workflow.Resume(ctx, st); err != nil {
			r.logRunError(ctx, req.CertificateID, err)
		}
	}()
	return true, nil
}

// StartResumer retoma periódicamente los workflows sin terminar hasta que se cancela ctx.
// Recoge los que pararon por un fallo del almacenamiento y los que quedaron de un reinicio.
func (r *Runner) StartResumer(ctx context.Context, interval time.Duration) {
	r.log.Info("🔁 Resumer iniciado", zap.Duration("interval", interval))
	r.resumeOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("🛑 Resumer detenido.")
			return
		case <-ticker.C:
			r.resumeOnce(ctx)
		}
	}
}

func (r *Runner) resumeOnce(ctx context.Context) {
	n, err := r.ResumeUnfinished(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.log.Error("❌ No se pudieron retomar los workflows pendientes", zap.Error(err))
		}
		return
	}
	if n > 0 {
		r.log.Info("🔁 Unfinished workflows resumed", zap.Int("count", n))
	}
}

// ResumeUnfinished recorre todos los registros sin terminar, página a página, y retoma
// los que no estén ya en vuelo. Vuelve cuando han acabado todos los que lanzó.
func (r *Runner) ResumeUnfinished(ctx context.Context) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	resumed := 0
	var after domain.ResumeCursor
	for {
		states, err := r.progress.ListUnfinished(gctx, after, r.resumeBatch)
		if err != nil {
			_ = g.Wait()
			return resumed, err
		}

		for _, st := range states {
			if !r.claim(st.CertificateID) {
				continue
			}
			resumed++
			id := st.CertificateID
			g.Go(func() error {
				defer r.release(id)
				return r.resume(gctx, id)
			})
		}

		if len(states) < r.resumeBatch {
			break
		}
		after = domain.CursorAfter(states[len(states)-1])
	}

	if err := g.Wait(); err != nil {
		return resumed, err
	}
	return resumed, nil
}

// resume relee el registro una vez reclamado, porque otro workflow pudo terminarlo
// entre el listado y el claim.
func (r *Runner) resume(ctx context.Context, id uuid.UUID) error {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sem.Release(1)

	st, err := r.progress.LoadProgress(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logRunError(ctx, id, err)
		return nil
	}
	if st.Finished() {
		return nil
	}

	if _, err := r.workflow.Resume(ctx, st); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logRunError(ctx, id, err)
	}
	return nil
}

// Wait espera a que terminen los workflows lanzados con Submit.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) claim(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inFlight[id]; ok {
		return false
	}
	r.inFlight[id] = struct{}{}
	return true
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.inFlight, id)
	r.mu.Unlock()
}

func (r *Runner) logRunError(ctx context.Context, id uuid.UUID, err error) {
	switch {
	case ctx.Err() != nil:
		r.log.Info("🛑 Workflow interrupted, it will resume on restart", zap.String("certificate_id", id.String()))
	case errors.Is(err, certDomain.ErrCertificateNotFound):
		r.log.Warn("⚠️ Certificate not found, workflow skipped", zap.String("certificate_id", id.String()))
	default:
		r.log.Error("❌ Workflow stopped", zap.String("certificate_id", id.String()), zap.Error(err))
	}
}
