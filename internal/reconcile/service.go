package reconcile

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/locker"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/messaging"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/registry-sync/reconcile")

const lockKey = "reconcile"

// ServiceInterface defines the contract for the bulk reconciler
type ServiceInterface interface {
	ReconcileAll(ctx context.Context) (Result, error)
}

// MetricsRecorder records the outcome of every reconciled patient.
type MetricsRecorder interface {
	RecordReconcileOutcome(ctx context.Context, outcome string)
}

// Service backfills wmda_id for donors the registry already knows about.
type Service struct {
	donors    donor.RepositoryInterface
	tokens    registry.TokenSource
	api       registry.API
	pageSize  int
	locker    locker.Locker
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	logger    *zap.Logger
}

var _ ServiceInterface = (*Service)(nil)

// NewService creates a reconciler that reads pageSize registry patients per run.
func NewService(donors donor.RepositoryInterface, tokens registry.TokenSource, api registry.API, pageSize int, logger *zap.Logger) *Service {
	if pageSize < 1 {
		pageSize = 100
	}
	return &Service{
		donors:   donors,
		tokens:   tokens,
		api:      api,
		pageSize: pageSize,
		locker:   locker.NopLocker{},
		logger:   logger,
	}
}

// WithLocker keeps two runs from overlapping.
func (s *Service) WithLocker(l locker.Locker) *Service {
	s.locker = l
	return s
}

func (s *Service) WithPublisher(p messaging.PublisherInterface) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithMetrics(m MetricsRecorder) *Service {
	s.metrics = m
	return s
}

// ReconcileAll lists the first page of registry patients and stores each
// wmdaId on the matching donor whose wmda_id is still empty. A failed write
// is counted and the run moves on; a token or listing failure aborts it.
func (s *Service) ReconcileAll(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "reconcile.ReconcileAll")
	defer span.End()

	var result Result
	err := locker.WithLock(ctx, s.locker, lockKey, func(ctx context.Context) error {
		token, err := s.tokens.AcquireToken(ctx)
		if err != nil {
			return fmt.Errorf("unable to get bearer token: %w", err)
		}

		list, err := s.api.ListPatients(ctx, token, registry.PageParams{
			Limit:          s.pageSize,
			OnlyMyPatients: false,
			Offset:         0,
		})
		if err != nil {
			return err
		}

		s.logger.Info("reconciling registry patients",
			zap.Int("listed", len(list.Patients)),
			zap.Int("total_count", list.Paging.TotalCount),
		)

		for _, p := range list.Patients {
			outcome := s.reconcileOne(ctx, p)
			switch outcome {
			case OutcomeUpdated:
				result.Updated++
			case OutcomeFailed:
				result.Failed++
			default:
				result.Skipped++
			}
			if s.metrics != nil {
				s.metrics.RecordReconcileOutcome(ctx, outcome)
			}
		}
		return nil
	})

	span.SetAttributes(
		attribute.Int("reconcile.updated", result.Updated),
		attribute.Int("reconcile.skipped", result.Skipped),
		attribute.Int("reconcile.failed", result.Failed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reconcile failed")
		s.logger.Error("reconcile failed", zap.Error(err))
		return result, err
	}

	span.SetStatus(codes.Ok, "")
	s.logger.Info("reconcile finished",
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) reconcileOne(ctx context.Context, p registry.PatientSummary) string {
	donorID, wmdaID := p.PatientID.String(), p.WmdaID.String()
	if wmdaID == "" || donorID == "" {
		return OutcomeSkipped
	}

	written, err := s.donors.PersistPatientRegistryID(ctx, donorID, wmdaID)
	if err != nil {
		s.logger.Error("failed to store patient registry id",
			zap.String("donor_id", donorID),
			zap.String("wmda_id", wmdaID),
			zap.Error(err),
		)
		return OutcomeFailed
	}
	if !written {
		return OutcomeSkipped
	}

	s.logger.Info("patient registry id stored",
		zap.String("donor_id", donorID),
		zap.String("wmda_id", wmdaID),
	)
	s.publish(ctx, donorID, wmdaID)
	return OutcomeUpdated
}

func (s *Service) publish(ctx context.Context, donorID, wmdaID string) {
	if s.publisher == nil {
		return
	}
	event := messaging.PatientRegistryIDBackfilledEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientRegistryIDBackfilled),
		Data: messaging.PatientRegistryIDBackfilledData{
			DonorID:           donorID,
			PatientRegistryID: wmdaID,
			BackfilledAt:      time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventPatientRegistryIDBackfilled, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("routing_key", messaging.EventPatientRegistryIDBackfilled),
			zap.Error(err),
		)
	}
}
