package patient

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
	"github.com/WailSalutem-Health-Care/registry-sync/internal/pagination"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/registry-sync/patient")

type Service struct {
	donors    donor.RepositoryInterface
	tokens    registry.TokenSource
	api       registry.API
	locker    locker.Locker
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	logger    *zap.Logger
}

func NewService(donors donor.RepositoryInterface, tokens registry.TokenSource, api registry.API, logger *zap.Logger) *Service {
	return &Service{
		donors: donors,
		tokens: tokens,
		api:    api,
		locker: locker.NopLocker{},
		logger: logger,
	}
}

// WithLocker serializes patient writes per donor through l.
func (s *Service) WithLocker(l locker.Locker) *Service {
	s.locker = l
	return s
}

// WithPublisher publishes an event after every successful registry write.
func (s *Service) WithPublisher(p messaging.PublisherInterface) *Service {
	s.publisher = p
	return s
}

func (s *Service) WithMetrics(m MetricsRecorder) *Service {
	s.metrics = m
	return s
}

// CreatePatient registers the donor as a new registry patient. It does not
// check for an existing registration; SyncPatient does.
func (s *Service) CreatePatient(ctx context.Context, donorID string) error {
	return s.locked(ctx, "create_patient", donorID, func(ctx context.Context) error {
		rec, err := s.donors.FetchDonor(ctx, donorID)
		if err != nil {
			return err
		}
		return s.create(ctx, rec)
	})
}

// UpdatePatient replaces the registry patient the donor is registered as.
// A donor without a stored wmdaId fails with ErrPatientRegistryIDNotFound
// before any registry call.
func (s *Service) UpdatePatient(ctx context.Context, donorID string) error {
	return s.locked(ctx, "update_patient", donorID, func(ctx context.Context) error {
		rec, err := s.donors.FetchDonor(ctx, donorID)
		if err != nil {
			return err
		}
		if !rec.HasPatientRegistryID() {
			s.logger.Warn("patient registry id not found", zap.String("donor_id", donorID))
			return donor.ErrPatientRegistryIDNotFound
		}
		return s.update(ctx, rec)
	})
}

// SyncPatient creates the registry patient when the donor has no stored
// wmdaId and updates it otherwise.
func (s *Service) SyncPatient(ctx context.Context, donorID string) (Action, error) {
	var action Action
	err := s.locked(ctx, "sync_patient", donorID, func(ctx context.Context) error {
		rec, err := s.donors.FetchDonor(ctx, donorID)
		if err != nil {
			return err
		}
		if rec.HasPatientRegistryID() {
			action = ActionUpdated
			return s.update(ctx, rec)
		}
		action = ActionCreated
		return s.create(ctx, rec)
	})
	if err != nil {
		return "", err
	}
	return action, nil
}

// ListRegistryPatients fetches one page of the registry's patient list.
func (s *Service) ListRegistryPatients(ctx context.Context, params pagination.Params) (*registry.PatientList, error) {
	params.Validate()

	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.ListPatients(ctx, token, params.Registry())
}

func (s *Service) create(ctx context.Context, rec *donor.Record) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	if err := s.api.CreatePatient(ctx, token, ToPatientPayload(rec)); err != nil {
		return err
	}

	s.logger.Info("patient created successfully", zap.String("donor_id", rec.DonorID))
	s.publish(ctx, messaging.EventPatientCreated, rec)
	return nil
}

func (s *Service) update(ctx context.Context, rec *donor.Record) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	if err := s.api.UpdatePatient(ctx, token, ToUpdatePayload(rec)); err != nil {
		return err
	}

	s.logger.Info("patient updated successfully",
		zap.String("donor_id", rec.DonorID),
		zap.String("wmda_id", rec.PatientRegistryID),
	)
	s.publish(ctx, messaging.EventPatientUpdated, rec)
	return nil
}

func (s *Service) token(ctx context.Context) (string, error) {
	token, err := s.tokens.AcquireToken(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to get bearer token: %w", err)
	}
	return token, nil
}

// locked runs fn under the donor's lock inside a span and records the outcome.
func (s *Service) locked(ctx context.Context, op, donorID string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "patient."+op)
	defer span.End()
	span.SetAttributes(attribute.String("donor.id", donorID))

	err := locker.WithLock(ctx, s.locker, "donor:"+donorID, fn)
	if s.metrics != nil {
		s.metrics.RecordSyncOperation(ctx, op, err == nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		s.logger.Error(op+" failed", zap.String("donor_id", donorID), zap.Error(err))
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, rec *donor.Record) {
	if s.publisher == nil {
		return
	}
	event := messaging.PatientSyncedEvent{
		BaseEvent: messaging.NewBaseEvent(routingKey),
		Data: messaging.PatientSyncedData{
			DonorID:           rec.DonorID,
			PatientRegistryID: rec.PatientRegistryID,
			SyncedAt:          time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
