package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/donor"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/locker"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/messaging"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/registry-sync/search")

// Service starts registry searches for donors and reads their results.
// A donor has no search until CreateSearch stores a searchId; listing and
// summaries never change that.
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

// CreateSearch starts a search for the donor's registry patient and stores
// the returned searchId, replacing any earlier one.
func (s *Service) CreateSearch(ctx context.Context, donorID string) (string, error) {
	ctx, span := tracer.Start(ctx, "search.CreateSearch")
	defer span.End()
	span.SetAttributes(attribute.String("donor.id", donorID))

	var searchID string
	err := locker.WithLock(ctx, s.locker, "donor:"+donorID, func(ctx context.Context) error {
		wmdaID, err := s.donors.FetchPatientRegistryID(ctx, donorID)
		if err != nil {
			return err
		}

		token, err := s.token(ctx)
		if err != nil {
			return err
		}

		created, err := s.api.CreateSearch(ctx, token, NewRequest(wmdaID))
		if err != nil {
			return err
		}
		if created.SearchID == "" {
			s.logger.Warn("search created but no searchId returned",
				zap.String("donor_id", donorID),
				zap.String("wmda_id", wmdaID),
			)
			return ErrMissingSearchID
		}

		searchID = created.SearchID.String()
		if err := s.donors.PersistSearchID(ctx, donorID, searchID); err != nil {
			return err
		}

		s.logger.Info("search created successfully",
			zap.String("donor_id", donorID),
			zap.String("search_id", searchID),
		)
		s.publish(ctx, donorID, wmdaID, searchID)
		return nil
	})

	s.record(ctx, "create_search", err)
	if err != nil {
		s.fail(span, "create_search", donorID, err)
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return searchID, nil
}

// ListSearches returns the registry's search list for the donor's patient.
func (s *Service) ListSearches(ctx context.Context, donorID string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "search.ListSearches")
	defer span.End()
	span.SetAttributes(attribute.String("donor.id", donorID))

	result, err := s.listSearches(ctx, donorID)
	s.record(ctx, "list_searches", err)
	if err != nil {
		s.fail(span, "list_searches", donorID, err)
		return nil, err
	}
	return result, nil
}

func (s *Service) listSearches(ctx context.Context, donorID string) (json.RawMessage, error) {
	wmdaID, err := s.donors.FetchPatientRegistryID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.ListPatientSearches(ctx, token, wmdaID)
}

// GetSearchSummary returns the registry's summary of the donor's latest search.
func (s *Service) GetSearchSummary(ctx context.Context, donorID string) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "search.GetSearchSummary")
	defer span.End()
	span.SetAttributes(attribute.String("donor.id", donorID))

	result, err := s.searchSummary(ctx, donorID)
	s.record(ctx, "search_summary", err)
	if err != nil {
		s.fail(span, "search_summary", donorID, err)
		return nil, err
	}
	return result, nil
}

func (s *Service) searchSummary(ctx context.Context, donorID string) (json.RawMessage, error) {
	searchID, err := s.donors.FetchSearchID(ctx, donorID)
	if err != nil {
		return nil, err
	}
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.api.GetSearch(ctx, token, searchID)
}

func (s *Service) token(ctx context.Context) (string, error) {
	token, err := s.tokens.AcquireToken(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to get bearer token: %w", err)
	}
	return token, nil
}

func (s *Service) record(ctx context.Context, op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSyncOperation(ctx, op, err == nil)
	}
}

func (s *Service) fail(span trace.Span, op, donorID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	s.logger.Error(op+" failed", zap.String("donor_id", donorID), zap.Error(err))
}

func (s *Service) publish(ctx context.Context, donorID, wmdaID, searchID string) {
	if s.publisher == nil {
		return
	}
	event := messaging.SearchCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventSearchCreated),
		Data: messaging.SearchCreatedData{
			DonorID:           donorID,
			PatientRegistryID: wmdaID,
			SearchID:          searchID,
			CreatedAt:         time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, messaging.EventSearchCreated, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("routing_key", messaging.EventSearchCreated),
			zap.Error(err),
		)
	}
}
