package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/emd5953/leaseIQ-sub000/internal/geo"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/services"
)

// --- Mocks ---

// MockIngestionService
type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, c models.ListingCandidate) (*models.Listing, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockIngestionService) IngestDetailed(ctx context.Context, c models.ListingCandidate) (*services.IngestResult, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.IngestResult), args.Error(1)
}

// MockDuplicateLocator
type MockDuplicateLocator struct {
	mock.Mock
}

func (m *MockDuplicateLocator) FindDuplicates(ctx context.Context, street, unit string, coords geo.Point, radiusMeters float64) ([]models.Listing, error) {
	args := m.Called(ctx, street, unit, coords, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

// MockSearchService
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) FindListingByID(ctx context.Context, id string) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockSearchService) Search(ctx context.Context, c models.SearchCriteria, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, c, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
