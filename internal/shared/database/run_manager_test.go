package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
)

// MockDatabaseAdmin is a mock implementation of DatabaseAdmin.
type MockDatabaseAdmin struct {
	mock.Mock
}

func (m *MockDatabaseAdmin) ListDatabaseNames(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockDatabaseAdmin) DropDatabase(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

var serverDatabases = []string{
	"admin",
	"MongoTest-2024-01-02T03-04-05-2",
	"MongoTest-2024-01-02T03-04-05-1",
	"MongoTest-2024-01-01T00-00-00-1",
	"MongoTest-not-a-run",
	"MongoTest-2024-01-02T03-04-05-0",
}

func newTestRunManager(admin DatabaseAdmin) *RunManager {
	return NewRunManager(admin, "MongoTest-", logger.NopLogger{})
}

func TestRunManager_ListRuns(t *testing.T) {
	admin := new(MockDatabaseAdmin)
	admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return(serverDatabases, nil)

	runs, err := newTestRunManager(admin).ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "2024-01-01T00-00-00", runs[0].Timestamp)
	assert.Equal(t, []string{"MongoTest-2024-01-01T00-00-00-1"}, runs[0].Databases)

	assert.Equal(t, "2024-01-02T03-04-05", runs[1].Timestamp)
	assert.Equal(t, []string{
		"MongoTest-2024-01-02T03-04-05-1",
		"MongoTest-2024-01-02T03-04-05-2",
	}, runs[1].Databases)
	assert.Equal(t, 2024, runs[1].StartedAt.Year())

	admin.AssertExpectations(t)
}

func TestRunManager_DropRun_IgnoresNonCanonicalNames(t *testing.T) {
	admin := new(MockDatabaseAdmin)
	admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return([]string{
		"MongoTest-2024-01-02T03-04-05-01",
		"MongoTest-2024-01-02T03-04-05-+1",
		"MongoTest-2024-01-02T03-04-05-3",
	}, nil)
	admin.On("DropDatabase", mock.Anything, "MongoTest-2024-01-02T03-04-05-3").Return(nil)

	dropped, err := newTestRunManager(admin).DropRun(context.Background(), "2024-01-02T03-04-05")
	require.NoError(t, err)
	assert.Equal(t, []string{"MongoTest-2024-01-02T03-04-05-3"}, dropped)
	admin.AssertExpectations(t)
	admin.AssertNumberOfCalls(t, "DropDatabase", 1)
}

func TestRunManager_ListRuns_Error(t *testing.T) {
	admin := new(MockDatabaseAdmin)
	admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return(nil, errors.New("unauthorized"))

	_, err := newTestRunManager(admin).ListRuns(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInfrastructure))
}

func TestRunManager_DropDatabase(t *testing.T) {
	t.Run("run database", func(t *testing.T) {
		admin := new(MockDatabaseAdmin)
		admin.On("DropDatabase", mock.Anything, "MongoTest-2024-01-02T03-04-05-1").Return(nil)

		err := newTestRunManager(admin).DropDatabase(context.Background(), "MongoTest-2024-01-02T03-04-05-1")
		require.NoError(t, err)
		admin.AssertExpectations(t)
	})

	t.Run("refuses foreign database", func(t *testing.T) {
		admin := new(MockDatabaseAdmin)

		err := newTestRunManager(admin).DropDatabase(context.Background(), "admin")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.True(t, errors.Is(err, apperrors.ErrInvalidDatabaseName))
		admin.AssertNotCalled(t, "DropDatabase", mock.Anything, mock.Anything)
	})
}

func TestRunManager_DropRun(t *testing.T) {
	t.Run("drops every database of the run", func(t *testing.T) {
		admin := new(MockDatabaseAdmin)
		admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return(serverDatabases, nil)
		admin.On("DropDatabase", mock.Anything, "MongoTest-2024-01-02T03-04-05-1").Return(nil)
		admin.On("DropDatabase", mock.Anything, "MongoTest-2024-01-02T03-04-05-2").Return(nil)

		dropped, err := newTestRunManager(admin).DropRun(context.Background(), "2024-01-02T03-04-05")
		require.NoError(t, err)
		assert.Len(t, dropped, 2)
		admin.AssertExpectations(t)
	})

	t.Run("unknown run", func(t *testing.T) {
		admin := new(MockDatabaseAdmin)
		admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return(serverDatabases, nil)

		_, err := newTestRunManager(admin).DropRun(context.Background(), "2023-05-05T05-05-05")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("malformed timestamp", func(t *testing.T) {
		admin := new(MockDatabaseAdmin)

		_, err := newTestRunManager(admin).DropRun(context.Background(), "yesterday")
		assert.True(t, errors.Is(err, apperrors.ErrInvalidRunTimestamp))
	})

	t.Run("stops at first failure", func(t *testing.T) {
		admin := new(MockDatabaseAdmin)
		admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return(serverDatabases, nil)
		admin.On("DropDatabase", mock.Anything, "MongoTest-2024-01-02T03-04-05-1").Return(errors.New("not primary"))

		dropped, err := newTestRunManager(admin).DropRun(context.Background(), "2024-01-02T03-04-05")
		require.Error(t, err)
		assert.Empty(t, dropped)
	})
}

func TestRunManager_PruneOlderThan(t *testing.T) {
	admin := new(MockDatabaseAdmin)
	admin.On("ListDatabaseNames", mock.Anything, "MongoTest-").Return(serverDatabases, nil)
	admin.On("DropDatabase", mock.Anything, "MongoTest-2024-01-01T00-00-00-1").Return(nil)

	rm := newTestRunManager(admin)
	rm.now = func() time.Time {
		return time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local)
	}

	dropped, err := rm.PruneOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"MongoTest-2024-01-01T00-00-00-1"}, dropped)
	admin.AssertExpectations(t)
}
