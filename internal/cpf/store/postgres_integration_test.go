//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"cpfregistry/internal/cpf/store"
	id "cpfregistry/pkg/domain"
	"cpfregistry/pkg/platform/sentinel"
	"cpfregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "cpf_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestInsertAssignsIDAndTimestamp() {
	ctx := context.Background()
	before := time.Now().Add(-time.Minute)

	record, err := s.store.Insert(ctx, id.CPF("64852893055"))
	s.Require().NoError(err)
	s.Equal(int64(1), record.ID)
	s.Equal(id.CPF("64852893055"), record.CPF)
	s.True(record.CreatedAt.After(before))
	s.Equal(time.UTC, record.CreatedAt.Location())

	found, err := s.store.FindByCPF(ctx, id.CPF("64852893055"))
	s.Require().NoError(err)
	s.Equal(record.ID, found.ID)
	s.WithinDuration(record.CreatedAt, found.CreatedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestFindUnknownReturnsNotFound() {
	_, err := s.store.FindByCPF(context.Background(), id.CPF("12345678909"))
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDuplicateInsert verifies the unique index admits exactly one
// of many racing inserts and the rest map to ErrAlreadyUsed.
func (s *PostgresStoreSuite) TestConcurrentDuplicateInsert() {
	ctx := context.Background()
	const goroutines = 30

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Insert(ctx, id.CPF("52998224725"))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one insert should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")
}

func (s *PostgresStoreSuite) TestListAllOrderedByID() {
	ctx := context.Background()

	empty, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)

	cpfs := []id.CPF{"12345678909", "64852893055", "52998224725"}
	for _, c := range cpfs {
		_, err := s.store.Insert(ctx, c)
		s.Require().NoError(err)
	}

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, len(cpfs))
	for i, record := range all {
		s.Equal(cpfs[i], record.CPF)
	}
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	_, err := s.store.Insert(ctx, id.CPF("64852893055"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(ctx, id.CPF("64852893055")))
	s.ErrorIs(s.store.Delete(ctx, id.CPF("64852893055")), sentinel.ErrNotFound)

	_, err = s.store.FindByCPF(ctx, id.CPF("64852893055"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestCheckConstraintRejectsNonDigits() {
	_, err := s.store.Insert(context.Background(), id.CPF("6485289305A"))
	s.Require().Error(err)
	s.NotErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestPing() {
	s.NoError(s.store.Ping(context.Background()))
}
