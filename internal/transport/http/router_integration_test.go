//go:build integration

package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"

	"cpfregistry/internal/cpf"
	"cpfregistry/internal/cpf/models"
	"cpfregistry/internal/cpf/store"
	"cpfregistry/internal/platform/postgres"
	httptransport "cpfregistry/internal/transport/http"
	"cpfregistry/pkg/testutil"
	"cpfregistry/pkg/testutil/containers"
)

// RegistryE2ESuite drives the full HTTP stack over Postgres with both drivers.
type RegistryE2ESuite struct {
	suite.Suite
	driver   string
	postgres *containers.PostgresContainer
	router   http.Handler
}

func TestRegistryE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	for _, driver := range []string{postgres.DriverPQ, postgres.DriverPGX} {
		t.Run(driver, func(t *testing.T) {
			suite.Run(t, &RegistryE2ESuite{driver: driver})
		})
	}
}

func (s *RegistryE2ESuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())

	db, err := postgres.Open(context.Background(), postgres.Config{Driver: s.driver, DSN: s.postgres.DSN})
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewPostgres(db)
	svc, err := cpf.NewService(st)
	s.Require().NoError(err)

	s.router = httptransport.NewRouter(httptransport.Deps{
		Logger: logger,
		Routes: []httptransport.Routes{cpf.NewHandler(svc, logger)},
		Health: st,
	})
}

func (s *RegistryE2ESuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "cpf_records"))
}

func (s *RegistryE2ESuite) register(raw string) *models.RecordResponse {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpf", map[string]string{"cpf": raw}))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[models.RecordResponse](s.T(), rr)
}

func (s *RegistryE2ESuite) TestLifecycle() {
	t := s.T()
	created := s.register("529.982.247-25")
	s.Equal("52998224725", created.CPF)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/cpf", map[string]string{"cpf": "52998224725"}))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "cpf_already_exists")

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodGet, "/cpf/529.982.247-25", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	found := testutil.UnmarshalResponse[models.RecordResponse](t, rr)
	s.True(found.CreatedAt.Equal(created.CreatedAt))

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodDelete, "/cpf/52998224725", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(t, http.MethodDelete, "/cpf/52998224725", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "cpf_not_found")
}

func (s *RegistryE2ESuite) TestListPreservesInsertionOrder() {
	s.register("64852893055")
	s.register("12345678909")
	s.register("52998224725")

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/cpf", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	list := testutil.UnmarshalResponse[[]models.RecordResponse](s.T(), rr)

	s.Require().Len(*list, 3)
	s.Equal("64852893055", (*list)[0].CPF)
	s.Equal("12345678909", (*list)[1].CPF)
	s.Equal("52998224725", (*list)[2].CPF)
}

func (s *RegistryE2ESuite) TestInvalidNeverReachesDatabase() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/cpf", map[string]string{"cpf": "111.111.111-11"}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_cpf")

	var count int
	s.Require().NoError(s.postgres.DB.QueryRow("SELECT count(*) FROM cpf_records").Scan(&count))
	s.Zero(count)
}

func (s *RegistryE2ESuite) TestHealth() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/health", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}
