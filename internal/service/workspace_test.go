package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/CatalogAdmin/internal/client/api"
	"github.com/atinyakov/CatalogAdmin/internal/console"
	"github.com/atinyakov/CatalogAdmin/internal/models"
	"github.com/atinyakov/CatalogAdmin/internal/repository"
)

func liveCount(s *WorkspaceService) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// stubAPI accepts one account and serves a fixed product list.
type stubAPI struct{}

func (stubAPI) SignIn(_ context.Context, creds models.Credentials) (api.SignInResult, error) {
	if creds.Password != "secret" {
		return api.SignInResult{}, &api.AuthError{Status: 400, Message: "wrong password"}
	}
	return api.SignInResult{Session: models.Session{Token: "tok", Expiry: time.Now().Add(time.Hour)}}, nil
}

func (stubAPI) Check(context.Context, models.Session) error { return nil }

func (stubAPI) ListProducts(context.Context, models.Session) ([]models.Product, error) {
	return []models.Product{{ID: "p1", Title: "Cat tower"}}, nil
}

func (stubAPI) CreateProduct(context.Context, models.Session, models.ProductPayload) error { return nil }

func (stubAPI) UpdateProduct(context.Context, models.Session, string, models.ProductPayload) error {
	return nil
}

func (stubAPI) DeleteProduct(context.Context, models.Session, string) error { return nil }

type failingRepo struct {
	repository.WorkspaceRepository
}

func (failingRepo) LoadWorkspace(context.Context, string) ([]byte, error) {
	return nil, errors.New("db down")
}

func TestOpen_NewWorkspaceIsUnauthenticated(t *testing.T) {
	svc := NewWorkspaceService(repository.NewMemoryWorkspaceRepository(), stubAPI{}, nil)
	id := uuid.NewString()

	c, err := svc.Open(context.Background(), id)
	require.NoError(t, err)
	assert.IsType(t, console.Unauthenticated{}, c.View().Mode)

	again, err := svc.Open(context.Background(), id)
	require.NoError(t, err)
	assert.Same(t, c, again)
}

func TestOpen_RejectsForeignIDs(t *testing.T) {
	svc := NewWorkspaceService(repository.NewMemoryWorkspaceRepository(), stubAPI{}, nil)
	_, err := svc.Open(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

func TestSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWorkspaceRepository()
	svc := NewWorkspaceService(repo, stubAPI{}, nil)
	id := uuid.NewString()

	c, err := svc.Open(ctx, id)
	require.NoError(t, err)
	_, err = c.SubmitCredentials(ctx, models.Credentials{Username: "admin@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, c.Select("p1"))
	c.TakeToasts()
	require.NoError(t, svc.Save(ctx, id, c))

	// A second process (or the same one after eviction) sees the same state.
	svc.Evict([]string{id})
	assert.Zero(t, liveCount(svc))

	restored, err := svc.Open(ctx, id)
	require.NoError(t, err)
	assert.NotSame(t, c, restored)

	v := restored.View()
	assert.True(t, v.Authenticated)
	viewing, ok := v.Mode.(console.Viewing)
	require.True(t, ok)
	assert.Equal(t, "Cat tower", viewing.Product.Title)
}

func TestOpen_UnreadableSnapshotStartsFresh(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryWorkspaceRepository()
	svc := NewWorkspaceService(repo, stubAPI{}, nil)
	id := uuid.NewString()
	require.NoError(t, repo.SaveWorkspace(ctx, id, []byte(`{"mode":{"kind":"teleporting"}}`), time.Now()))

	c, err := svc.Open(ctx, id)
	require.NoError(t, err)
	assert.IsType(t, console.Unauthenticated{}, c.View().Mode)
}

func TestOpen_RepositoryError(t *testing.T) {
	svc := NewWorkspaceService(failingRepo{}, stubAPI{}, nil)
	_, err := svc.Open(context.Background(), uuid.NewString())
	assert.ErrorContains(t, err, "db down")
	assert.Zero(t, liveCount(svc))
}

func TestOpen_ConcurrentOpensShareConsole(t *testing.T) {
	svc := NewWorkspaceService(repository.NewMemoryWorkspaceRepository(), stubAPI{}, nil)
	id := uuid.NewString()

	var wg sync.WaitGroup
	got := make([]*console.Console, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := svc.Open(context.Background(), id)
			assert.NoError(t, err)
			got[i] = c
		}(i)
	}
	wg.Wait()

	for _, c := range got[1:] {
		assert.Same(t, got[0], c)
	}
	assert.Equal(t, 1, liveCount(svc))
}
