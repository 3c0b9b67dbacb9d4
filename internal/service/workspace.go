// Package service keeps the live console of every browser workspace and
// persists it through a workspace repository between requests.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atinyakov/CatalogAdmin/internal/console"
	"github.com/atinyakov/CatalogAdmin/internal/repository"
)

// WorkspaceService maps workspace ids to consoles. A console stays live in
// memory after first use; the repository copy lets a workspace survive a
// restart or a cleaner sweep of the in-memory cache.
type WorkspaceService struct {
	// repo is the underlying persistence repository.
	repo repository.WorkspaceRepository
	api  console.API
	log  *zap.Logger
	now  func() time.Time

	mu    sync.Mutex
	live  map[string]*console.Console
	loads singleflight.Group
}

// NewWorkspaceService constructs a WorkspaceService. Every console it creates
// talks to api.
func NewWorkspaceService(repo repository.WorkspaceRepository, api console.API, log *zap.Logger) *WorkspaceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkspaceService{
		repo: repo,
		api:  api,
		log:  log,
		now:  time.Now,
		live: make(map[string]*console.Console),
	}
}

// Open returns the console of workspace id, restoring it from the repository
// or starting an unauthenticated one when nothing is stored. Concurrent opens
// of the same id share one console.
func (s *WorkspaceService) Open(ctx context.Context, id string) (*console.Console, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid workspace id %q: %w", id, err)
	}

	s.mu.Lock()
	c, ok := s.live[id]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	v, err, _ := s.loads.Do(id, func() (any, error) {
		s.mu.Lock()
		if c, ok := s.live[id]; ok {
			s.mu.Unlock()
			return c, nil
		}
		s.mu.Unlock()

		c, err := s.restore(ctx, id)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.live[id] = c
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*console.Console), nil
}

func (s *WorkspaceService) restore(ctx context.Context, id string) (*console.Console, error) {
	log := s.log.With(zap.String("workspace", id))

	raw, err := s.repo.LoadWorkspace(ctx, id)
	if errors.Is(err, repository.ErrWorkspaceNotFound) {
		log.Debug("new workspace")
		return console.New(s.api, log), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load workspace: %w", err)
	}

	var st console.State
	if err := json.Unmarshal(raw, &st); err != nil {
		// A snapshot written by an older build is not worth failing the page for.
		log.Warn("discarding unreadable workspace", zap.Error(err))
		return console.New(s.api, log), nil
	}
	log.Debug("workspace restored", zap.String("mode", modeName(st.Mode)))
	return console.Restore(s.api, log, st), nil
}

// Save persists the current state of workspace id.
func (s *WorkspaceService) Save(ctx context.Context, id string, c *console.Console) error {
	raw, err := json.Marshal(c.Snapshot())
	if err != nil {
		return fmt.Errorf("encode workspace: %w", err)
	}
	if err := s.repo.SaveWorkspace(ctx, id, raw, s.now()); err != nil {
		return fmt.Errorf("save workspace: %w", err)
	}
	return nil
}

// Evict forgets the live consoles of ids. It is called after the cleaner
// removed them from the repository.
func (s *WorkspaceService) Evict(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.live, id)
	}
	s.log.Debug("workspaces evicted", zap.Int("count", len(ids)), zap.Int("live", len(s.live)))
}

func modeName(m console.Mode) string {
	if m == nil {
		return ""
	}
	return m.Name()
}
