package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wot-clan-dashboard/internal/cache"
	"wot-clan-dashboard/internal/config"
	"wot-clan-dashboard/internal/middleware"
	"wot-clan-dashboard/internal/model"
	"wot-clan-dashboard/internal/repository"
	"wot-clan-dashboard/internal/service"
)

// stubGarage overrides only the methods a test needs; the nil embedded
// interface panics on anything unexpected.
type stubGarage struct {
	repository.GarageRepository

	countAll int64
	total    int64
	rows     []model.GarageRow
	stats    model.GarageStats
	nations  []string
	types    []string
	missing  []model.GarageTank
	updated  []model.GarageTank

	lastFilter    model.GarageFilter
	limit, offset int
}

func (s *stubGarage) CountAll(ctx context.Context) (int64, error) { return s.countAll, nil }

func (s *stubGarage) Count(ctx context.Context, f model.GarageFilter) (int64, error) {
	s.lastFilter = f
	return s.total, nil
}

func (s *stubGarage) List(ctx context.Context, f model.GarageFilter, limit, offset int) ([]model.GarageRow, error) {
	s.limit, s.offset = limit, offset
	return s.rows, nil
}

func (s *stubGarage) Aggregate(ctx context.Context, f model.GarageFilter) (model.GarageStats, error) {
	return s.stats, nil
}

func (s *stubGarage) DistinctNations(ctx context.Context) ([]string, error) { return s.nations, nil }
func (s *stubGarage) DistinctTypes(ctx context.Context) ([]string, error) { return s.types, nil }

func (s *stubGarage) MissingMeta(ctx context.Context) ([]model.GarageTank, error) {
	return s.missing, nil
}

func (s *stubGarage) UpdateMeta(ctx context.Context, t model.GarageTank) error {
	s.updated = append(s.updated, t)
	return nil
}

// stubPlayers is a minimal in-memory PlayerRepository.
type stubPlayers struct {
	players []model.Player
}

func (s *stubPlayers) Upsert(ctx context.Context, p model.Player) error { return nil }

func (s *stubPlayers) FindByNickname(ctx context.Context, nickname string) (*model.Player, error) {
	for _, p := range s.players {
		if p.Nickname == nickname {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubPlayers) List(ctx context.Context) ([]model.Player, error) { return s.players, nil }

// stubUsers is a minimal in-memory UserRepository.
type stubUsers struct {
	byID   map[int64]*model.User
	audits []model.RoleChange
}

func newStubUsers(users ...model.User) *stubUsers {
	s := &stubUsers{byID: map[int64]*model.User{}}
	for i := range users {
		u := users[i]
		s.byID[u.ID] = &u
	}
	return s
}

func (s *stubUsers) Create(ctx context.Context, u model.User) error {
	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return repository.ErrUserExists
		}
	}
	u.ID = int64(len(s.byID) + 1)
	s.byID[u.ID] = &u
	return nil
}

func (s *stubUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubUsers) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubUsers) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	var out []model.User
	for _, u := range s.byID {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *stubUsers) UpdateRole(ctx context.Context, id int64, role string) error {
	if u, ok := s.byID[id]; ok {
		u.Role = role
	}
	return nil
}

func (s *stubUsers) InsertRoleChange(ctx context.Context, rc model.RoleChange) error {
	s.audits = append(s.audits, rc)
	return nil
}

var _ repository.UserRepository = (*stubUsers)(nil)

// stubRoster serves a fixed member list.
type stubRoster struct {
	members []model.Member
}

func (s *stubRoster) ClanMembers(ctx context.Context) ([]model.Member, error) {
	return s.members, nil
}

// stubTrigger counts trigger requests.
type stubTrigger struct {
	calls int
}

func (s *stubTrigger) TriggerNow() { s.calls++ }

// newSyncState builds a SyncService whose metadata cache holds the given
// entries, wired to the stub garage. It is never Run in handler tests.
func newSyncState(t *testing.T, metas map[string]model.VehicleMeta, garage repository.GarageRepository) *service.SyncService {
	t.Helper()
	tc := cache.NewTankCache(filepath.Join(t.TempDir(), "tank_cache.json"))
	if len(metas) > 0 {
		require.NoError(t, tc.Save(metas))
	}
	return service.NewSyncService(nil, nil, garage, tc, config.SyncConfig{
		MinInterval:       45 * time.Second,
		EncyclopediaBatch: 50,
		FallbackThreshold: 0.25,
		FetchWorkers:      1,
	})
}

// doRequest runs a handler as the given user (nil for anonymous) and returns
// the recorder.
func doRequest(h http.HandlerFunc, r *http.Request, user *model.User) *httptest.ResponseRecorder {
	if user != nil {
		r = r.WithContext(middleware.ContextWithUser(r.Context(), user))
	}
	w := httptest.NewRecorder()
	h(w, r)
	return w
}
