package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"wot-clan-dashboard/internal/cache"
	"wot-clan-dashboard/internal/config"
	"wot-clan-dashboard/internal/model"
	"wot-clan-dashboard/internal/repository"
)

// RosterClient is the remote API surface the sync depends on.
type RosterClient interface {
	ClanMembers(ctx context.Context) ([]model.Member, error)
	AccountTanks(ctx context.Context, accountID int64) ([]model.TankRecord, error)
	Vehicles(ctx context.Context, ids []int64) (map[string]model.VehicleMeta, error)
	AllVehicles(ctx context.Context) (map[string]model.VehicleMeta, error)
}

// keptTiers is the significance filter: only these tiers are persisted.
var keptTiers = map[int]bool{6: true, 8: true, 10: true}

// SyncStatus is a snapshot of the coordinator state.
type SyncStatus struct {
	Running    bool  `json:"-"`
	LastSyncTS int64 `json:"last_sync_ts"`
	CacheSize  int   `json:"cache_size"`
}

// SyncService reconciles the clan roster and per-account garages with the
// remote API. At most one run executes at a time; triggers arriving while a
// run is active or within MinInterval of the last completed run are no-ops.
type SyncService struct {
	client    RosterClient
	players   repository.PlayerRepository
	garage    repository.GarageRepository
	tankCache *cache.TankCache
	cfg       config.SyncConfig

	mu       sync.Mutex
	running  bool
	lastSync time.Time
	metas    map[string]model.VehicleMeta
}

// NewSyncService creates the coordinator and loads the metadata cache.
func NewSyncService(
	client RosterClient,
	players repository.PlayerRepository,
	garage repository.GarageRepository,
	tankCache *cache.TankCache,
	cfg config.SyncConfig,
) *SyncService {
	s := &SyncService{
		client:    client,
		players:   players,
		garage:    garage,
		tankCache: tankCache,
		cfg:       cfg,
		metas:     tankCache.Load(),
	}
	log.Printf("[SyncService] Loaded %d cached vehicle entries", len(s.metas))
	return s
}

// Status reports whether a run is in flight, when the last run completed and
// how many vehicles the metadata cache holds.
func (s *SyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SyncStatus{Running: s.running, CacheSize: len(s.metas)}
	if !s.lastSync.IsZero() {
		st.LastSyncTS = s.lastSync.Unix()
	}
	return st
}

// tryAcquire transitions Idle -> Running if no run is active and the debounce
// window has elapsed.
func (s *SyncService) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Printf("[SyncService] Sync ignored: already running")
		return false
	}
	if !s.lastSync.IsZero() {
		if elapsed := time.Since(s.lastSync); elapsed < s.cfg.MinInterval {
			log.Printf("[SyncService] Sync ignored: last run %s ago (<%s)", elapsed.Round(time.Second), s.cfg.MinInterval)
			return false
		}
	}
	s.running = true
	return true
}

// release stamps the completion time and clears the running flag. It runs on
// every exit path so the coordinator can never wedge in Running state.
func (s *SyncService) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSync = time.Now()
	s.running = false
}

// Run executes one sync if the entry guard passes. Every stage is
// best-effort: errors are logged and the pipeline continues with whatever
// partial data it has.
func (s *SyncService) Run(ctx context.Context) {
	if !s.tryAcquire() {
		return
	}
	defer s.release()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SyncService] Sync panicked: %v", r)
		}
	}()

	s.run(ctx)
}

func (s *SyncService) run(ctx context.Context) {
	log.Printf("[SyncService] Starting sync")

	// a. roster
	members, err := s.client.ClanMembers(ctx)
	if err != nil {
		log.Printf("[SyncService] Failed to fetch clan members: %v", err)
	}
	if len(members) == 0 {
		log.Printf("[SyncService] No members fetched; aborting sync")
		return
	}

	// b. upsert players
	accountIDs := make([]int64, 0, len(members))
	for _, m := range members {
		if m.AccountID == 0 {
			continue
		}
		accountIDs = append(accountIDs, m.AccountID)

		nickname := m.Nickname
		if nickname == "" {
			nickname = fmt.Sprintf("player_%d", m.AccountID)
		}
		if err := s.players.Upsert(ctx, model.Player{AccountID: m.AccountID, Nickname: nickname}); err != nil {
			log.Printf("[SyncService] Failed to upsert player %d: %v", m.AccountID, err)
		}
	}

	// c. per-account tank lists; accounts whose fetch failed are absent from
	// the map and keep their previous rows.
	tanksByAccount := s.fetchTanks(ctx, accountIDs)

	seen := map[int64]bool{}
	var uniqueIDs []int64
	for _, records := range tanksByAccount {
		for _, rec := range records {
			if rec.TankID != 0 && !seen[rec.TankID] {
				seen[rec.TankID] = true
				uniqueIDs = append(uniqueIDs, rec.TankID)
			}
		}
	}
	log.Printf("[SyncService] Collected %d unique tank ids from %d accounts", len(uniqueIDs), len(tanksByAccount))

	// d. metadata resolution
	s.resolveMetadata(ctx, uniqueIDs)

	// e. per-account replace
	saved := 0
	for _, acc := range accountIDs {
		records, ok := tanksByAccount[acc]
		if !ok {
			continue
		}
		rows := s.buildRows(acc, records)
		if err := s.garage.ReplaceAccountTanks(ctx, acc, rows); err != nil {
			log.Printf("[SyncService] Failed to replace tanks for account %d: %v", acc, err)
			continue
		}
		saved += len(rows)
	}

	log.Printf("[SyncService] Sync complete: %d tanks saved", saved)
}

// fetchTanks pulls every account's tank list with bounded parallelism and
// waits for all of them before returning; metadata resolution must see the
// full id set.
func (s *SyncService) fetchTanks(ctx context.Context, accountIDs []int64) map[int64][]model.TankRecord {
	workers := s.cfg.FetchWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var mu sync.Mutex
	out := make(map[int64][]model.TankRecord, len(accountIDs))

	var wg sync.WaitGroup
	for _, acc := range accountIDs {
		wg.Add(1)
		go func(acc int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			records, err := s.client.AccountTanks(ctx, acc)
			if err != nil {
				log.Printf("[SyncService] Failed to fetch tanks for account %d: %v", acc, err)
				return
			}
			mu.Lock()
			out[acc] = records
			mu.Unlock()
		}(acc)
	}
	wg.Wait()

	return out
}

// resolveMetadata fills the cache for ids it does not hold yet: fixed-size
// batches with an inter-batch delay, the cache persisted after every batch,
// and a one-shot full dump when too much remains unresolved.
func (s *SyncService) resolveMetadata(ctx context.Context, ids []int64) {
	missing := s.missingIDs(ids)
	log.Printf("[SyncService] Tank ids missing from cache: %d", len(missing))
	if len(missing) == 0 {
		return
	}

	batchSize := s.cfg.EncyclopediaBatch
	if batchSize < 1 {
		batchSize = 50
	}

	for i := 0; i < len(missing); i += batchSize {
		end := i + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[i:end]

		metas, err := s.client.Vehicles(ctx, batch)
		if err != nil {
			log.Printf("[SyncService] Encyclopedia batch failed: %v", err)
		} else {
			s.storeMetas(metas)
			log.Printf("[SyncService] Encyclopedia batch fetched: requested %d, returned %d", len(batch), len(metas))
			s.saveCache()
		}

		if end < len(missing) {
			time.Sleep(s.cfg.SleepBetweenBatches)
		}
	}

	stillMissing := len(s.missingIDs(ids))
	log.Printf("[SyncService] Missing after batch fetch: %d", stillMissing)

	if stillMissing > 0 && float64(stillMissing) > s.cfg.FallbackThreshold*float64(len(ids)) {
		log.Printf("[SyncService] Falling back to full encyclopedia dump")
		all, err := s.client.AllVehicles(ctx)
		if err != nil {
			log.Printf("[SyncService] Full encyclopedia dump failed: %v", err)
			return
		}
		s.storeMetas(all)
		s.saveCache()

		s.mu.Lock()
		size := len(s.metas)
		s.mu.Unlock()
		log.Printf("[SyncService] Full dump populated cache with %d entries", size)
	}
}

func (s *SyncService) missingIDs(ids []int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []int64
	for _, id := range ids {
		if _, ok := s.metas[cacheKey(id)]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *SyncService) storeMetas(metas map[string]model.VehicleMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range metas {
		s.metas[k] = v
	}
}

// saveCache persists the cache after each resolution step so a crash mid-sync
// loses at most one batch. Write failures are logged, never fatal.
func (s *SyncService) saveCache() {
	s.mu.Lock()
	snapshot := make(map[string]model.VehicleMeta, len(s.metas))
	for k, v := range s.metas {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := s.tankCache.Save(snapshot); err != nil {
		log.Printf("[SyncService] Failed to persist tank cache: %v", err)
	}
}

// meta returns a cached vehicle entry.
func (s *SyncService) meta(tankID int64) (model.VehicleMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.metas[cacheKey(tankID)]
	return m, ok
}

// buildRows maps remote tank records to garage rows, keeping only resolved
// tiers in the significance set. Unresolved vehicles have no tier and fall
// out of the filter.
func (s *SyncService) buildRows(accountID int64, records []model.TankRecord) []model.GarageTank {
	now := time.Now().UTC()

	var rows []model.GarageTank
	for _, rec := range records {
		if rec.TankID == 0 {
			continue
		}
		meta, ok := s.meta(rec.TankID)
		if !ok || !keptTiers[meta.Tier] {
			continue
		}

		name := meta.Name
		if name == "" {
			name = meta.ShortName
		}
		if name == "" {
			name = fmt.Sprintf("Tank %d", rec.TankID)
		}

		rows = append(rows, model.GarageTank{
			AccountID:     accountID,
			TankID:        rec.TankID,
			TankName:      name,
			Tier:          meta.Tier,
			Battles:       rec.Statistics.Battles,
			Wins:          rec.Statistics.Wins,
			MarkOfMastery: rec.MarkOfMastery,
			IsPremium:     meta.IsPremium,
			Nation:        meta.Nation,
			Type:          meta.Type,
			ImageURL:      meta.Image(),
			RawJSON:       rec.Raw,
			LastUpdated:   now,
		})
	}
	return rows
}

// Rehydrate backfills descriptive columns of existing garage rows from the
// metadata cache, without touching the remote API.
func (s *SyncService) Rehydrate(ctx context.Context) (int, error) {
	rows, err := s.garage.MissingMeta(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, t := range rows {
		meta, ok := s.meta(t.TankID)
		if !ok {
			continue
		}

		changed := false
		if t.Nation == "" && meta.Nation != "" {
			t.Nation = meta.Nation
			changed = true
		}
		if t.Type == "" && meta.Type != "" {
			t.Type = meta.Type
			changed = true
		}
		if t.ImageURL == "" && meta.Image() != "" {
			t.ImageURL = meta.Image()
			changed = true
		}
		if (t.TankName == "" || t.TankName == fmt.Sprintf("Tank %d", t.TankID)) && meta.Name != "" {
			t.TankName = meta.Name
			changed = true
		}
		if !t.IsPremium && meta.IsPremium {
			t.IsPremium = true
			changed = true
		}

		if !changed {
			continue
		}
		if err := s.garage.UpdateMeta(ctx, t); err != nil {
			log.Printf("[SyncService] Rehydrate failed for row %d: %v", t.ID, err)
			continue
		}
		updated++
	}

	log.Printf("[SyncService] Rehydrate finished: %d rows updated of %d inspected", updated, len(rows))
	return updated, nil
}

// CachedFilterOptions extracts the distinct nations and vehicle types known
// to the metadata cache, for when the garage table cannot provide them yet.
func (s *SyncService) CachedFilterOptions() (nations, types []string) {
	s.mu.Lock()
	nationSet := map[string]bool{}
	typeSet := map[string]bool{}
	for _, meta := range s.metas {
		if v := strings.TrimSpace(meta.Nation); v != "" {
			nationSet[v] = true
		}
		if v := strings.TrimSpace(meta.Type); v != "" {
			typeSet[v] = true
		}
	}
	s.mu.Unlock()

	for v := range nationSet {
		nations = append(nations, v)
	}
	for v := range typeSet {
		types = append(types, v)
	}
	sort.Strings(nations)
	sort.Strings(types)
	return nations, types
}

func cacheKey(tankID int64) string {
	return strconv.FormatInt(tankID, 10)
}
