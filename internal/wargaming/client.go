package wargaming

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"wot-clan-dashboard/internal/cache"
	"wot-clan-dashboard/internal/model"
)

// Per-endpoint request timeouts. The clan roster call is cheap, per-account
// tank lists are mid-weight, and the full encyclopedia dump is large.
const (
	clanInfoTimeout = 10 * time.Second
	tanksTimeout    = 30 * time.Second
	vehiclesTimeout = 30 * time.Second
	fullDumpTimeout = 60 * time.Second
)

// Client wraps the read-only Wargaming API endpoints the sync needs.
// Every call is identified by an application id and scoped to one clan.
type Client struct {
	appID      string
	clanID     string
	realm      string
	httpClient *http.Client
	members    *cache.MembersCache

	// Simple rate limiter shared by all requests.
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// NewClient creates a Wargaming API client for the given realm and clan.
// membersCache may be nil, in which case roster calls have no fallback.
func NewClient(appID, clanID, realm string, membersCache *cache.MembersCache) *Client {
	return &Client{
		appID:       appID,
		clanID:      clanID,
		realm:       strings.TrimRight(realm, "/"),
		httpClient:  &http.Client{},
		members:     membersCache,
		minInterval: 100 * time.Millisecond,
	}
}

// ClanMembers returns the clan roster. A fresh cache entry short-circuits the
// remote call; on remote failure the last-known roster (even stale) is
// returned instead of the error.
func (c *Client) ClanMembers(ctx context.Context) ([]model.Member, error) {
	if c.members != nil {
		if cached, fresh := c.members.Get(); fresh {
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, clanInfoTimeout)
	defer cancel()

	params := url.Values{"clan_id": {c.clanID}}
	var data map[string]struct {
		Members []model.Member `json:"members"`
	}
	if err := c.get(ctx, "/wot/clans/info/", params, &data); err != nil {
		if c.members != nil {
			if cached, _ := c.members.Get(); len(cached) > 0 {
				log.Printf("[WargamingClient] Roster fetch failed, using cached members: %v", err)
				return cached, nil
			}
		}
		return nil, fmt.Errorf("failed to fetch clan members: %w", err)
	}

	members := data[c.clanID].Members
	if len(members) > 0 && c.members != nil {
		if err := c.members.Put(members); err != nil {
			log.Printf("[WargamingClient] Failed to persist members cache: %v", err)
		}
	}
	return members, nil
}

// AccountTanks returns the vehicle list of one account. Each record keeps its
// raw payload for the raw_json column.
func (c *Client) AccountTanks(ctx context.Context, accountID int64) ([]model.TankRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, tanksTimeout)
	defer cancel()

	acc := strconv.FormatInt(accountID, 10)
	params := url.Values{"account_id": {acc}}
	var data map[string][]json.RawMessage
	if err := c.get(ctx, "/wot/account/tanks/", params, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch tanks for account %d: %w", accountID, err)
	}

	records := make([]model.TankRecord, 0, len(data[acc]))
	for _, raw := range data[acc] {
		var rec model.TankRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Printf("[WargamingClient] Skipping malformed tank record for account %d: %v", accountID, err)
			continue
		}
		rec.Raw = raw
		records = append(records, rec)
	}
	return records, nil
}

// Vehicles fetches encyclopedia metadata for the given tank ids. The API may
// return null for unknown ids; those are dropped from the result.
func (c *Client) Vehicles(ctx context.Context, ids []int64) (map[string]model.VehicleMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, vehiclesTimeout)
	defer cancel()

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatInt(id, 10)
	}
	params := url.Values{"tank_id": {strings.Join(strs, ",")}}
	return c.vehicles(ctx, params)
}

// AllVehicles fetches the full encyclopedia dump, used as a one-shot fallback
// when batch resolution leaves too many ids unresolved.
func (c *Client) AllVehicles(ctx context.Context) (map[string]model.VehicleMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, fullDumpTimeout)
	defer cancel()

	return c.vehicles(ctx, url.Values{})
}

func (c *Client) vehicles(ctx context.Context, params url.Values) (map[string]model.VehicleMeta, error) {
	var data map[string]*model.VehicleMeta
	if err := c.get(ctx, "/wot/encyclopedia/vehicles/", params, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch vehicles: %w", err)
	}

	metas := make(map[string]model.VehicleMeta, len(data))
	for id, meta := range data {
		if meta == nil {
			continue
		}
		metas[id] = *meta
	}
	return metas, nil
}

// envelope is the standard Wargaming response wrapper.
type envelope struct {
	Status string          `json:"status"`
	Error  *apiError       `json:"error"`
	Data   json.RawMessage `json:"data"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// get performs a rate-limited GET and decodes the data field into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	c.throttle()

	params.Set("application_id", c.appID)
	reqURL := c.realm + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if env.Status != "ok" {
		if env.Error != nil {
			return fmt.Errorf("API error %d: %s", env.Error.Code, env.Error.Message)
		}
		return fmt.Errorf("API returned status %q", env.Status)
	}

	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// throttle enforces a minimum gap between requests.
func (c *Client) throttle() {
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minInterval {
		time.Sleep(c.minInterval - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}
