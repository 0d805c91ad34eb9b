package wargaming

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wot-clan-dashboard/internal/cache"
	"wot-clan-dashboard/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, ttl time.Duration) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	members := cache.NewMembersCache(filepath.Join(t.TempDir(), "members.json"), ttl)
	c := NewClient("test-app", "500000", srv.URL, members)
	c.minInterval = 0
	return c, srv
}

func TestClanMembersParsesRoster(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/wot/clans/info/", r.URL.Path)
		require.Equal(t, "test-app", r.URL.Query().Get("application_id"))
		require.Equal(t, "500000", r.URL.Query().Get("clan_id"))
		w.Write([]byte(`{"status":"ok","data":{"500000":{"members":[
			{"account_id":42,"account_name":"alpha"},
			{"account_id":43,"account_name":"bravo"}]}}}`))
	}, 10*time.Minute)

	members, err := c.ClanMembers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Member{
		{AccountID: 42, Nickname: "alpha"},
		{AccountID: 43, Nickname: "bravo"},
	}, members)

	// A second call is served from the fresh cache.
	members, err = c.ClanMembers(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, 1, calls)
}

func TestClanMembersFallsBackToCacheOnFailure(t *testing.T) {
	fail := false
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status":"ok","data":{"500000":{"members":[{"account_id":42,"account_name":"alpha"}]}}}`))
	}, 0) // zero TTL: cache is immediately stale, so every call hits the server

	_, err := c.ClanMembers(context.Background())
	require.NoError(t, err)

	fail = true
	members, err := c.ClanMembers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Member{{AccountID: 42, Nickname: "alpha"}}, members)
}

func TestClanMembersErrorWithoutCache(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, time.Minute)

	_, err := c.ClanMembers(context.Background())
	require.Error(t, err)
}

func TestAccountTanksKeepsRawRecords(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wot/account/tanks/", r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("account_id"))
		w.Write([]byte(`{"status":"ok","data":{"42":[
			{"tank_id":7,"mark_of_mastery":4,"statistics":{"battles":100,"wins":60}},
			{"tank_id":9,"statistics":{"battles":5,"wins":1}}]}}`))
	}, time.Minute)

	records, err := c.AccountTanks(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, int64(7), records[0].TankID)
	require.Equal(t, 4, records[0].MarkOfMastery)
	require.Equal(t, int64(100), records[0].Statistics.Battles)
	require.Equal(t, int64(60), records[0].Statistics.Wins)
	require.NotEmpty(t, records[0].Raw)
}

func TestAccountTanksAPIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":{"code":407,"message":"INVALID_APPLICATION_ID"}}`))
	}, time.Minute)

	_, err := c.AccountTanks(context.Background(), 42)
	require.Error(t, err)
	require.Contains(t, err.Error(), "INVALID_APPLICATION_ID")
}

func TestVehiclesDropsNullEntries(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "7,9", r.URL.Query().Get("tank_id"))
		w.Write([]byte(`{"status":"ok","data":{
			"7":{"tank_id":7,"name":"T-34-85","tier":6,"nation":"ussr","type":"mediumTank"},
			"9":null}}`))
	}, time.Minute)

	metas, err := c.Vehicles(context.Background(), []int64{7, 9})
	require.NoError(t, err)
	require.Len(t, metas, 1)
	require.Equal(t, "T-34-85", metas["7"].Name)
	require.Equal(t, 6, metas["7"].Tier)
}

func TestAllVehiclesOmitsIDFilter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wot/encyclopedia/vehicles/", r.URL.Path)
		require.Empty(t, r.URL.Query().Get("tank_id"))
		w.Write([]byte(`{"status":"ok","data":{"1":{"tank_id":1,"name":"Leopard 1","tier":10}}}`))
	}, time.Minute)

	metas, err := c.AllVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 1)
}
