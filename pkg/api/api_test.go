package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rubiojr/itemsearch/pkg/catalog"
	"github.com/rubiojr/itemsearch/pkg/core"
	"github.com/rubiojr/itemsearch/pkg/engine"
	"github.com/rubiojr/itemsearch/pkg/realtime"
	"github.com/rubiojr/itemsearch/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticFetcher struct{}

func (staticFetcher) Bank(context.Context) ([]*core.ItemSlot, error) {
	skin := 4678
	return []*core.ItemSlot{
		{ID: 19699, Count: 250},
		{ID: 30698, Count: 1, Skin: &skin},
	}, nil
}
func (staticFetcher) SharedInventory(context.Context) ([]*core.ItemSlot, error) {
	return []*core.ItemSlot{}, nil
}
func (staticFetcher) Materials(context.Context) ([]core.MaterialSlot, error) {
	return []core.MaterialSlot{{ID: 19683, Count: 40}}, nil
}
func (staticFetcher) Characters(context.Context) ([]*core.Character, error) {
	return []*core.Character{}, nil
}
func (staticFetcher) Delivery(context.Context) (*core.Delivery, error) { return &core.Delivery{}, nil }
func (staticFetcher) Sells(context.Context) ([]core.Listing, error)    { return []core.Listing{}, nil }

var perms = core.NewPermissions(core.PermissionInventories, core.PermissionTradingPost)

func newTestServer(t *testing.T, ready bool) (*httptest.Server, *engine.Engine, *realtime.Hub) {
	t.Helper()
	cat := catalog.New([]core.CatalogEntry{
		{ID: 19699, Name: "Iron Ore", Rarity: core.RarityBasic},
		{ID: 19683, Name: "Iron Ingot", Rarity: core.RarityBasic},
		{ID: 30698, Name: "The Bifrost", Rarity: core.RarityLegendary, Icon: "https://render.guildwars2.com/file/bifrost.png"},
		{ID: 4678, Name: "Rainbow Skin", Rarity: core.RarityExotic},
	})
	eng := engine.New(cat, staticFetcher{})
	if ready {
		_, err := eng.Initialize(context.Background(), perms)
		require.NoError(t, err)
	}

	hub := realtime.NewHub(0)
	sched := scheduler.New(scheduler.Config{Interval: time.Hour}, eng, perms,
		scheduler.WithNotify(func(snap *engine.Snapshot, err error) {
			hub.Broadcast(realtime.RefreshEvent(snap, err))
		}))

	mux := http.NewServeMux()
	NewServer(eng, sched, hub).RegisterRoutes(mux)
	ts := httptest.NewServer(CorsMiddleware(mux))
	t.Cleanup(ts.Close)
	return ts, eng, hub
}

func getJSON(t *testing.T, url string, want int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, want, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestSearch(t *testing.T) {
	ts, eng, _ := newTestServer(t, true)

	var resp SearchResponse
	getJSON(t, ts.URL+"/api/search?q=IRON", http.StatusOK, &resp)
	assert.Equal(t, "IRON", resp.Query)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, eng.Snapshot().ID, resp.SnapshotID)
	// ids ascending: Iron Ingot (19683) before Iron Ore (19699)
	assert.Equal(t, "Iron Ingot", resp.Items[0].Name)
	assert.Equal(t, "materials", resp.Items[0].Source)
	assert.Equal(t, 250, resp.Items[1].Count)

	getJSON(t, ts.URL+"/api/search?q=iron&limit=1", http.StatusOK, &resp)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 2, resp.Total)

	getJSON(t, ts.URL+"/api/search?q=rainbow", http.StatusOK, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "The Bifrost", resp.Items[0].Name)
	assert.Equal(t, "Legendary", resp.Items[0].Rarity)
	assert.Equal(t, "https://render.guildwars2.com/file/bifrost.png", resp.Items[0].Icon)
	assert.Equal(t, 4678, resp.Items[0].SkinID)

	getJSON(t, ts.URL+"/api/search?q=ir", http.StatusOK, &resp)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 3, resp.MinQueryLength)

	var errResp ErrorResponse
	getJSON(t, ts.URL+"/api/search?q=iron&limit=x", http.StatusBadRequest, &errResp)
	assert.Equal(t, "Invalid limit", errResp.Error)
}

func TestSearchNotReady(t *testing.T) {
	ts, _, _ := newTestServer(t, false)
	var errResp ErrorResponse
	getJSON(t, ts.URL+"/api/search?q=iron", http.StatusServiceUnavailable, &errResp)
	assert.Equal(t, engine.ErrNotReady.Error(), errResp.Message)
}

func TestItem(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var item CatalogItemResponse
	getJSON(t, ts.URL+"/api/items/4678", http.StatusOK, &item)
	assert.Equal(t, "Rainbow Skin", item.Name)
	require.Len(t, item.Owned, 1)
	assert.Equal(t, 30698, item.Owned[0].ItemID)

	var errResp ErrorResponse
	getJSON(t, ts.URL+"/api/items/1", http.StatusNotFound, &errResp)
	getJSON(t, ts.URL+"/api/items/abc", http.StatusBadRequest, &errResp)
}

func TestStatusAndRefresh(t *testing.T) {
	ts, eng, _ := newTestServer(t, false)

	var status StatusResponse
	getJSON(t, ts.URL+"/api/status", http.StatusOK, &status)
	assert.Equal(t, "uninitialized", status.State)
	assert.Nil(t, status.Snapshot)

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ready", status.State)
	require.NotNil(t, status.Snapshot)
	assert.Equal(t, eng.Snapshot().ID, status.Snapshot.ID)
	assert.Equal(t, 3, status.Snapshot.OwnedItems)
}

func TestRefreshDisabled(t *testing.T) {
	eng := engine.New(catalog.New(nil), staticFetcher{})
	mux := http.NewServeMux()
	NewServer(eng, nil, nil).RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

// ctxRefresher records the context it was handed.
type ctxRefresher struct {
	ctxErr      error
	hasDeadline bool
}

func (r *ctxRefresher) RefreshNow(ctx context.Context) (*engine.Snapshot, error) {
	r.ctxErr = ctx.Err()
	_, r.hasDeadline = ctx.Deadline()
	return nil, nil
}

func TestRefreshOutlivesClient(t *testing.T) {
	ref := &ctxRefresher{}
	srv := NewServer(engine.New(catalog.New(nil), staticFetcher{}), ref, nil, WithRefreshTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.HandleRefresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, ref.ctxErr, "refresh must not inherit the request cancellation")
	assert.True(t, ref.hasDeadline)
}

func TestSearchSnapshotIDMatchesResults(t *testing.T) {
	ts, eng, _ := newTestServer(t, true)

	var resp SearchResponse
	getJSON(t, ts.URL+"/api/search?q=iron", http.StatusOK, &resp)
	assert.Equal(t, eng.Snapshot().ID, resp.SnapshotID)

	_, err := eng.Initialize(context.Background(), perms)
	require.NoError(t, err)
	getJSON(t, ts.URL+"/api/search?q=iron", http.StatusOK, &resp)
	assert.Equal(t, eng.Snapshot().ID, resp.SnapshotID)
}

func TestHealthAndCors(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	var health HealthResponse
	getJSON(t, ts.URL+"/health", http.StatusOK, &health)
	assert.Equal(t, "ok", health.Status)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/search", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEventsWebsocket(t *testing.T) {
	ts, eng, hub := newTestServer(t, true)

	u, _ := url.Parse(ts.URL)
	u.Scheme = "ws"
	u.Path = "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello struct {
		Type   string         `json:"type"`
		Status StatusResponse `json:"status"`
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "init", hello.Type)
	assert.Equal(t, eng.Snapshot().ID, hello.Status.Snapshot.ID)
	assert.Equal(t, 1, hub.Size())

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()

	var ev realtime.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "snapshot", ev.Type)
	require.NotNil(t, ev.Snapshot)
	assert.Equal(t, eng.Snapshot().ID, ev.Snapshot.ID)
}
