package lineage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lyzr/lineage/common/cache"
	"github.com/lyzr/lineage/common/clients"
	"github.com/lyzr/lineage/common/config"
	"github.com/lyzr/lineage/common/fetch"
	"github.com/lyzr/lineage/common/logger"
	"github.com/lyzr/lineage/common/metrics"
	"github.com/lyzr/lineage/common/ratelimit"
	"github.com/lyzr/lineage/common/sleeper"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream serves canned bodies by path; unknown paths are 404
type fakeUpstream struct {
	mu     sync.Mutex
	routes map[string]string
	status map[string]int
	hits   map[string]int
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	body, ok := f.routes[r.URL.Path]
	code, forced := f.status[r.URL.Path]
	f.mu.Unlock()

	if forced {
		http.Error(w, "upstream unavailable", code)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func (f *fakeUpstream) fail(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = code
}

func (f *fakeUpstream) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newTestEngine(t *testing.T, routes map[string]string, weeks int) (*Engine, *fakeUpstream, *metrics.Metrics) {
	t.Helper()

	up := &fakeUpstream{routes: routes, status: map[string]int{}, hits: map[string]int{}}
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	log := logger.Discard()
	m := metrics.NewNop()
	store := cache.NewMemoryStore(config.CacheTTL, log)
	t.Cleanup(func() { _ = store.Close() })

	pool, err := ratelimit.NewPool(4, m)
	require.NoError(t, err)

	f, err := fetch.NewFetcher(fetch.FetcherOpts{
		BaseURL: srv.URL,
		HTTP:    clients.NewHTTPClient(srv.Client(), log),
		Cache:   cache.New(store, config.CacheTTL, log, cache.WithMetrics(m)),
		Pool:    pool,
		Metrics: m,
		Logger:  log,
	})
	require.NoError(t, err)

	e, err := NewEngine(sleeper.NewClient(f), Options{WeeksPerSeason: weeks, Metrics: m, Logger: log})
	require.NoError(t, err)
	return e, up, m
}

func TestResolveTimeline_MissingPredecessorEndsWalk(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{
		"/league/300": `{"league_id":"300","season":"2024","previous_league_id":"200"}`,
		"/league/200": `{"league_id":"200","season":"2023","previous_league_id":"100"}`,
	}, 1)

	timeline, err := e.ResolveTimeline(context.Background(), "300")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "200", timeline[0].SeasonID)
	assert.Equal(t, "2023", timeline[0].Season)
	assert.Equal(t, "300", timeline[1].SeasonID)
}

func TestResolveTimeline_SingleSeason(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{
		"/league/1": `{"league_id":"1","season":"2024","previous_league_id":null}`,
	}, 1)

	timeline, err := e.ResolveTimeline(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Empty(t, timeline[0].PreviousSeasonID)
}

func TestResolveTimeline_UnknownLeague(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{}, 1)

	_, err := e.ResolveTimeline(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveTimeline_CycleHitsLimit(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]string{
		"/league/1": `{"league_id":"1","previous_league_id":"2"}`,
		"/league/2": `{"league_id":"2","previous_league_id":"1"}`,
	}, 1)

	_, err := e.ResolveTimeline(context.Background(), "1")
	assert.ErrorIs(t, err, ErrRecursionLimitExceeded)
}

func TestResolveTimeline_DepthLimit(t *testing.T) {
	routes := map[string]string{}
	for i := 1; i <= MaxSeasonDepth+5; i++ {
		routes[fmt.Sprintf("/league/%d", i)] = fmt.Sprintf(`{"league_id":"%d","previous_league_id":"%d"}`, i, i+1)
	}
	e, _, _ := newTestEngine(t, routes, 1)

	_, err := e.ResolveTimeline(context.Background(), "1")
	assert.ErrorIs(t, err, ErrRecursionLimitExceeded)
}

func TestResolveTimeline_PredecessorFailureSurfaces(t *testing.T) {
	e, up, _ := newTestEngine(t, map[string]string{
		"/league/2": `{"league_id":"2","previous_league_id":"1"}`,
	}, 1)
	up.fail("/league/1", http.StatusInternalServerError)

	_, err := e.ResolveTimeline(context.Background(), "2")
	var upstreamErr *fetch.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusInternalServerError, upstreamErr.StatusCode)
}

// leagueRoutes is a one-season league: roster 1 drafts P, trades it in week 1
// for Q, a failed waiver in week 2, and no week 3 at all.
func leagueRoutes() map[string]string {
	return map[string]string{
		"/league/100": `{"league_id":"100","name":"Dynasty","season":"2023","total_rosters":2,"previous_league_id":null,"draft_id":"d1"}`,
		"/league/100/transactions/1": `[{"transaction_id":"t1","type":"trade","status":"complete","status_updated":5000,"leg":1,
			"roster_ids":[1,2],"adds":{"P":2,"Q":1},"drops":{"P":1,"Q":2},
			"draft_picks":[{"season":"2024","round":1,"roster_id":2,"previous_owner_id":2,"owner_id":1}]}]`,
		"/league/100/transactions/2": `[{"transaction_id":"t2","type":"waiver","status":"failed","status_updated":6000,"adds":{"Q":2}}]`,
		"/league/100/drafts":         `[{"draft_id":"d1","season":"2023","status":"complete","start_time":1000}]`,
		"/draft/d1":                  `{"draft_id":"d1","season":"2023","slot_to_roster_id":{"1":1,"2":2}}`,
		"/draft/d1/picks": `[{"player_id":"P","roster_id":1,"round":1,"draft_slot":1,"pick_no":1,"metadata":{"first_name":"Pat","last_name":"Player","position":"RB"}},
			{"player_id":"Q","roster_id":2,"round":1,"draft_slot":2,"pick_no":2,"metadata":{"first_name":"Quinn","last_name":"Q","position":"WR"}}]`,
		"/league/100/rosters": `[{"roster_id":1,"owner_id":"u1"},{"roster_id":2,"owner_id":"u2"}]`,
		"/league/100/users":   `[{"user_id":"u1","display_name":"alice"},{"user_id":"u2","username":"bob"}]`,
	}
}

func TestBuildIndex_FetchesAllWeeksAndDrafts(t *testing.T) {
	e, up, _ := newTestEngine(t, leagueRoutes(), 3)
	ctx := context.Background()

	timeline, err := e.ResolveTimeline(ctx, "100")
	require.NoError(t, err)

	idx, err := e.BuildIndex(ctx, timeline)
	require.NoError(t, err)

	// the failed waiver is skipped, the missing week contributes nothing
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, 1, up.hitCount("/league/100/transactions/3"))
	assert.Equal(t, "alice", idx.ManagerName(1))
	assert.Equal(t, "bob", idx.ManagerName(2))

	sel, ok := idx.Selection("2023_1_1")
	require.True(t, ok)
	assert.Equal(t, "P", sel.PlayerID)

	tx := idx.Transactions()[0]
	assert.Equal(t, 1, tx.Adds["2024_1_2"])
	assert.Equal(t, 2, tx.Drops["2024_1_2"])
	assert.Equal(t, "100", tx.SeasonID)
}

func TestResolveChain_EndToEnd(t *testing.T) {
	e, up, m := newTestEngine(t, leagueRoutes(), 3)
	ctx := context.Background()

	timeline, err := e.ResolveTimeline(ctx, "100")
	require.NoError(t, err)

	chain, err := e.ResolveChain(ctx, timeline, 1, "P")
	require.NoError(t, err)

	assert.Equal(t, "100", chain.LeagueID)
	assert.Equal(t, "alice", chain.ManagerName)
	assert.Equal(t, "Pat Player", chain.Asset.Name)
	assert.Equal(t, AcquiredDrafted, chain.Acquisition.Kind)
	require.Len(t, chain.Branches, 1)

	b := chain.Branches[0]
	assert.Equal(t, []string{"Q", "2024_1_2"}, assetIDs(b.Received))
	assert.Equal(t, "bob", b.Destination.HolderName)
	require.Len(t, b.Outcomes, 2)
	assert.Equal(t, OutcomeHeld, b.Outcomes[0].Status)
	assert.Equal(t, OutcomePendingDraft, b.Outcomes[1].Status)

	// a second resolution is served entirely from cache
	_, err = e.ResolveChain(ctx, timeline, 1, "P")
	require.NoError(t, err)
	assert.Equal(t, 1, up.hitCount("/league/100/transactions/1"))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChainsResolved.WithLabelValues("ok")))
}

func TestResolveChain_NoTradeHistory(t *testing.T) {
	e, _, _ := newTestEngine(t, leagueRoutes(), 3)
	ctx := context.Background()

	timeline, err := e.ResolveTimeline(ctx, "100")
	require.NoError(t, err)

	chain, err := e.ResolveChain(ctx, timeline, 2, "R")
	require.NoError(t, err)
	assert.Empty(t, chain.Branches)
}

func TestResolveChain_WeekFailureFailsRequest(t *testing.T) {
	e, up, m := newTestEngine(t, leagueRoutes(), 3)
	up.fail("/league/100/transactions/2", http.StatusBadGateway)
	ctx := context.Background()

	timeline, err := e.ResolveTimeline(ctx, "100")
	require.NoError(t, err)

	_, err = e.ResolveChain(ctx, timeline, 1, "P")
	var upstreamErr *fetch.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainsResolved.WithLabelValues("error")))
}

func TestBuildIndex_FailedWeekDoesNotCancelSiblings(t *testing.T) {
	const weeks = 18
	e, up, _ := newTestEngine(t, leagueRoutes(), weeks)
	up.fail("/league/100/transactions/1", http.StatusBadGateway)
	ctx := context.Background()

	timeline, err := e.ResolveTimeline(ctx, "100")
	require.NoError(t, err)

	_, err = e.BuildIndex(ctx, timeline)
	var upstreamErr *fetch.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusBadGateway, upstreamErr.StatusCode)

	for week := 1; week <= weeks; week++ {
		assert.Equal(t, 1, up.hitCount(fmt.Sprintf("/league/100/transactions/%d", week)), "week %d", week)
	}
	assert.Equal(t, 1, up.hitCount("/draft/d1/picks"))
	assert.Equal(t, 1, up.hitCount("/league/100/users"))
}

func TestResolveChain_InvalidInput(t *testing.T) {
	e, _, _ := newTestEngine(t, leagueRoutes(), 1)
	timeline := []SeasonRecord{{SeasonID: "100", Season: "2023", TotalRosters: 2}}

	_, err := e.ResolveChain(context.Background(), timeline, 1, "")
	assert.ErrorIs(t, err, ErrInvalidAsset)

	_, err = e.ResolveChain(context.Background(), timeline, 0, "P")
	assert.ErrorIs(t, err, ErrInvalidRoster)

	_, err = e.ResolveChain(context.Background(), timeline, 3, "P")
	assert.ErrorIs(t, err, ErrInvalidRoster)
}

func TestResolveChain_Cancelled(t *testing.T) {
	e, _, _ := newTestEngine(t, leagueRoutes(), 3)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := e.ResolveChain(ctx, []SeasonRecord{{SeasonID: "100", Season: "2023"}}, 1, "P")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
