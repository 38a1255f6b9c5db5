package todo_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/Aidin1998/todokv/common/apiutil"
	"github.com/Aidin1998/todokv/internal/events"
	"github.com/Aidin1998/todokv/internal/kvstore"
	"github.com/Aidin1998/todokv/internal/todo"
	"github.com/Aidin1998/todokv/pkg/metrics"
	"github.com/Aidin1998/todokv/testutil"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const path = "/api/todo/"

type fixture struct {
	handler *todo.Handler
	router  *gin.Engine
	store   kvstore.Store
	metrics *metrics.Metrics
	logs    *observer.ObservedLogs
}

func setup(t *testing.T, publisher events.Publisher) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, logs := testutil.ObservedLogger()
	m := metrics.New(prometheus.NewRegistry())
	provider := kvstore.NewProvider(kvstore.NewMemoryBackend(), []string{todo.Namespace}, m, zap.NewNop())
	t.Cleanup(func() { _ = provider.Close() })

	store, err := provider.Namespace(context.Background(), todo.Namespace)
	require.NoError(t, err)

	h := todo.NewHandler(provider, publisher, logger, m)
	return &fixture{
		handler: h,
		router:  newRouter(h),
		store:   store,
		metrics: m,
		logs:    logs,
	}
}

func newRouter(h *todo.Handler) *gin.Engine {
	r := gin.New()
	r.Use(apiutil.RequestIDMiddleware())
	todo.RegisterRoutes(r, h)
	return r
}

func (f *fixture) list(t *testing.T) []string {
	t.Helper()
	w := testutil.Do(f.router, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp, "keys")
	return resp["keys"]
}

func TestScenario_CreateListDeleteList(t *testing.T) {
	f := setup(t, nil)

	w := testutil.Do(f.router, http.MethodPost, path, `{"text":"buy milk"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = testutil.Do(f.router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"keys":["buy milk"]}`, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	w = testutil.Do(f.router, http.MethodDelete, path, `{"text":"buy milk"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = testutil.Do(f.router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"keys":[]}`, w.Body.String())
}

func TestCreate_ThenListIncludes(t *testing.T) {
	f := setup(t, nil)
	for _, s := range []string{"a", "b c", "ünïcode", "with \"quotes\""} {
		body, _ := json.Marshal(map[string]string{"text": s})
		w := testutil.Do(f.router, http.MethodPost, path, string(body))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, f.list(t), s)
	}
}

func TestDelete_ThenListExcludes(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.store.Put(context.Background(), "a", ""))
	require.NoError(t, f.store.Put(context.Background(), "b", ""))

	w := testutil.Do(f.router, http.MethodDelete, path, `{"text":"a"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"b"}, f.list(t))
}

func TestDelete_NeverCreated(t *testing.T) {
	f := setup(t, nil)

	w := testutil.Do(f.router, http.MethodDelete, path, `{"text":"ghost"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCreate_Twice(t *testing.T) {
	f := setup(t, nil)
	for i := 0; i < 2; i++ {
		w := testutil.Do(f.router, http.MethodPost, path, `{"text":"a"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, []string{"a"}, f.list(t))
}

func TestCreate_ExtraFieldsIgnored(t *testing.T) {
	f := setup(t, nil)
	w := testutil.Do(f.router, http.MethodPost, path, `{"text":"a","done":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a"}, f.list(t))
}

func TestInputFailures(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
		kind    string
	}{
		{"no body", "", "Error getting body", "body_unparsable"},
		{"not json", "buy milk", "Error getting body", "body_unparsable"},
		{"truncated json", `{"text":"a"`, "Error getting body", "body_unparsable"},
		{"trailing garbage", `{"text":"a"} x`, "Error getting body", "body_unparsable"},
		{"missing text", `{"title":"a"}`, "Error getting text", "field_missing"},
		{"array body", `["a"]`, "Error getting text", "field_missing"},
		{"string body", `"a"`, "Error getting text", "field_missing"},
		{"null body", `null`, "Error getting text", "field_missing"},
		{"number text", `{"text":5}`, "Error getting text: Nil", "field_wrong_type"},
		{"null text", `{"text":null}`, "Error getting text: Nil", "field_wrong_type"},
		{"object text", `{"text":{"a":1}}`, "Error getting text: Nil", "field_wrong_type"},
	}

	for _, method := range []string{http.MethodPost, http.MethodDelete} {
		for _, tc := range cases {
			t.Run(method+" "+tc.name, func(t *testing.T) {
				f := setup(t, nil)
				require.NoError(t, f.store.Put(context.Background(), "a", ""))

				w := testutil.Do(f.router, method, path, tc.body)
				assert.Equal(t, http.StatusInternalServerError, w.Code)
				assert.Equal(t, tc.message, w.Body.String())
				assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.FailuresTotal.WithLabelValues(tc.kind)))

				// store untouched
				assert.Equal(t, []string{"a"}, f.list(t))

				entries := f.logs.FilterMessage(tc.message).All()
				require.Len(t, entries, 1)
				assert.Equal(t, tc.kind, entries[0].ContextMap()["kind"])
				assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
			})
		}
	}
}

func TestCreate_EmptyTextIsStoreFailure(t *testing.T) {
	f := setup(t, nil)

	w := testutil.Do(f.router, http.MethodPost, path, `{"text":""}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error creating todo", w.Body.String())
	assert.Empty(t, f.list(t))
}

// failingProvider cannot hand out a store.
type failingProvider struct{}

func (failingProvider) Namespace(context.Context, string) (kvstore.Store, error) {
	return nil, kvstore.ErrClosed
}

func TestStoreUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := metrics.New(prometheus.NewRegistry())
	router := newRouter(todo.NewHandler(failingProvider{}, nil, zap.NewNop(), m))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := testutil.Do(router, method, path, `{"text":"a"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code, method)
		assert.Equal(t, "Error getting todos", w.Body.String(), method)
	}
	assert.Equal(t, 3.0, promtest.ToFloat64(m.FailuresTotal.WithLabelValues("store_unavailable")))
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListKeys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *mockStore) Put(ctx context.Context, key, value string) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type staticProvider struct {
	store kvstore.Store
}

func (p staticProvider) Namespace(_ context.Context, name string) (kvstore.Store, error) {
	if name != todo.Namespace {
		return nil, kvstore.ErrUnknownNamespace
	}
	return p.store, nil
}

func TestStoreOperationFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	boom := errors.New("backend down")

	st := &mockStore{}
	st.On("ListKeys", mock.Anything).Return(nil, boom)
	st.On("Put", mock.Anything, "a", "").Return(boom)
	st.On("Delete", mock.Anything, "a").Return(boom)

	m := metrics.New(prometheus.NewRegistry())
	router := newRouter(todo.NewHandler(staticProvider{st}, nil, zap.NewNop(), m))

	w := testutil.Do(router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error getting todos", w.Body.String())

	w = testutil.Do(router, http.MethodPost, path, `{"text":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error creating todo", w.Body.String())

	w = testutil.Do(router, http.MethodDelete, path, `{"text":"a"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error deleting todo", w.Body.String())

	st.AssertExpectations(t)
	assert.Equal(t, 3.0, promtest.ToFloat64(m.FailuresTotal.WithLabelValues("store_operation_failed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.OperationsTotal.WithLabelValues("create", "error")))
}

func TestList_NilKeysRenderAsEmptyArray(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := &mockStore{}
	st.On("ListKeys", mock.Anything).Return(nil, nil)
	router := newRouter(todo.NewHandler(staticProvider{st}, nil, zap.NewNop(), nil))

	w := testutil.Do(router, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"keys":[]}`, w.Body.String())
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) recorded() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

func TestPublishesChangeEvents(t *testing.T) {
	pub := &recordingPublisher{}
	f := setup(t, pub)

	req := `{"text":"buy milk"}`
	require.Equal(t, http.StatusOK, testutil.Do(f.router, http.MethodPost, path, req).Code)
	f.handler.Wait()
	require.Equal(t, http.StatusOK, testutil.Do(f.router, http.MethodDelete, path, req).Code)
	// failures publish nothing
	testutil.Do(f.router, http.MethodPost, path, `{"text":5}`)
	f.handler.Wait()

	got := pub.recorded()
	require.Len(t, got, 2)
	assert.Equal(t, events.TodoCreated, got[0].Type)
	assert.Equal(t, events.TodoDeleted, got[1].Type)
	for _, e := range got {
		assert.Equal(t, "buy milk", e.Text)
		assert.Equal(t, todo.Namespace, e.Namespace)
		assert.NotEmpty(t, e.RequestID)
		assert.False(t, e.OccurredAt.IsZero())
	}
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EventsPublished.WithLabelValues("todo.created", "ok")))
}

func TestPublishFailureKeepsSuccessResponse(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := setup(t, pub)

	w := testutil.Do(f.router, http.MethodPost, path, `{"text":"a"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, []string{"a"}, f.list(t))

	f.handler.Wait()
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EventsPublished.WithLabelValues("todo.created", "error")))
	assert.Equal(t, 1, f.logs.FilterMessage("Failed to publish todo event").Len())
}

// blockingPublisher holds every Publish until release is closed.
type blockingPublisher struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingPublisher) Publish(ctx context.Context, _ events.Event) error {
	p.started <- struct{}{}
	<-p.release
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }

func TestPublishDoesNotHoldResponse(t *testing.T) {
	pub := &blockingPublisher{started: make(chan struct{}, 1), release: make(chan struct{})}
	f := setup(t, pub)

	w := testutil.Do(f.router, http.MethodPost, path, `{"text":"a"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	<-pub.started
	close(pub.release)
	f.handler.Wait()
	// the publish context outlives the request
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EventsPublished.WithLabelValues("todo.created", "ok")))
}

func TestPublishDropsBeyondPendingLimit(t *testing.T) {
	const limit = 256
	pub := &blockingPublisher{started: make(chan struct{}, limit), release: make(chan struct{})}
	f := setup(t, pub)

	for i := 0; i < limit; i++ {
		body := fmt.Sprintf(`{"text":"todo %d"}`, i)
		require.Equal(t, http.StatusOK, testutil.Do(f.router, http.MethodPost, path, body).Code)
	}
	w := testutil.Do(f.router, http.MethodPost, path, `{"text":"one too many"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, f.list(t), "one too many")
	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.EventsPublished.WithLabelValues("todo.created", "dropped")))

	close(pub.release)
	f.handler.Wait()
	assert.Equal(t, float64(limit), promtest.ToFloat64(f.metrics.EventsPublished.WithLabelValues("todo.created", "ok")))
}
