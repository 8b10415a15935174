package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/client/apitest"
	"github.com/dmitrijs2005/authkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/authkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	api    *apitest.Server
	store  *credentials.Store
	client *Client

	mu     sync.Mutex
	causes []error
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store, err := credentials.Open(context.Background(), credentials.NewMemoryPersistence())
	require.NoError(t, err)

	f := &fixture{api: apitest.New(t), store: store}
	hook := WithSessionEndHook(func(ctx context.Context, cause error) {
		f.mu.Lock()
		f.causes = append(f.causes, cause)
		f.mu.Unlock()
	})
	f.client = New(f.api.URL, store, append([]Option{hook}, opts...)...)
	return f
}

// signIn stores a record for a fresh account; negative TTLs give expired tokens.
func (f *fixture) signIn(t *testing.T, role models.Role, accessTTL, refreshTTL time.Duration) models.User {
	t.Helper()
	u := f.api.AddUser(models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: role}, "pw")
	access := f.api.MintAccess(u.Email, accessTTL)
	refresh := f.api.MintRefresh(u.Email, refreshTTL)
	require.NoError(t, f.store.Set(context.Background(), access, refresh, u))
	return u
}

func (f *fixture) sessionEnds() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.causes...)
}

func TestRequest_AttachesBearerAndDefaultHeaders(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, time.Hour, time.Hour)
	access, _ := f.store.AccessToken()

	res, err := f.client.Request(context.Background(), http.MethodPost, "/echo",
		map[string]int{"a": 1}, http.Header{"X-Custom": {"yes"}})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.JSONEq(t, `{"body":{"a":1}}`, string(res.Body))

	reqs := f.api.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer "+access, reqs[0].Authorization)
	assert.Equal(t, "application/json", reqs[0].ContentType)
	assert.Equal(t, "yes", reqs[0].Header.Get("X-Custom"))
	assert.NotEmpty(t, reqs[0].RequestID)
	assert.Equal(t, reqs[0].RequestID, res.RequestID)
}

func TestRequest_CallerHeadersWinExceptAuthorization(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, time.Hour, time.Hour)
	access, _ := f.store.AccessToken()

	header := http.Header{}
	header.Set("Content-Type", "application/vnd.api+json")
	header.Set("Authorization", "Bearer caller-supplied")
	header.Set("X-Request-ID", "fixed-id")

	_, err := f.client.Request(context.Background(), http.MethodPost, "/echo", map[string]int{"a": 1}, header)
	require.NoError(t, err)

	reqs := f.api.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "application/vnd.api+json", reqs[0].ContentType)
	assert.Equal(t, "Bearer "+access, reqs[0].Authorization)
	assert.Equal(t, "fixed-id", reqs[0].RequestID)
}

func TestRequest_UnauthenticatedGoesOutWithoutToken(t *testing.T) {
	f := newFixture(t)

	res, err := f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.EqualError(t, res.Err(), "request failed with status 401")

	assert.Empty(t, f.api.Requests()[0].Authorization)
	assert.Zero(t, f.api.RefreshCalls())
	assert.Empty(t, f.sessionEnds())
}

type accessOnlyStore struct {
	cleared atomic.Bool
}

func (s *accessOnlyStore) AccessToken() (string, bool)  { return "stale", true }
func (s *accessOnlyStore) RefreshToken() (string, bool) { return "", false }
func (s *accessOnlyStore) SetAccessToken(context.Context, string) error {
	return errors.New("unexpected")
}
func (s *accessOnlyStore) Clear(context.Context) error {
	s.cleared.Store(true)
	return nil
}

func TestRequest_NoRefreshTokenSurfacesFirst401(t *testing.T) {
	api := apitest.New(t)
	store := &accessOnlyStore{}
	c := New(api.URL, store)

	res, err := c.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Zero(t, api.RefreshCalls())
	assert.Equal(t, 1, api.CallsTo(http.MethodGet, "/protected"))
	assert.False(t, store.cleared.Load())
}

func TestRequest_ExpiredAccessIsRefreshedAndRetried(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleSuperAdmin, -time.Minute, time.Hour)
	f.api.AddUser(models.User{FirstName: "Bob", LastName: "B", Email: "bob@example.com"}, "pw")
	stale, _ := f.store.AccessToken()
	refresh, _ := f.store.RefreshToken()

	res, err := f.client.Request(context.Background(), http.MethodGet, "/admin/users", nil, nil)
	require.NoError(t, err)
	require.True(t, res.OK(), string(res.Body))

	var body struct {
		Users []models.User `json:"users"`
		Total int           `json:"total"`
	}
	require.NoError(t, res.Decode(&body))
	assert.Equal(t, 1, body.Total)

	assert.Equal(t, int64(1), f.api.RefreshCalls())
	assert.Equal(t, 2, f.api.CallsTo(http.MethodGet, "/admin/users"))

	fresh, ok := f.store.AccessToken()
	require.True(t, ok)
	assert.NotEqual(t, stale, fresh)
	keptRefresh, _ := f.store.RefreshToken()
	assert.Equal(t, refresh, keptRefresh)
	u, ok := f.store.User()
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", u.Email)

	reqs := f.api.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "Bearer "+stale, reqs[0].Authorization)
	assert.Equal(t, "/auth/refresh", reqs[1].Path)
	assert.Equal(t, "Bearer "+refresh, reqs[1].Authorization)
	assert.Equal(t, "Bearer "+fresh, reqs[2].Authorization)
	assert.Empty(t, f.sessionEnds())
}

func TestRequest_RetryReplaysBody(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, -time.Minute, time.Hour)

	res, err := f.client.Request(context.Background(), http.MethodPost, "/echo", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"body":{"k":"v"}}`, string(res.Body))
	assert.Equal(t, 2, f.api.CallsTo(http.MethodPost, "/echo"))
}

func TestRequest_RefreshFailureEndsSession(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture)
		refresh time.Duration
		wantIs  error
	}{
		{name: "refresh token expired", refresh: -time.Minute, wantIs: ErrUnauthorized},
		{name: "refresh rejected", refresh: time.Hour, prepare: func(f *fixture) { f.api.FailRefresh(true) }, wantIs: ErrUnauthorized},
		{name: "no access token in answer", refresh: time.Hour, prepare: func(f *fixture) { f.api.BreakRefresh(true) }, wantIs: errNoAccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.signIn(t, models.RoleSuperAdmin, -time.Minute, tt.refresh)
			if tt.prepare != nil {
				tt.prepare(f)
			}

			res, err := f.client.Request(context.Background(), http.MethodGet, "/admin/users", nil, nil)
			require.Nil(t, res)
			require.ErrorIs(t, err, ErrSessionExpired)
			assert.ErrorIs(t, err, tt.wantIs)

			assert.False(t, f.store.Authenticated())
			_, ok := f.store.RefreshToken()
			assert.False(t, ok)
			_, ok = f.store.User()
			assert.False(t, ok)

			assert.Equal(t, int64(1), f.api.RefreshCalls())
			assert.Equal(t, 1, f.api.CallsTo(http.MethodGet, "/admin/users"), "no retry after a failed refresh")
			require.Len(t, f.sessionEnds(), 1)
			assert.ErrorIs(t, f.sessionEnds()[0], tt.wantIs)
		})
	}
}

type failingRefreshTransport struct{}

func (failingRefreshTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Path == RefreshPath {
		return nil, errors.New("connection reset by peer")
	}
	return http.DefaultTransport.RoundTrip(r)
}

func TestRequest_RefreshTransportFailureEndsSession(t *testing.T) {
	f := newFixture(t, WithHTTPClient(&http.Client{Transport: failingRefreshTransport{}}))
	f.signIn(t, models.RoleUser, -time.Minute, time.Hour)

	_, err := f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, f.store.Authenticated())
	assert.Len(t, f.sessionEnds(), 1)
	assert.Equal(t, 1, f.api.CallsTo(http.MethodGet, "/protected"))
}

func TestRequest_SecondUnauthorizedIsSurfaced(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, time.Hour, time.Hour)
	stale, _ := f.store.AccessToken()
	f.api.RejectAccess(true)

	res, err := f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.ErrorIs(t, res.Err(), ErrUnauthorized)

	assert.Equal(t, int64(1), f.api.RefreshCalls())
	assert.Equal(t, 2, f.api.CallsTo(http.MethodGet, "/protected"))

	fresh, ok := f.store.AccessToken()
	require.True(t, ok, "a second 401 does not end the session")
	assert.NotEqual(t, stale, fresh)
	assert.Empty(t, f.sessionEnds())
}

func TestRequest_TransportFailure(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, time.Hour, time.Hour)
	f.api.Close()

	_, err := f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)

	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr))
	assert.True(t, f.store.Authenticated())
}

func TestRequest_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, -time.Minute, time.Hour)
	f.api.SetRefreshDelay(250 * time.Millisecond)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*Response, n)
	errs := make([]error, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), f.api.RefreshCalls())

	fresh, _ := f.store.AccessToken()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.True(t, results[i].OK())
	}

	withFresh := 0
	for _, r := range f.api.Requests() {
		if r.Path == "/protected" && r.Authorization == "Bearer "+fresh {
			withFresh++
		}
	}
	assert.Equal(t, n, withFresh, "every caller ends on the refreshed token")
}

func TestRequest_ConcurrentUnauthorizedShareOneFailure(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, -time.Minute, time.Hour)
	f.api.FailRefresh(true)
	f.api.SetRefreshDelay(250 * time.Millisecond)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
		}(i)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSessionExpired)
	}
	assert.Equal(t, int64(1), f.api.RefreshCalls())
	assert.Len(t, f.sessionEnds(), 1)
	assert.Equal(t, n, f.api.CallsTo(http.MethodGet, "/protected"), "nobody retries")
	assert.False(t, f.store.Authenticated())
}

func TestRequest_WaiterHonorsOwnContext(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, -time.Minute, time.Hour)
	stale, _ := f.store.AccessToken()
	f.api.SetRefreshDelay(300 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := f.client.Request(ctx, http.MethodGet, "/protected", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		cur, ok := f.store.AccessToken()
		return ok && cur != stale
	}, 2*time.Second, 20*time.Millisecond, "the shared refresh finishes without the canceled caller")
	assert.Equal(t, int64(1), f.api.RefreshCalls())
	assert.Empty(t, f.sessionEnds())
}

func TestRequest_LaterCallerReusesFinishedRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, -time.Minute, time.Hour)
	stale, _ := f.store.AccessToken()

	_, err := f.client.Request(context.Background(), http.MethodGet, "/protected", nil, nil)
	require.NoError(t, err)

	fresh, err := f.client.refreshAfter(context.Background(), stale)
	require.NoError(t, err)
	current, _ := f.store.AccessToken()
	assert.Equal(t, current, fresh)
	assert.Equal(t, int64(1), f.api.RefreshCalls())
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)

	_, err := f.client.Refresh(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, f.api.RefreshCalls())
	assert.Empty(t, f.sessionEnds(), "nothing to end")

	f.signIn(t, models.RoleUser, time.Hour, time.Hour)
	before, _ := f.store.AccessToken()

	got, err := f.client.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, got)
	after, _ := f.store.AccessToken()
	assert.Equal(t, got, after)
	assert.Equal(t, int64(1), f.api.RefreshCalls())
}

func TestRefreshIfExpiring(t *testing.T) {
	now := time.Now()

	t.Run("unauthenticated", func(t *testing.T) {
		f := newFixture(t)
		ran, err := f.client.RefreshIfExpiring(context.Background(), now, 5*time.Minute)
		require.NoError(t, err)
		assert.False(t, ran)
	})

	t.Run("far from expiry", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, models.RoleUser, time.Hour, time.Hour)
		ran, err := f.client.RefreshIfExpiring(context.Background(), now, 5*time.Minute)
		require.NoError(t, err)
		assert.False(t, ran)
		assert.Zero(t, f.api.RefreshCalls())
	})

	t.Run("inside window", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, models.RoleUser, 2*time.Minute, time.Hour)
		ran, err := f.client.RefreshIfExpiring(context.Background(), now, 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, int64(1), f.api.RefreshCalls())
	})

	t.Run("refresh fails", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, models.RoleUser, 2*time.Minute, -time.Minute)
		ran, err := f.client.RefreshIfExpiring(context.Background(), now, 5*time.Minute)
		require.ErrorIs(t, err, ErrSessionExpired)
		assert.False(t, ran)
		assert.False(t, f.store.Authenticated())
		assert.Len(t, f.sessionEnds(), 1)
	})
}

func TestCall(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleUser, time.Hour, time.Hour)
	ctx := context.Background()

	var out struct {
		Body map[string]string `json:"body"`
	}
	require.NoError(t, f.client.Post(ctx, "/echo", map[string]string{"x": "y"}, &out))
	assert.Equal(t, map[string]string{"x": "y"}, out.Body)

	err := f.client.Get(ctx, "/admin/users", nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.EqualError(t, err, "Super admin access required")

	require.NoError(t, f.client.Get(ctx, "/protected", nil))
}

func TestCall_NotFound(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, models.RoleSuperAdmin, time.Hour, time.Hour)

	err := f.client.Delete(context.Background(), "/admin/users/999", nil)
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualError(t, err, "User not found")

	err = f.client.Put(context.Background(), "/admin/users/999", map[string]string{"first_name": "x"}, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNew_Options(t *testing.T) {
	c := New("http://api.local/", nil)
	assert.Equal(t, "http://api.local", c.baseURL)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)

	c = New("http://api.local", nil, WithTimeout(0))
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestNew_TimeoutAndHTTPClient(t *testing.T) {
	transport := &http.Transport{}

	tests := []struct {
		name        string
		opts        func(hc *http.Client) []Option
		wantTimeout time.Duration
		wantSame    bool
		usesClient  bool
	}{
		{
			name:        "timeout only",
			opts:        func(*http.Client) []Option { return []Option{WithTimeout(3 * time.Second)} },
			wantTimeout: 3 * time.Second,
		},
		{
			name:        "client then timeout",
			usesClient:  true,
			opts:        func(hc *http.Client) []Option { return []Option{WithHTTPClient(hc), WithTimeout(3 * time.Second)} },
			wantTimeout: 3 * time.Second,
		},
		{
			name:        "timeout then client",
			usesClient:  true,
			opts:        func(hc *http.Client) []Option { return []Option{WithTimeout(3 * time.Second), WithHTTPClient(hc)} },
			wantTimeout: 3 * time.Second,
		},
		{
			name:        "client only",
			opts:        func(hc *http.Client) []Option { return []Option{WithHTTPClient(hc)} },
			wantTimeout: 42 * time.Second,
			wantSame:    true,
			usesClient:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &http.Client{Transport: transport, Timeout: 42 * time.Second}

			c := New("http://api.local", nil, tt.opts(hc)...)

			assert.Equal(t, tt.wantTimeout, c.http.Timeout)
			assert.Equal(t, 42*time.Second, hc.Timeout, "caller's client must not change")
			if tt.wantSame {
				assert.Same(t, hc, c.http)
			}
			if tt.usesClient {
				assert.Same(t, transport, c.http.Transport)
			}
		})
	}
}
