package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdash/apps/api/internal/auth"
	"rentdash/apps/api/internal/credstore"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var cookiePolicy = auth.CookiePolicy{
	Names: auth.CookieNames{
		AccessToken:   "access-token",
		RefreshToken:  "refresh-token",
		AdminSession:  "admin-session",
		SessionExpiry: "session-expiry",
	},
	Secure: true,
}

// fakeStore accepts refresh token "good" (and anything starting with
// "good"), rotating it; "slow" blocks until the context ends.
type fakeStore struct {
	calls     atomic.Int32
	expiresIn int
}

func (s *fakeStore) SignIn(context.Context, string, string) (*credstore.Session, error) {
	return nil, credstore.ErrInvalidCredentials
}

func (s *fakeStore) RefreshSession(ctx context.Context, _, refresh string) (*credstore.Session, error) {
	s.calls.Add(1)
	switch refresh {
	case "good":
		return &credstore.Session{
			AccessToken:  "rotated-access",
			RefreshToken: "rotated-refresh",
			ExpiresIn:    s.expiresIn,
			User:         credstore.User{ID: "u-admin", Email: "boss@example.com"},
		}, nil
	case "good-plain":
		return &credstore.Session{
			AccessToken:  "rotated-access",
			RefreshToken: "rotated-refresh",
			User:         credstore.User{ID: "u-plain", Email: "clerk@example.com"},
		}, nil
	case "slow":
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %v", credstore.ErrStoreUnavailable, ctx.Err())
	default:
		return nil, credstore.ErrInvalidRefreshToken
	}
}

func (s *fakeStore) SignOut(context.Context, string) error { return nil }

type fakeRegistry struct {
	calls atomic.Int32
	err   error
}

func (r *fakeRegistry) FindByUserAndRole(_ context.Context, userID string, role models.AdminRole) (models.AdminRecord, error) {
	r.calls.Add(1)
	if r.err != nil {
		return models.AdminRecord{}, r.err
	}
	if userID == "u-admin" && role == models.AdminRoleAdmin {
		return models.AdminRecord{UserID: userID, Email: "boss@example.com", Role: role}, nil
	}
	return models.AdminRecord{}, repository.ErrAdminNotFound
}

type harness struct {
	engine   *gin.Engine
	store    *fakeStore
	registry *fakeRegistry
	reached  atomic.Int32
	metrics  *Metrics
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	t.Helper()
	return buildHarness(t, timeout, nil)
}

// buildHarness optionally restricts some page routes to admins.
func buildHarness(t *testing.T, timeout time.Duration, pageAdmin []string) *harness {
	t.Helper()

	h := &harness{store: &fakeStore{}, registry: &fakeRegistry{}}
	h.metrics = NewMetrics(prometheus.NewRegistry())

	pages, err := auth.NewClassifier(auth.RouteSets{
		AuthPassthrough:         []string{"/api/auth/login(|/)", "/api/auth/logout(|/)"},
		Protected:               []string{"/dashboard(|/)", "/orders(|/)", "/users(|/)", "/products(|/)", "/payments-table(|/)"},
		RedirectIfAuthenticated: []string{"/"},
		Admin:                   pageAdmin,
	})
	require.NoError(t, err)

	api, err := auth.NewClassifier(auth.RouteSets{
		AuthPassthrough: []string{"/api/auth/login(|/)", "/api/auth/logout(|/)"},
		Protected:       []string{"/api/guestbook(|/**)", "/api/admins(|/**)"},
		Admin:           []string{"/api/admins(|/**)"},
	})
	require.NoError(t, err)

	resolver := auth.NewResolver(h.store, cookiePolicy, timeout)
	admins := auth.NewAdminCache(h.registry, 5*time.Minute)

	h.engine = gin.New()
	h.engine.Use(
		Authorize(AuthorizeConfig{Name: "pages", Routes: pages, Mode: RedirectOnFailure, Resolver: resolver, Admins: admins, Log: zerolog.Nop(), Metrics: h.metrics}),
		Authorize(AuthorizeConfig{Name: "api", Routes: api, Mode: JSONOnFailure, Resolver: resolver, Admins: admins, Log: zerolog.Nop(), Metrics: h.metrics}),
	)

	handler := func(c *gin.Context) {
		h.reached.Add(1)
		id, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"email": CurrentEmail(c), "userId": id.UserID})
	}
	for _, p := range []string{"/", "/dashboard", "/dashboard/", "/dashboard/sub/path", "/orders", "/about",
		"/api/guestbook", "/api/guestbook/:id", "/api/admins", "/api/auth/login", "/api/auth/logout"} {
		h.engine.GET(p, handler)
	}
	return h
}

func (h *harness) do(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func session(refresh string) []*http.Cookie {
	return []*http.Cookie{
		{Name: "access-token", Value: "some-access"},
		{Name: "refresh-token", Value: refresh},
	}
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNoCredentialsRedirectsWithoutStoreCall(t *testing.T) {
	h := newHarness(t, time.Second)

	rec := h.do("/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// Half a session is no session.
	rec = h.do("/dashboard", &http.Cookie{Name: "access-token", Value: "a"})
	assert.Equal(t, http.StatusFound, rec.Code)

	assert.Zero(t, h.store.calls.Load())
	assert.Zero(t, h.reached.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.authDecisions.WithLabelValues("pages", "no_credentials")))
}

func TestValidSessionRotatesCookies(t *testing.T) {
	h := newHarness(t, time.Second)
	h.store.expiresIn = 1200

	rec := h.do("/dashboard", session("good")...)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "boss@example.com", body["email"])
	assert.Equal(t, "u-admin", body["userId"])

	access := responseCookie(rec, "access-token")
	require.NotNil(t, access)
	assert.Equal(t, "rotated-access", access.Value)
	assert.Equal(t, 1200, access.MaxAge)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteStrictMode, access.SameSite)
	assert.Equal(t, "/", access.Path)

	refresh := responseCookie(rec, "refresh-token")
	require.NotNil(t, refresh)
	assert.Equal(t, "rotated-refresh", refresh.Value)
	assert.Equal(t, 7*24*60*60, refresh.MaxAge)
}

func TestValidSessionDefaultAccessMaxAge(t *testing.T) {
	h := newHarness(t, time.Second)

	rec := h.do("/orders", session("good")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3600, responseCookie(rec, "access-token").MaxAge)
	assert.Equal(t, 7*24*60*60, responseCookie(rec, "refresh-token").MaxAge)
}

func TestInvalidRefreshClearsCookiesAndRedirects(t *testing.T) {
	h := newHarness(t, time.Second)

	rec := h.do("/dashboard/", session("revoked")...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	for _, name := range []string{"access-token", "refresh-token"} {
		c := responseCookie(rec, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
	assert.Zero(t, h.reached.Load())
}

func TestStoreTimeoutFailsClosed(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	rec := h.do("/dashboard", session("slow")...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.NotNil(t, responseCookie(rec, "refresh-token"))
	assert.Zero(t, h.reached.Load())
}

func TestHomePageBounce(t *testing.T) {
	h := newHarness(t, time.Second)

	// Presence is enough; the store is not asked.
	rec := h.do("/", session("anything")...)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Zero(t, h.store.calls.Load())

	rec = h.do("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), h.reached.Load())
}

func TestUnclassifiedPathsContinue(t *testing.T) {
	h := newHarness(t, time.Second)

	assert.Equal(t, http.StatusOK, h.do("/about").Code)
	// Only the declared optional trailing slash is covered.
	assert.Equal(t, http.StatusOK, h.do("/dashboard/sub/path").Code)
	assert.Zero(t, h.store.calls.Load())
}

func TestAPIFailuresAnswerJSON(t *testing.T) {
	h := newHarness(t, time.Second)

	page := h.do("/dashboard", session("revoked")...)
	assert.Equal(t, http.StatusFound, page.Code)

	api := h.do("/api/guestbook", session("revoked")...)
	assert.Equal(t, http.StatusUnauthorized, api.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, api.Body.String())
	assert.NotNil(t, responseCookie(api, "access-token"))

	none := h.do("/api/guestbook/42")
	assert.Equal(t, http.StatusUnauthorized, none.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, none.Body.String())
}

func TestAuthPassthroughNeverResolves(t *testing.T) {
	h := newHarness(t, time.Second)

	for _, cookies := range [][]*http.Cookie{nil, session("revoked"), session("good")} {
		assert.Equal(t, http.StatusOK, h.do("/api/auth/login", cookies...).Code)
		assert.Equal(t, http.StatusOK, h.do("/api/auth/logout", cookies...).Code)
	}
	assert.Zero(t, h.store.calls.Load())
	assert.Equal(t, int32(6), h.reached.Load())
}

func TestAdminGate(t *testing.T) {
	h := newHarness(t, time.Second)

	rec := h.do("/api/admins", session("good")...)
	assert.Equal(t, http.StatusOK, rec.Code)

	notAdmin := h.do("/api/admins", session("good-plain")...)
	invalid := h.do("/api/admins", session("revoked")...)
	assert.Equal(t, http.StatusUnauthorized, notAdmin.Code)
	assert.Equal(t, invalid.Code, notAdmin.Code)
	assert.Equal(t, invalid.Body.String(), notAdmin.Body.String())

	// Guestbook needs a session, not an admin.
	assert.Equal(t, http.StatusOK, h.do("/api/guestbook", session("good-plain")...).Code)
}

func TestAdminGateUsesCache(t *testing.T) {
	h := newHarness(t, time.Second)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, h.do("/api/admins", session("good")...).Code)
	}
	assert.Equal(t, int32(1), h.registry.calls.Load())
}

func TestAdminRegistryErrorFailsClosed(t *testing.T) {
	h := newHarness(t, time.Second)
	h.registry.err = errors.New("registry down")

	rec := h.do("/api/admins", session("good")...)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestConcurrentRotationDegradesToRedirect(t *testing.T) {
	h := newHarness(t, time.Second)

	// One request wins the rotation, the racer presents a spent token.
	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, refresh := range []string{"good", "spent"} {
		wg.Add(1)
		go func(i int, refresh string) {
			defer wg.Done()
			codes[i] = h.do("/dashboard", session(refresh)...).Code
		}(i, refresh)
	}
	wg.Wait()

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusFound, codes[1])
}

// follow replays a browser: it keeps cookies between hops and stops at the
// first non-redirect response.
func (h *harness) follow(t *testing.T, path string, cookies []*http.Cookie) (*httptest.ResponseRecorder, []string) {
	t.Helper()

	jar := map[string]*http.Cookie{}
	for _, c := range cookies {
		jar[c.Name] = c
	}
	var hops []string
	for i := 0; i < 6; i++ {
		hops = append(hops, path)
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for _, c := range jar {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
		rec := httptest.NewRecorder()
		h.engine.ServeHTTP(rec, req)

		for _, c := range rec.Result().Cookies() {
			if c.MaxAge < 0 {
				delete(jar, c.Name)
				continue
			}
			jar[c.Name] = c
		}
		if rec.Code != http.StatusFound {
			return rec, hops
		}
		path = rec.Header().Get("Location")
	}
	t.Fatalf("redirect loop: %v", hops)
	return nil, hops
}

func TestPageAdminRejectionLogsOut(t *testing.T) {
	h := buildHarness(t, time.Second, []string{"/dashboard(|/)"})

	rec, hops := h.follow(t, "/dashboard", session("good-plain"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/dashboard", "/"}, hops)

	first := h.do("/dashboard", session("good-plain")...)
	require.Equal(t, http.StatusFound, first.Code)
	for _, name := range []string{"access-token", "refresh-token"} {
		c := responseCookie(first, name)
		require.NotNil(t, c, name)
		assert.Negative(t, c.MaxAge, name)
	}

	// Admins still reach the page and keep their rotated session.
	ok := h.do("/dashboard", session("good")...)
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "rotated-refresh", responseCookie(ok, "refresh-token").Value)
}

func TestAPIAdminRejectionKeepsSession(t *testing.T) {
	h := newHarness(t, time.Second)

	rec := h.do("/api/admins", session("good-plain")...)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "rotated-refresh", responseCookie(rec, "refresh-token").Value)
}
