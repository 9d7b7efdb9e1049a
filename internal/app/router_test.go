package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"jobmarket/internal/config"
	"jobmarket/internal/database"
	"jobmarket/internal/pkg/jwt"
	"jobmarket/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

type harness struct {
	t      *testing.T
	app    *App
	router *gin.Engine
}

func setup(t *testing.T) *harness {
	t.Helper()
	cfg := &config.Config{
		AppEnv:                "test",
		DatabaseURL:           database.MemoryDSN(t.Name()),
		FeedServerWindow:      100,
		FeedDefaultLimit:      20,
		NotificationRetention: time.Hour,
	}
	a, err := New(cfg, WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return &harness{t: t, app: a, router: a.Router(jwt.New("test-secret", time.Hour))}
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type authResult struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	AccessToken string `json:"accessToken"`
}

func (h *harness) register(email string, role session.Role, phone string) authResult {
	h.t.Helper()
	code, env := h.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": email, "password": "password123", "displayName": email, "phone": phone, "role": role,
	})
	require.Equal(h.t, http.StatusCreated, code, env.Error.Code)
	return decode[authResult](h.t, env)
}

func (h *harness) admin() string {
	h.t.Helper()
	res := h.register("admin@jobmarket.test", session.RoleEmployer, "1")
	ctx := session.WithPrincipal(context.Background(), session.System())
	require.NoError(h.t, h.app.Profiles.SetRole(ctx, res.User.ID, session.RoleAdmin))

	code, env := h.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "admin@jobmarket.test", "password": "password123"})
	require.Equal(h.t, http.StatusOK, code)
	return decode[authResult](h.t, env).AccessToken
}

var draft = gin.H{
	"title":             "Backend Developer",
	"company":           "Acme",
	"description":       "Go servisleri",
	"cityId":            "34",
	"district":          "Kadıköy",
	"jobTypeId":         "full-time",
	"sectorId":          "software",
	"experienceLevelId": "mid",
}

type listingView struct {
	ID               string   `json:"id"`
	ModerationStatus string   `json:"moderationStatus"`
	Applicants       []string `json:"applicants"`
}

func TestHealth(t *testing.T) {
	h := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"db":true`)
}

func TestReferenceIsPublic(t *testing.T) {
	h := setup(t)
	code, env := h.do(http.MethodGet, "/api/v1/reference", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "İstanbul")
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	h := setup(t)
	employer := h.register("ik@acme.test", session.RoleEmployer, "+90 212 000 00 00")
	seeker := h.register("ayse@example.test", session.RoleJobseeker, "+90 532 000 00 00")
	adminToken := h.admin()

	code, env := h.do(http.MethodPost, "/api/v1/listings", seeker.AccessToken, draft)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = h.do(http.MethodPost, "/api/v1/listings", employer.AccessToken, draft)
	require.Equal(t, http.StatusCreated, code, env.Error.Code)
	created := decode[listingView](t, env)
	assert.Equal(t, "pending", created.ModerationStatus)

	code, env = h.do(http.MethodGet, "/api/v1/listings", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]listingView](t, env))

	code, _ = h.do(http.MethodGet, "/api/v1/listings/"+created.ID, seeker.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = h.do(http.MethodGet, "/api/v1/admin/listings?status=pending", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]listingView](t, env), 1)

	code, _ = h.do(http.MethodPatch, "/api/v1/admin/listings/"+created.ID+"/moderation", employer.AccessToken, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = h.do(http.MethodPatch, "/api/v1/admin/listings/"+created.ID+"/moderation", adminToken, gin.H{"status": "approved"})
	require.Equal(t, http.StatusOK, code, env.Error.Code)

	code, env = h.do(http.MethodGet, "/api/v1/listings?city=34", "", nil)
	require.Equal(t, http.StatusOK, code)
	visible := decode[[]listingView](t, env)
	require.Len(t, visible, 1)
	assert.Equal(t, created.ID, visible[0].ID)

	code, env = h.do(http.MethodPost, "/api/v1/listings/"+created.ID+"/apply", employer.AccessToken, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SELF_APPLICATION", env.Error.Code)

	code, env = h.do(http.MethodPost, "/api/v1/listings/"+created.ID+"/apply", seeker.AccessToken, nil)
	require.Equal(t, http.StatusCreated, code, env.Error.Code)
	code, env = h.do(http.MethodPost, "/api/v1/listings/"+created.ID+"/apply", seeker.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"alreadyApplied":true}`, string(env.Data))
	h.app.Coordinator.Wait()

	code, env = h.do(http.MethodGet, "/api/v1/applications/mine", seeker.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]listingView](t, env), 1)

	code, _ = h.do(http.MethodGet, "/api/v1/listings/"+created.ID+"/applicants", seeker.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = h.do(http.MethodGet, "/api/v1/listings/"+created.ID+"/applicants", employer.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	type notificationList struct {
		Notifications []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Read  bool   `json:"read"`
		} `json:"notifications"`
		UnreadCount int `json:"unreadCount"`
	}
	code, env = h.do(http.MethodGet, "/api/v1/notifications", employer.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[notificationList](t, env)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "Yeni Başvuru", list.Notifications[0].Title)
	assert.Equal(t, 1, list.UnreadCount)

	notificationID := list.Notifications[0].ID
	code, _ = h.do(http.MethodPatch, "/api/v1/notifications/"+notificationID+"/read", seeker.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do(http.MethodPatch, "/api/v1/notifications/"+notificationID+"/read", employer.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(http.MethodGet, "/api/v1/notifications/unread-count", employer.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"unreadCount":0}`, string(env.Data))
}

func TestFavoritesOverHTTP(t *testing.T) {
	h := setup(t)
	employer := h.register("ik@acme.test", session.RoleEmployer, "1")
	seeker := h.register("ayse@example.test", session.RoleJobseeker, "2")
	other := h.register("mehmet@example.test", session.RoleJobseeker, "3")

	code, env := h.do(http.MethodPost, "/api/v1/listings", employer.AccessToken, draft)
	require.Equal(t, http.StatusCreated, code)
	jobID := decode[listingView](t, env).ID

	code, env = h.do(http.MethodPost, "/api/v1/favorites/"+jobID, seeker.AccessToken, nil)
	require.Equal(t, http.StatusCreated, code)
	favID := decode[struct {
		ID string `json:"id"`
	}](t, env).ID

	code, env = h.do(http.MethodGet, "/api/v1/favorites/"+jobID+"/check", seeker.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"isFavorited":true}`, string(env.Data))

	code, env = h.do(http.MethodGet, "/api/v1/favorites", seeker.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	code, _ = h.do(http.MethodDelete, "/api/v1/favorites/"+favID, other.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = h.do(http.MethodDelete, "/api/v1/favorites/"+favID, seeker.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(http.MethodGet, "/api/v1/favorites/"+jobID+"/check", seeker.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"isFavorited":false}`, string(env.Data))
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	h := setup(t)
	employer := h.register("ik@acme.test", session.RoleEmployer, "1")

	bad := gin.H{}
	for k, v := range draft {
		bad[k] = v
	}
	bad["cityId"] = "99"

	code, env := h.do(http.MethodPost, "/api/v1/listings", employer.AccessToken, bad)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "cityId")

	code, _ = h.do(http.MethodGet, "/api/v1/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoleChangeAppliesToExistingToken(t *testing.T) {
	h := setup(t)
	employer := h.register("boss@jobmarket.test", session.RoleEmployer, "5550001")

	code, _ := h.do(http.MethodGet, "/api/v1/admin/listings", employer.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	ctx := session.WithPrincipal(context.Background(), session.System())
	require.NoError(t, h.app.Profiles.SetRole(ctx, employer.User.ID, session.RoleAdmin))

	code, env := h.do(http.MethodGet, "/api/v1/admin/listings", employer.AccessToken, nil)
	require.Equal(t, http.StatusOK, code, env.Error.Code)

	// and demotion takes effect just as fast
	require.NoError(t, h.app.Profiles.SetRole(ctx, employer.User.ID, session.RoleJobseeker))
	code, _ = h.do(http.MethodPost, "/api/v1/listings", employer.AccessToken, draft)
	assert.Equal(t, http.StatusForbidden, code)
}
