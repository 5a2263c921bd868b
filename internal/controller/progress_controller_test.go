package controller_test

import (
	"bytes"
	"context"
	"edu_progress_backend/internal/controller"
	"edu_progress_backend/internal/middleware"
	"edu_progress_backend/internal/model"
	"edu_progress_backend/internal/repository"
	"edu_progress_backend/internal/service"
	"edu_progress_backend/internal/testutil"
	"edu_progress_backend/internal/util"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type freeTier struct{}

func (freeTier) Tier(ctx context.Context, userID uint) (model.SubscriptionTier, error) {
	return model.TierFree, nil
}

type apiResponse struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *model.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	catalog := service.NewCatalogService(nil)
	require.NoError(t, catalog.Load([]*model.Course{testutil.TwoByTwoCourse()}))

	policy := service.DefaultPolicy()
	policy.Location = time.UTC
	completion := service.NewCompletionService(
		repository.NewUserRepository(db),
		repository.NewProgressRepository(db),
		repository.NewBadgeRepository(db),
		repository.NewAttemptRepository(db),
		catalog,
		freeTier{},
		service.NewPolicyStore(policy),
		testutil.NewClock(time.Now().UTC()),
	)

	progress := controller.NewProgressController(completion)
	catalogCtl := controller.NewCatalogController(catalog)
	subscriptions := controller.NewSubscriptionController(
		service.NewSubscriptionService(repository.NewSubscriptionRepository(db), nil, time.Minute))

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(testSecret))
	api.POST("/courses/:courseId/enroll", progress.Enroll)
	api.GET("/courses/:courseId/progress", progress.GetProgress)
	api.POST("/lessons/:slug/complete", progress.CompleteLesson)
	api.POST("/lessons/:slug/quiz", progress.SubmitLessonQuiz)
	api.POST("/exams/:slug/submit", progress.SubmitFinalExam)
	api.GET("/me/attempts", progress.ListAttempts)
	api.GET("/catalog/courses/:idOrSlug", catalogCtl.GetCourse)
	admin := api.Group("/admin", middleware.RoleMiddleware(model.Admin))
	admin.POST("/catalog/refresh", catalogCtl.Refresh)
	admin.PUT("/subscriptions/:userId", subscriptions.UpdateTier)

	return r, testutil.SeedUser(t, db, "alice")
}

func doRequest(t *testing.T, r http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func tokenFor(t *testing.T, userID uint, role model.UserRole) string {
	t.Helper()
	token, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestRequiresBearerToken(t *testing.T) {
	r, _ := setupRouter(t)

	w, _ := doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/complete", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/complete", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCompleteLessonEndpoint(t *testing.T) {
	r, user := setupRouter(t)
	token := tokenFor(t, user.ID, model.Student)

	w, resp := doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/complete", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(100), resp.Data["xpGained"])
	assert.Equal(t, float64(25), resp.Data["completionPercentage"])
	assert.Equal(t, "lesson-1-2", resp.Data["nextItemSlug"])

	w, _ = doRequest(t, r, http.MethodPost, "/api/lessons/unknown/complete", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doRequest(t, r, http.MethodPost, "/api/courses/course-1/enroll", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = doRequest(t, r, http.MethodGet, "/api/courses/course-1/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "course-1", resp.Data["courseId"])
}

func TestLessonQuizQuotaResponse(t *testing.T) {
	r, user := setupRouter(t)
	token := tokenFor(t, user.ID, model.Student)

	w, _ := doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/quiz", token, gin.H{"score": 90})
	assert.Equal(t, http.StatusNotFound, w.Code, "quiz requires enrollment")

	w, _ = doRequest(t, r, http.MethodPost, "/api/courses/course-1/enroll", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, resp := doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/quiz", token, gin.H{"score": 90})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(145), resp.Data["xpGained"])
	assert.Equal(t, true, resp.Data["passed"])

	w, resp = doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/quiz", token, gin.H{"score": 90})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, float64(1), resp.Data["limit"])

	w, resp = doRequest(t, r, http.MethodPost, "/api/lessons/lesson-1-1/quiz", token, gin.H{"score": 101})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "score", resp.Data["field"])
}

func TestListAttemptsRejectsBadLimit(t *testing.T) {
	r, user := setupRouter(t)
	token := tokenFor(t, user.ID, model.Student)

	w, _ := doRequest(t, r, http.MethodGet, "/api/me/attempts?limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r, user := setupRouter(t)

	w, resp := doRequest(t, r, http.MethodGet, "/api/catalog/courses/course-one", tokenFor(t, user.ID, model.Student), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "course-1", resp.Data["id"])

	w, _ = doRequest(t, r, http.MethodPost, "/api/admin/catalog/refresh", tokenFor(t, user.ID, model.Student), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateTierEndpoint(t *testing.T) {
	r, user := setupRouter(t)
	path := fmt.Sprintf("/api/admin/subscriptions/%d", user.ID)

	w, _ := doRequest(t, r, http.MethodPut, path, tokenFor(t, user.ID, model.Student), gin.H{"tier": "PRO"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := tokenFor(t, 999, model.Admin)
	w, resp := doRequest(t, r, http.MethodPut, path, admin, gin.H{"tier": "PRO"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PRO", resp.Data["tier"])

	w, resp = doRequest(t, r, http.MethodPut, path, admin, gin.H{"tier": "GOLD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "tier", resp.Data["field"])

	w, _ = doRequest(t, r, http.MethodPut, "/api/admin/subscriptions/abc", admin, gin.H{"tier": "PRO"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
