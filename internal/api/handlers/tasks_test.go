package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/dto"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/handlers"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/middleware"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/testutil"
)

func setupTaskTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	handler := handlers.NewTaskHandler(tc.DB)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService, tc.DB))
		r.Route("/api/v1/tasks", func(r chi.Router) {
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Get("/{id}", handler.Get)
			r.Put("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
		})
	})

	return r, tc
}

func TestTaskHandler_Create(t *testing.T) {
	router, tc := setupTaskTestRouter(t)
	defer tc.Cleanup()

	t.Run("staff creates a task with defaults", func(t *testing.T) {
		staff, staffToken := tc.UserWithRole(t, models.RoleStaff)

		body := map[string]string{"title": "Chase invoices"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/tasks/", body, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp handlers.TaskResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, "Chase invoices", resp.Title)
		assert.Equal(t, string(models.TaskPriorityMedium), resp.Priority)
		assert.Equal(t, string(models.TaskStatusTodo), resp.Status)
		assert.Equal(t, staff.ID.String(), resp.CreatedByID)
	})

	t.Run("creates with assignee, client and due date", func(t *testing.T) {
		assignee, _ := tc.UserWithRole(t, models.RoleManager)
		client := testutil.CreateTestClient(t, tc.DB, tc.Org.ID)
		due := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)

		body := map[string]any{
			"title":          "Prepare annual accounts",
			"priority":       string(models.TaskPriorityHigh),
			"due_date":       due,
			"assigned_to_id": assignee.ID.String(),
			"client_id":      client.ID.String(),
		}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/tasks/", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp handlers.TaskResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		require.NotNil(t, resp.AssignedToID)
		assert.Equal(t, assignee.ID.String(), *resp.AssignedToID)
		require.NotNil(t, resp.ClientID)
		assert.Equal(t, client.ID.String(), *resp.ClientID)
		require.NotNil(t, resp.DueDate)
	})

	t.Run("requires a title", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/tasks/", map[string]string{}, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)

		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "title")
	})

	t.Run("rejects invalid priority", func(t *testing.T) {
		body := map[string]string{"title": "x", "priority": "CRITICAL"}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/tasks/", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("rejects assignee from another organization", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		outsider := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleStaff)

		body := map[string]string{"title": "x", "assigned_to_id": outsider.ID.String()}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/tasks/", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("rejects client from another organization", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		foreign := testutil.CreateTestClient(t, tc.DB, otherOrg.ID)

		body := map[string]string{"title": "x", "client_id": foreign.ID.String()}
		req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/tasks/", body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestTaskHandler_List(t *testing.T) {
	router, tc := setupTaskTestRouter(t)
	defer tc.Cleanup()

	task1 := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)
	testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)

	otherOrg := testutil.CreateTestOrg(t, tc.DB)
	otherUser := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleAdmin)
	testutil.CreateTestTask(t, tc.DB, otherOrg.ID, otherUser.ID)

	t.Run("lists only own organization", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/tasks/", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.PaginatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("filters by status", func(t *testing.T) {
		require.NoError(t, tc.DB.Model(task1).Update("status", models.TaskStatusCompleted).Error)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/tasks/?status=COMPLETED", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.PaginatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(1), resp.Total)
	})

	t.Run("filters by assignee", func(t *testing.T) {
		assignee, _ := tc.UserWithRole(t, models.RoleStaff)
		require.NoError(t, tc.DB.Model(task1).Update("assigned_to_id", assignee.ID).Error)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/tasks/?assigned_to_id="+assignee.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.PaginatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(1), resp.Total)
	})
}

func TestTaskHandler_Get(t *testing.T) {
	router, tc := setupTaskTestRouter(t)
	defer tc.Cleanup()

	task := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)

	t.Run("returns own task", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/tasks/"+task.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("cross-tenant task reads as missing", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		otherUser := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleAdmin)
		foreign := testutil.CreateTestTask(t, tc.DB, otherOrg.ID, otherUser.ID)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/tasks/"+foreign.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestTaskHandler_Update(t *testing.T) {
	router, tc := setupTaskTestRouter(t)
	defer tc.Cleanup()

	t.Run("staff updates a task they did not create", func(t *testing.T) {
		_, staffToken := tc.UserWithRole(t, models.RoleStaff)
		task := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)

		body := map[string]string{"title": "Updated title", "status": string(models.TaskStatusInProgress)}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/tasks/"+task.ID.String(), body, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var fresh models.Task
		require.NoError(t, tc.DB.First(&fresh, task.ID).Error)
		assert.Equal(t, "Updated title", fresh.Title)
		assert.Equal(t, models.TaskStatusInProgress, fresh.Status)
		assert.Equal(t, tc.User.ID, fresh.CreatedByID, "creator must not change")
	})

	t.Run("body cannot change organization or creator", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		otherUser := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleAdmin)
		task := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)

		body := map[string]string{
			"title":           "Still mine",
			"organization_id": otherOrg.ID.String(),
			"created_by_id":   otherUser.ID.String(),
		}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/tasks/"+task.ID.String(), body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var fresh models.Task
		require.NoError(t, tc.DB.First(&fresh, task.ID).Error)
		assert.Equal(t, tc.Org.ID, fresh.OrganizationID)
		assert.Equal(t, tc.User.ID, fresh.CreatedByID)
	})

	t.Run("clearing the assignee", func(t *testing.T) {
		assignee, _ := tc.UserWithRole(t, models.RoleStaff)
		task := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)
		require.NoError(t, tc.DB.Model(task).Update("assigned_to_id", assignee.ID).Error)

		empty := ""
		body := handlers.TaskRequest{Title: task.Title, AssignedToID: &empty}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/tasks/"+task.ID.String(), body, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var fresh models.Task
		require.NoError(t, tc.DB.First(&fresh, task.ID).Error)
		assert.Nil(t, fresh.AssignedToID)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	router, tc := setupTaskTestRouter(t)
	defer tc.Cleanup()

	t.Run("manager deletes a task", func(t *testing.T) {
		_, managerToken := tc.UserWithRole(t, models.RoleManager)
		task := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)

		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/tasks/"+task.ID.String(), nil, managerToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("staff cannot delete", func(t *testing.T) {
		_, staffToken := tc.UserWithRole(t, models.RoleStaff)
		task := testutil.CreateTestTask(t, tc.DB, tc.Org.ID, tc.User.ID)

		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/tasks/"+task.ID.String(), nil, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("cross-tenant delete reads as missing", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		otherUser := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleAdmin)
		foreign := testutil.CreateTestTask(t, tc.DB, otherOrg.ID, otherUser.ID)

		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/tasks/"+foreign.ID.String(), nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
