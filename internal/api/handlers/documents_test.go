package handlers_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/dto"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/handlers"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/middleware"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/testutil"
)

func setupDocumentTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	handler := handlers.NewDocumentHandler(tc.DB, tc.Store, discardLogger())

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService, tc.DB))
		r.Route("/api/v1/documents", func(r chi.Router) {
			r.Get("/", handler.List)
			r.Post("/", handler.Create)
			r.Get("/{id}", handler.Get)
			r.Put("/{id}", handler.Update)
			r.Delete("/{id}", handler.Delete)
			r.Get("/{id}/download", handler.Download)
		})
	})

	return r, tc
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func uploadDocument(t *testing.T, router *chi.Mux, token string, fields map[string]string) handlers.DocumentResponse {
	t.Helper()

	body, contentType := multipartUpload(t, fields, "report.pdf", []byte("pdf-bytes"))
	req := httptest.NewRequest("POST", "/api/v1/documents/", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	var resp handlers.DocumentResponse
	testutil.ParseJSONResponse(t, rr, &resp)
	return resp
}

func TestDocumentHandler_Create(t *testing.T) {
	router, tc := setupDocumentTestRouter(t)
	defer tc.Cleanup()

	t.Run("staff uploads a document", func(t *testing.T) {
		_, staffToken := tc.UserWithRole(t, models.RoleStaff)

		resp := uploadDocument(t, router, staffToken, map[string]string{
			"name":        "Q1 Report",
			"description": "Quarterly figures",
		})

		assert.Equal(t, "Q1 Report", resp.Name)
		assert.Equal(t, string(models.DocumentStatusDraft), resp.Status)
		assert.NotEmpty(t, resp.FileURL)

		// The bytes landed in the store
		assert.Len(t, tc.Store.Objects, 1)
	})

	t.Run("defaults name to filename", func(t *testing.T) {
		resp := uploadDocument(t, router, tc.Token, map[string]string{})
		assert.Equal(t, "report.pdf", resp.Name)
	})

	t.Run("file is required", func(t *testing.T) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("name", "No File"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest("POST", "/api/v1/documents/", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tc.Token)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		body, contentType := multipartUpload(t, map[string]string{"status": "BOGUS"}, "x.pdf", []byte("x"))
		req := httptest.NewRequest("POST", "/api/v1/documents/", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+tc.Token)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("rejects client from another organization", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		foreign := testutil.CreateTestClient(t, tc.DB, otherOrg.ID)

		body, contentType := multipartUpload(t, map[string]string{"client_id": foreign.ID.String()}, "x.pdf", []byte("x"))
		req := httptest.NewRequest("POST", "/api/v1/documents/", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+tc.Token)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestDocumentHandler_List(t *testing.T) {
	router, tc := setupDocumentTestRouter(t)
	defer tc.Cleanup()

	testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)
	testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)

	otherOrg := testutil.CreateTestOrg(t, tc.DB)
	otherUser := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleAdmin)
	testutil.CreateTestDocument(t, tc.DB, otherOrg.ID, otherUser.ID)

	t.Run("lists only own organization", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/documents/", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.PaginatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(2), resp.Total)
	})

	t.Run("client role sees only linked documents", func(t *testing.T) {
		clientUser, clientToken := tc.UserWithRole(t, models.RoleClient)

		// One document linked to this client user, amongst the others
		linked := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)
		require.NoError(t, tc.DB.Model(linked).Update("client_id", clientUser.ID).Error)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/documents/", nil, clientToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.PaginatedResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, int64(1), resp.Total)
	})
}

func TestDocumentHandler_Update(t *testing.T) {
	router, tc := setupDocumentTestRouter(t)
	defer tc.Cleanup()

	t.Run("uploader updates own document", func(t *testing.T) {
		staff, staffToken := tc.UserWithRole(t, models.RoleStaff)
		doc := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, staff.ID)

		body := map[string]string{"name": "Renamed", "status": string(models.DocumentStatusShared)}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/documents/"+doc.ID.String(), body, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var fresh models.Document
		require.NoError(t, tc.DB.First(&fresh, doc.ID).Error)
		assert.Equal(t, "Renamed", fresh.Name)
		assert.Equal(t, models.DocumentStatusShared, fresh.Status)
	})

	t.Run("staff cannot update another user's document", func(t *testing.T) {
		_, staffToken := tc.UserWithRole(t, models.RoleStaff)
		doc := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)

		body := map[string]string{"name": "Hijacked"}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/documents/"+doc.ID.String(), body, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("manager updates any document", func(t *testing.T) {
		staff, _ := tc.UserWithRole(t, models.RoleStaff)
		_, managerToken := tc.UserWithRole(t, models.RoleManager)
		doc := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, staff.ID)

		body := map[string]string{"name": "Manager Renamed"}
		req := testutil.AuthenticatedRequest(t, "PUT", "/api/v1/documents/"+doc.ID.String(), body, managerToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})
}

func TestDocumentHandler_Delete(t *testing.T) {
	router, tc := setupDocumentTestRouter(t)
	defer tc.Cleanup()

	t.Run("uploader deletes own document and its file", func(t *testing.T) {
		_, staffToken := tc.UserWithRole(t, models.RoleStaff)

		resp := uploadDocument(t, router, staffToken, map[string]string{"name": "Mine"})
		require.Len(t, tc.Store.Objects, 1)

		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/documents/"+resp.ID, nil, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Len(t, tc.Store.Objects, 0, "stored file should be removed")
	})

	t.Run("staff cannot delete another user's document", func(t *testing.T) {
		_, staffToken := tc.UserWithRole(t, models.RoleStaff)
		doc := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)

		req := testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/documents/"+doc.ID.String(), nil, staffToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})
}

func TestDocumentHandler_Download(t *testing.T) {
	router, tc := setupDocumentTestRouter(t)
	defer tc.Cleanup()

	doc := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)

	t.Run("returns a signed link", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/documents/"+doc.ID.String()+"/download", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp handlers.DownloadResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.URL, "signed=1")
		assert.Greater(t, resp.ExpiresIn, 0)
	})

	t.Run("client role cannot download unlinked documents", func(t *testing.T) {
		_, clientToken := tc.UserWithRole(t, models.RoleClient)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/documents/"+doc.ID.String()+"/download", nil, clientToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("client role downloads own document", func(t *testing.T) {
		clientUser, clientToken := tc.UserWithRole(t, models.RoleClient)
		linked := testutil.CreateTestDocument(t, tc.DB, tc.Org.ID, tc.User.ID)
		require.NoError(t, tc.DB.Model(linked).Update("client_id", clientUser.ID).Error)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/documents/"+linked.ID.String()+"/download", nil, clientToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("cross-tenant document reads as missing", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, tc.DB)
		otherUser := testutil.CreateTestUser(t, tc.DB, otherOrg, models.RoleAdmin)
		foreign := testutil.CreateTestDocument(t, tc.DB, otherOrg.ID, otherUser.ID)

		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/documents/"+foreign.ID.String()+"/download", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}
