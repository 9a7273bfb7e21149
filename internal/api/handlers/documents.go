package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/dto"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/middleware"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/storage"
)

// maxUploadSize caps document uploads at 25 MB.
const maxUploadSize = 25 << 20

type DocumentHandler struct {
	db     *gorm.DB
	store  storage.Store
	logger *slog.Logger
}

func NewDocumentHandler(db *gorm.DB, store storage.Store, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{db: db, store: store, logger: logger}
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	FileURL      string  `json:"file_url"`
	FileType     string  `json:"file_type,omitempty"`
	FileSize     int64   `json:"file_size"`
	Status       string  `json:"status"`
	UploadedByID string  `json:"uploaded_by_id"`
	ClientID     *string `json:"client_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func documentToResponse(doc *models.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID.String(),
		Name:         doc.Name,
		Description:  doc.Description,
		FileURL:      doc.FileURL,
		FileType:     doc.FileType,
		FileSize:     doc.FileSize,
		Status:       string(doc.Status),
		UploadedByID: doc.UploadedByID.String(),
		CreatedAt:    doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    doc.UpdatedAt.Format(time.RFC3339),
	}
	if doc.ClientID != nil {
		s := doc.ClientID.String()
		resp.ClientID = &s
	}
	return resp
}

// scopedQuery restricts documents to the caller's organization. Users with
// the CLIENT role only ever see documents linked to their own client record.
func (h *DocumentHandler) scopedQuery(user *middleware.AuthenticatedUser) *gorm.DB {
	query := h.db.Model(&models.Document{}).Where("organization_id = ?", user.OrganizationID)
	if user.Role == models.RoleClient {
		query = query.Where("client_id = ?", user.ID)
	}
	return query
}

// List handles GET /api/v1/documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.scopedQuery(user)

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count documents"})
		return
	}

	var docs []models.Document
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&docs).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list documents"})
		return
	}

	response := make([]DocumentResponse, len(docs))
	for i, doc := range docs {
		response[i] = documentToResponse(&doc)
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/documents as a multipart upload. Any member
// of the organization may upload.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if !auth.Can(user.Role, auth.ResourceDocument, auth.ActionCreate) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "File is required"})
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	status := models.DocumentStatus(r.FormValue("status"))
	if status == "" {
		status = models.DocumentStatusDraft
	}
	if !status.Valid() {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid document status"})
		return
	}

	var clientID *uuid.UUID
	if raw := r.FormValue("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid client ID"})
			return
		}
		// Clients from other organizations are reported as missing.
		var client models.Client
		if err := h.db.Where("id = ? AND organization_id = ?", id, user.OrganizationID).First(&client).Error; err != nil {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
			return
		}
		clientID = &id
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("documents/%s/%s-%s", user.OrganizationID, uuid.New(), filepath.Base(header.Filename))
	fileURL, err := h.store.Upload(r.Context(), key, contentType, header.Size, file)
	if err != nil {
		h.logger.Error("document upload failed", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to upload file"})
		return
	}

	doc := models.Document{
		Name:           name,
		Description:    r.FormValue("description"),
		FileURL:        fileURL,
		FileKey:        key,
		FileType:       contentType,
		FileSize:       header.Size,
		Status:         status,
		OrganizationID: user.OrganizationID,
		UploadedByID:   user.ID,
		ClientID:       clientID,
	}

	if err := h.db.Create(&doc).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create document"})
		return
	}

	writeJSON(w, http.StatusCreated, documentToResponse(&doc))
}

// Get handles GET /api/v1/documents/{id}
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.scopedQuery(user).Where("id = ?", docID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get document"})
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// UpdateDocumentRequest updates document metadata. The file itself, the
// organization, and the uploader are immutable.
type UpdateDocumentRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	ClientID    *string `json:"client_id"`
}

func (r UpdateDocumentRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	if r.Status != "" && !models.DocumentStatus(r.Status).Valid() {
		errors["status"] = "Invalid document status"
	}
	if r.ClientID != nil && *r.ClientID != "" {
		if _, err := uuid.Parse(*r.ClientID); err != nil {
			errors["client_id"] = "Invalid client ID format"
		}
	}
	return errors
}

// Update handles PUT /api/v1/documents/{id}
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.db.Where("id = ? AND organization_id = ?", docID, user.OrganizationID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get document"})
		return
	}

	if !auth.CanAsOwner(user.Role, auth.ResourceDocument, auth.ActionUpdate, user.ID, doc.UploadedByID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	doc.Name = req.Name
	doc.Description = req.Description
	if req.Status != "" {
		doc.Status = models.DocumentStatus(req.Status)
	}

	if req.ClientID != nil {
		if *req.ClientID == "" {
			doc.ClientID = nil
		} else {
			id, _ := uuid.Parse(*req.ClientID)
			var client models.Client
			if err := h.db.Where("id = ? AND organization_id = ?", id, user.OrganizationID).First(&client).Error; err != nil {
				writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
				return
			}
			doc.ClientID = &id
		}
	}

	if err := h.db.Save(&doc).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update document"})
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// Delete handles DELETE /api/v1/documents/{id}
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.db.Where("id = ? AND organization_id = ?", docID, user.OrganizationID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get document"})
		return
	}

	if !auth.CanAsOwner(user.Role, auth.ResourceDocument, auth.ActionDelete, user.ID, doc.UploadedByID) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	// The database row is the source of truth; a failed object delete
	// leaves an orphan in the bucket, which the sweep can reclaim later.
	if doc.FileKey != "" {
		if err := h.store.Delete(r.Context(), doc.FileKey); err != nil {
			h.logger.Warn("deleting stored file failed", "key", doc.FileKey, "error", err)
		}
	}

	if err := h.db.Delete(&doc).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete document"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Document deleted"})
}

// DownloadResponse carries a time-limited URL for the stored file.
type DownloadResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// Download handles GET /api/v1/documents/{id}/download
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	docID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid document ID"})
		return
	}

	var doc models.Document
	if err := h.scopedQuery(user).Where("id = ?", docID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Document not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get document"})
		return
	}

	if doc.FileKey == "" {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Document has no stored file"})
		return
	}

	url, err := h.store.PresignDownload(r.Context(), doc.FileKey)
	if err != nil {
		h.logger.Error("presigning download failed", "key", doc.FileKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to generate download link"})
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		URL:       url,
		ExpiresIn: int(storage.DownloadLinkTTL.Seconds()),
	})
}
