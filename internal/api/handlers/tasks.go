package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/dto"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/api/middleware"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

type TaskHandler struct {
	db *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

// TaskRequest is shared by create and update. The creator and organization
// are taken from the session, never from the body.
type TaskRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	Status       string  `json:"status,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	AssignedToID *string `json:"assigned_to_id,omitempty"`
	ClientID     *string `json:"client_id,omitempty"`
}

func (r TaskRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Title == "" {
		errors["title"] = "Title is required"
	}
	if r.Priority != "" && !models.TaskPriority(r.Priority).Valid() {
		errors["priority"] = "Invalid priority"
	}
	if r.Status != "" && !models.TaskStatus(r.Status).Valid() {
		errors["status"] = "Invalid status"
	}
	if r.DueDate != nil && *r.DueDate != "" {
		if _, err := time.Parse(time.RFC3339, *r.DueDate); err != nil {
			errors["due_date"] = "Due date must be RFC 3339"
		}
	}
	if r.AssignedToID != nil && *r.AssignedToID != "" {
		if _, err := uuid.Parse(*r.AssignedToID); err != nil {
			errors["assigned_to_id"] = "Invalid assignee ID format"
		}
	}
	if r.ClientID != nil && *r.ClientID != "" {
		if _, err := uuid.Parse(*r.ClientID); err != nil {
			errors["client_id"] = "Invalid client ID format"
		}
	}
	return errors
}

// TaskResponse represents a task in API responses
type TaskResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Priority     string  `json:"priority"`
	Status       string  `json:"status"`
	DueDate      *string `json:"due_date,omitempty"`
	CreatedByID  string  `json:"created_by_id"`
	AssignedToID *string `json:"assigned_to_id,omitempty"`
	ClientID     *string `json:"client_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func taskToResponse(task *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		CreatedByID: task.CreatedByID.String(),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
	if task.DueDate != nil {
		s := task.DueDate.Format(time.RFC3339)
		resp.DueDate = &s
	}
	if task.AssignedToID != nil {
		s := task.AssignedToID.String()
		resp.AssignedToID = &s
	}
	if task.ClientID != nil {
		s := task.ClientID.String()
		resp.ClientID = &s
	}
	return resp
}

// List handles GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := dto.PaginationParams{Page: page, PerPage: perPage}
	pagination.Normalize()

	query := h.db.Model(&models.Task{}).Where("organization_id = ?", orgID)

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := r.URL.Query().Get("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if assignedTo := r.URL.Query().Get("assigned_to_id"); assignedTo != "" {
		query = query.Where("assigned_to_id = ?", assignedTo)
	}
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count tasks"})
		return
	}

	var taskList []models.Task
	if err := query.
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&taskList).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list tasks"})
		return
	}

	response := make([]TaskResponse, len(taskList))
	for i, task := range taskList {
		response[i] = taskToResponse(&task)
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Data:       response,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	task := models.Task{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       models.TaskPriorityMedium,
		Status:         models.TaskStatusTodo,
		OrganizationID: user.OrganizationID,
		CreatedByID:    user.ID,
	}

	if req.Priority != "" {
		task.Priority = models.TaskPriority(req.Priority)
	}
	if req.Status != "" {
		task.Status = models.TaskStatus(req.Status)
	}

	if ok := h.applyReferences(w, &task, req, user.OrganizationID); !ok {
		return
	}

	if err := h.db.Create(&task).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create task"})
		return
	}

	writeJSON(w, http.StatusCreated, taskToResponse(&task))
}

// applyReferences sets due date, assignee, and client from the request,
// verifying that referenced records belong to the same organization. It
// writes the error response and returns false on failure.
func (h *TaskHandler) applyReferences(w http.ResponseWriter, task *models.Task, req TaskRequest, orgID uuid.UUID) bool {
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			due, _ := time.Parse(time.RFC3339, *req.DueDate)
			task.DueDate = &due
		}
	}

	if req.AssignedToID != nil {
		if *req.AssignedToID == "" {
			task.AssignedToID = nil
		} else {
			id, _ := uuid.Parse(*req.AssignedToID)
			var assignee models.User
			if err := h.db.Where("id = ? AND organization_id = ?", id, orgID).First(&assignee).Error; err != nil {
				writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Assignee not found"})
				return false
			}
			task.AssignedToID = &id
		}
	}

	if req.ClientID != nil {
		if *req.ClientID == "" {
			task.ClientID = nil
		} else {
			id, _ := uuid.Parse(*req.ClientID)
			var client models.Client
			if err := h.db.Where("id = ? AND organization_id = ?", id, orgID).First(&client).Error; err != nil {
				writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
				return false
			}
			task.ClientID = &id
		}
	}

	return true
}

// Get handles GET /api/v1/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrganizationID(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid task ID"})
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND organization_id = ?", taskID, orgID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Task not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get task"})
		return
	}

	writeJSON(w, http.StatusOK, taskToResponse(&task))
}

// Update handles PUT /api/v1/tasks/{id}. Any member of the organization may
// update a task; the creator and organization fields never change.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid task ID"})
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errs})
		return
	}

	var task models.Task
	if err := h.db.Where("id = ? AND organization_id = ?", taskID, user.OrganizationID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Task not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get task"})
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	if req.Priority != "" {
		task.Priority = models.TaskPriority(req.Priority)
	}
	if req.Status != "" {
		task.Status = models.TaskStatus(req.Status)
	}

	if ok := h.applyReferences(w, &task, req, user.OrganizationID); !ok {
		return
	}

	if err := h.db.Save(&task).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update task"})
		return
	}

	writeJSON(w, http.StatusOK, taskToResponse(&task))
}

// Delete handles DELETE /api/v1/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if !auth.Can(user.Role, auth.ResourceTask, auth.ActionDelete) {
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid task ID"})
		return
	}

	result := h.db.Where("id = ? AND organization_id = ?", taskID, user.OrganizationID).
		Delete(&models.Task{})

	if result.Error != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to delete task"})
		return
	}

	if result.RowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Task not found"})
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Task deleted"})
}
