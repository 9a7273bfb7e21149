package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/James-Kabz/CLIENT-PORTAL/internal/auth"
	"github.com/James-Kabz/CLIENT-PORTAL/internal/database/models"
)

// TestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.VerificationToken{},
		&models.Client{},
		&models.Document{},
		&models.Task{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestOrg creates a test organization
func CreateTestOrg(t *testing.T, db *gorm.DB) *models.Organization {
	t.Helper()

	suffix := uuid.New().String()[:8]
	org := &models.Organization{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name: "Test Organization " + suffix,
		Slug: "test-org-" + suffix,
	}

	if err := db.Create(org).Error; err != nil {
		t.Fatalf("failed to create test organization: %v", err)
	}

	return org
}

// CreateTestUser creates a verified test user with the given organization and role
func CreateTestUser(t *testing.T, db *gorm.DB, org *models.Organization, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("Testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now()
	user := &models.User{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:            "Test User",
		Email:           "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:    hash,
		Role:            role,
		OrganizationID:  org.ID,
		EmailVerifiedAt: &now,
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	user.Organization = org
	return user
}

// CreateUnverifiedUser creates a test user that has not redeemed a
// verification token yet
func CreateUnverifiedUser(t *testing.T, db *gorm.DB, org *models.Organization) *models.User {
	t.Helper()

	user := CreateTestUser(t, db, org, models.RoleAdmin)
	if err := db.Model(user).Update("email_verified_at", nil).Error; err != nil {
		t.Fatalf("failed to clear verification: %v", err)
	}
	user.EmailVerifiedAt = nil
	return user
}

// CreateTestClient creates a test client record
func CreateTestClient(t *testing.T, db *gorm.DB, orgID uuid.UUID) *models.Client {
	t.Helper()

	client := &models.Client{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:           "Test Client",
		Email:          "client-" + uuid.New().String()[:8] + "@example.com",
		OrganizationID: orgID,
	}

	if err := db.Create(client).Error; err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}

	return client
}

// CreateTestDocument creates a test document uploaded by the given user
func CreateTestDocument(t *testing.T, db *gorm.DB, orgID, uploadedByID uuid.UUID) *models.Document {
	t.Helper()

	doc := &models.Document{
		Base: models.Base{
			ID: uuid.New(),
		},
		Name:           "Test Document",
		FileURL:        "https://files.example.com/test.pdf",
		FileKey:        "documents/" + orgID.String() + "/" + uuid.New().String() + "-test.pdf",
		FileType:       "application/pdf",
		FileSize:       1024,
		Status:         models.DocumentStatusDraft,
		OrganizationID: orgID,
		UploadedByID:   uploadedByID,
	}

	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("failed to create test document: %v", err)
	}

	return doc
}

// CreateTestTask creates a test task created by the given user
func CreateTestTask(t *testing.T, db *gorm.DB, orgID, createdByID uuid.UUID) *models.Task {
	t.Helper()

	task := &models.Task{
		Base: models.Base{
			ID: uuid.New(),
		},
		Title:          "Test Task",
		Priority:       models.TaskPriorityMedium,
		Status:         models.TaskStatusTodo,
		OrganizationID: orgID,
		CreatedByID:    createdByID,
	}

	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create test task: %v", err)
	}

	return task
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.OrganizationID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// SentMail records a single outbound email from the fake mailer.
type SentMail struct {
	Kind  string // "verification", "reset", "welcome"
	To    string
	Name  string
	Token string
}

// FakeMailer records sends instead of talking to SMTP. Set Err to make
// every send fail.
type FakeMailer struct {
	mu   sync.Mutex
	Sent []SentMail
	Err  error
}

func (m *FakeMailer) SendVerification(ctx context.Context, to, name, token string) error {
	return m.record(SentMail{Kind: "verification", To: to, Name: name, Token: token})
}

func (m *FakeMailer) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return m.record(SentMail{Kind: "reset", To: to, Name: name, Token: token})
}

func (m *FakeMailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.record(SentMail{Kind: "welcome", To: to, Name: name})
}

func (m *FakeMailer) record(mail SentMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, mail)
	return nil
}

// LastMail returns the most recent send, or nil.
func (m *FakeMailer) LastMail() *SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return nil
	}
	mail := m.Sent[len(m.Sent)-1]
	return &mail
}

// FakeStore keeps uploaded files in memory.
type FakeStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Objects: make(map[string][]byte)}
}

func (s *FakeStore) Upload(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.Objects[key] = data
	return "https://files.test/" + key, nil
}

func (s *FakeStore) PresignDownload(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return "https://files.test/" + key + "?signed=1", nil
}

func (s *FakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.Objects, key)
	return nil
}

// TestSetup holds all the common test dependencies
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	Org        *models.Organization
	User       *models.User
	Token      string
	Mailer     *FakeMailer
	Store      *FakeStore
}

// NewTestContext creates a complete test setup with DB, org, admin user,
// and token
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	org := CreateTestOrg(t, db)
	user := CreateTestUser(t, db, org, models.RoleAdmin)
	token := GenerateTestToken(t, jwtService, user)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		Org:        org,
		User:       user,
		Token:      token,
		Mailer:     &FakeMailer{},
		Store:      NewFakeStore(),
	}
}

// UserWithRole creates another user in the setup's org with the given role
// and returns the user and a token for them.
func (ts *TestSetup) UserWithRole(t *testing.T, role models.Role) (*models.User, string) {
	t.Helper()
	user := CreateTestUser(t, ts.DB, ts.Org, role)
	return user, GenerateTestToken(t, ts.JWTService, user)
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
