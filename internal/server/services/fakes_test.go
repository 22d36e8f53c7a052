package services

import (
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/dbx"
	"github.com/dmitrijs2005/docchat/internal/server/backend"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/chats"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/users"
	"github.com/dmitrijs2005/docchat/internal/server/storage"
	"github.com/google/uuid"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// --- repository manager ---

type fakeRepoManager struct {
	users *fakeUsersRepo
	docs  *fakeDocumentsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository               { return m.users }
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository       { return m.docs }
func (m *fakeRepoManager) Chats(dbx.DBTX) chats.Repository               { return nil }
func (m *fakeRepoManager) RevokedTokens(dbx.DBTX) revokedtokens.Repository {
	return nil
}

// --- users ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	lookErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	f.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookErr != nil {
		return nil, f.lookErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsersRepo) List(context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.byID {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeUsersRepo) UpdateRole(_ context.Context, id, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byID, id)
	return nil
}

// --- chats ---

type fakeChatsRepo struct {
	mu          sync.Mutex
	chats       map[string]*models.Chat
	deletedUser string
}

func newFakeChatsRepo() *fakeChatsRepo {
	return &fakeChatsRepo{chats: map[string]*models.Chat{}}
}

func (f *fakeChatsRepo) owned(userID, chatID string) (*models.Chat, error) {
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return c, nil
}

func (f *fakeChatsRepo) Create(_ context.Context, userID, title string, first models.Message) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	c := &models.Chat{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	first.ID = uuid.NewString()
	first.ChatID = c.ID
	first.CreatedAt = now
	c.Messages = []models.Message{first}
	f.chats[c.ID] = c
	out := *c
	return &out, nil
}

func (f *fakeChatsRepo) ListByUser(_ context.Context, userID string) ([]*models.ChatSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ChatSummary
	for _, c := range f.chats {
		if c.UserID == userID {
			out = append(out, &models.ChatSummary{ID: c.ID, Title: c.Title, MessageCount: len(c.Messages)})
		}
	}
	return out, nil
}

func (f *fakeChatsRepo) Get(_ context.Context, userID, chatID string) (*models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.owned(userID, chatID)
	if err != nil {
		return nil, err
	}
	out := *c
	out.Messages = append([]models.Message(nil), c.Messages...)
	return &out, nil
}

func (f *fakeChatsRepo) UpdateTitle(_ context.Context, userID, chatID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.owned(userID, chatID)
	if err != nil {
		return err
	}
	c.Title = title
	return nil
}

func (f *fakeChatsRepo) AppendMessage(_ context.Context, userID, chatID string, msg models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.owned(userID, chatID)
	if err != nil {
		return nil, err
	}
	msg.ID = uuid.NewString()
	msg.ChatID = chatID
	msg.CreatedAt = time.Now()
	c.Messages = append(c.Messages, msg)
	return &msg, nil
}

func (f *fakeChatsRepo) Delete(_ context.Context, userID, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.owned(userID, chatID); err != nil {
		return err
	}
	delete(f.chats, chatID)
	return nil
}

func (f *fakeChatsRepo) DeleteByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedUser = userID
	for id, c := range f.chats {
		if c.UserID == userID {
			delete(f.chats, id)
		}
	}
	return nil
}

// --- documents ---

type fakeDocumentsRepo struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	createErr error
	updates   int
}

func newFakeDocumentsRepo() *fakeDocumentsRepo {
	return &fakeDocumentsRepo{docs: map[string]*models.Document{}}
}

func (f *fakeDocumentsRepo) Create(_ context.Context, d *models.Document) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	c := *d
	c.ID = uuid.NewString()
	f.docs[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeDocumentsRepo) ListByUser(_ context.Context, userID string) ([]*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Document
	for _, d := range f.docs {
		if d.UserID == userID {
			c := *d
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeDocumentsRepo) Get(_ context.Context, userID, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *d
	return &c, nil
}

func (f *fakeDocumentsRepo) UpdateProcessing(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[doc.ID]
	if !ok {
		return common.ErrorNotFound
	}
	f.updates++
	d.Status, d.JobID, d.ExtractedText, d.Error = doc.Status, doc.JobID, doc.ExtractedText, doc.Error
	return nil
}

func (f *fakeDocumentsRepo) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.UserID != userID {
		return common.ErrorNotFound
	}
	delete(f.docs, id)
	return nil
}

// --- blob store ---

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
	putErr  error
	delErr  error
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, meta: map[string]map[string]string{}}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string, metadata map[string]string) error {
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	f.meta[key] = metadata
	return nil
}

func (f *fakeBlobStore) PresignGet(_ context.Context, key string, expires time.Duration) (string, error) {
	return "https://blobs.example/" + key + "?ttl=" + expires.String(), nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.Object
	for k, v := range f.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// --- backend ---

type fakeBackend struct {
	mu        sync.Mutex
	submitted []backend.Job
	submitErr error
	results   map[string]backend.Result
	pollErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{results: map[string]backend.Result{}}
}

func (f *fakeBackend) Submit(_ context.Context, job backend.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, job)
	return "job-" + string(job.Kind), nil
}

func (f *fakeBackend) Poll(_ context.Context, id string) (backend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return backend.Result{}, f.pollErr
	}
	r, ok := f.results[id]
	if !ok {
		return backend.Result{Status: backend.StatusPending}, nil
	}
	return r, nil
}
