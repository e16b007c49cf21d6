package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/dto"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/middleware"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	appErrors "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/errors"
)

type postServiceMock struct {
	listReq      dto.PostListRequest
	listResp     []models.Post
	getErr       error
	createReq    dto.CreatePostRequest
	createActor  models.Actor
	createPast   bool
	createErr    error
	updateReq    dto.UpdatePostRequest
	archiveResp  bool
	deleteCalled bool
	changes      chan struct{}
}

func (m *postServiceMock) ListPaginated(ctx context.Context, req dto.PostListRequest) ([]models.Post, *models.Pagination, error) {
	m.listReq = req
	return m.listResp, &models.Pagination{Page: req.Page, PageSize: req.PageSize, TotalCount: len(m.listResp)}, nil
}

func (m *postServiceMock) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.Post{ID: id}, nil
}

func (m *postServiceMock) Create(ctx context.Context, req dto.CreatePostRequest, author models.Actor, allowPast bool) (*models.Post, error) {
	m.createReq = req
	m.createActor = author
	m.createPast = allowPast
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Post{ID: "new", Title: req.Title}, nil
}

func (m *postServiceMock) Update(ctx context.Context, id string, req dto.UpdatePostRequest, actor models.Actor, allowPast bool) (*models.Post, error) {
	m.updateReq = req
	return &models.Post{ID: id}, nil
}

func (m *postServiceMock) Archive(ctx context.Context, id string, actor models.Actor) (bool, error) {
	return m.archiveResp, nil
}

func (m *postServiceMock) Delete(ctx context.Context, id string, actor models.Actor) (bool, error) {
	m.deleteCalled = true
	return true, nil
}

func (m *postServiceMock) Duplicate(ctx context.Context, id string) (*dto.CreatePostRequest, error) {
	return &dto.CreatePostRequest{Title: "Copy of " + id}, nil
}

func (m *postServiceMock) Watch() (<-chan struct{}, func()) {
	return m.changes, func() {}
}

var teacherClaims = &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher, FullName: "Ana Souza"}

func newPostContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func TestPostHandlerListParsesFilters(t *testing.T) {
	svc := &postServiceMock{listResp: []models.Post{{ID: "p1"}}}
	handler := NewPostHandler(svc)

	c, w := newPostContext(http.MethodGet, "/posts?types=EXAM,EVENT&statuses=SCHEDULED&class_ids=7a&class_ids=7b&author_role=teacher&page=2&page_size=5&sort=relevance", "", teacherClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.PostType{models.PostTypeExam, models.PostTypeEvent}, svc.listReq.Types)
	assert.Equal(t, []models.PostStatus{models.PostStatusScheduled}, svc.listReq.Statuses)
	assert.Equal(t, []string{"7a", "7b"}, svc.listReq.ClassIDs)
	require.NotNil(t, svc.listReq.AuthorRole)
	assert.Equal(t, models.RoleTeacher, *svc.listReq.AuthorRole)
	assert.Equal(t, 2, svc.listReq.Page)
	assert.Equal(t, 5, svc.listReq.PageSize)
	assert.Equal(t, dto.PostSortRelevance, svc.listReq.Sort)
}

func TestPostHandlerListRejectsUnknownRole(t *testing.T) {
	handler := NewPostHandler(&postServiceMock{})
	c, w := newPostContext(http.MethodGet, "/posts?author_role=janitor", "", teacherClaims)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostHandlerCreate(t *testing.T) {
	svc := &postServiceMock{}
	handler := NewPostHandler(svc)

	c, w := newPostContext(http.MethodPost, "/posts?allow_past=true", `{"type":"NOTICE","title":"Hello","audience":"GLOBAL"}`, teacherClaims)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Hello", svc.createReq.Title)
	assert.Equal(t, "teacher-1", svc.createActor.ID)
	assert.Equal(t, "Ana Souza", svc.createActor.Name)
	assert.True(t, svc.createPast)
}

func TestPostHandlerCreateRequiresClaims(t *testing.T) {
	handler := NewPostHandler(&postServiceMock{})
	c, w := newPostContext(http.MethodPost, "/posts", `{"title":"x"}`, nil)
	handler.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostHandlerCreateSurfacesFieldErrors(t *testing.T) {
	svc := &postServiceMock{createErr: appErrors.Validation(map[string]string{"title": "is required", "audience": "is required"})}
	handler := NewPostHandler(svc)

	c, w := newPostContext(http.MethodPost, "/posts", `{"type":"NOTICE"}`, teacherClaims)
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrValidation.Code, body.Error.Code)
	assert.Len(t, body.Error.Fields, 2)
}

func TestPostHandlerCreateInvalidJSON(t *testing.T) {
	handler := NewPostHandler(&postServiceMock{})
	c, w := newPostContext(http.MethodPost, "/posts", `{"title":`, teacherClaims)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostHandlerUpdatePassesClear(t *testing.T) {
	svc := &postServiceMock{}
	handler := NewPostHandler(svc)

	c, w := newPostContext(http.MethodPatch, "/posts/p1", `{"title":"Renamed","clear":["due_at"]}`, teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.updateReq.Title)
	assert.Equal(t, "Renamed", *svc.updateReq.Title)
	assert.Equal(t, []string{dto.FieldDueAt}, svc.updateReq.Clear)
}

func TestPostHandlerGetNotFound(t *testing.T) {
	handler := NewPostHandler(&postServiceMock{getErr: appErrors.ErrNotFound})
	c, w := newPostContext(http.MethodGet, "/posts/missing", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostHandlerArchiveDeleteDuplicate(t *testing.T) {
	svc := &postServiceMock{archiveResp: true}
	handler := NewPostHandler(svc)

	c, w := newPostContext(http.MethodPost, "/posts/p1/archive", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Archive(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"archived":true`)

	c, w = newPostContext(http.MethodDelete, "/posts/p1", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, svc.deleteCalled)

	c, w = newPostContext(http.MethodPost, "/posts/p1/duplicate", "", teacherClaims)
	c.Params = gin.Params{{Key: "id", Value: "p1"}}
	handler.Duplicate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Copy of p1")
}

func TestPostHandlerChangesStreamsSignals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &postServiceMock{changes: make(chan struct{}, 1)}
	router := gin.New()
	router.GET("/posts/changes", NewPostHandler(svc).Changes)
	server := httptest.NewServer(router)
	defer server.Close()

	// headers are flushed with the first event
	svc.changes <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/posts/changes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var sawChange bool
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event:change") {
			sawChange = true
			break
		}
	}
	assert.True(t, sawChange)
}
