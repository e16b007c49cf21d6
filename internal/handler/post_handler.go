package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/dto"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	appErrors "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/errors"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/response"
)

const changeStreamHeartbeat = 25 * time.Second

type postService interface {
	ListPaginated(ctx context.Context, req dto.PostListRequest) ([]models.Post, *models.Pagination, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, req dto.CreatePostRequest, author models.Actor, allowPastOverride bool) (*models.Post, error)
	Update(ctx context.Context, id string, req dto.UpdatePostRequest, actor models.Actor, allowPastOverride bool) (*models.Post, error)
	Archive(ctx context.Context, id string, actor models.Actor) (bool, error)
	Delete(ctx context.Context, id string, actor models.Actor) (bool, error)
	Duplicate(ctx context.Context, id string) (*dto.CreatePostRequest, error)
	Watch() (<-chan struct{}, func())
}

// PostHandler exposes post lifecycle endpoints.
type PostHandler struct {
	service postService
}

// NewPostHandler constructs the handler.
func NewPostHandler(service postService) *PostHandler {
	return &PostHandler{service: service}
}

// List godoc
// @Summary List posts
// @Tags Posts
// @Produce json
// @Param types query string false "Comma separated post types"
// @Param statuses query string false "Comma separated statuses (SCHEDULED only when requested)"
// @Param class_ids query string false "Comma separated class ids"
// @Param author_role query string false "Author role"
// @Param search query string false "Free text over title and body"
// @Param sort query string false "relevance"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /posts [get]
func (h *PostHandler) List(c *gin.Context) {
	req := dto.PostListRequest{
		ClassIDs: queryList(c, "class_ids"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "page_size", 20),
	}
	for _, t := range queryList(c, "types") {
		req.Types = append(req.Types, models.PostType(t))
	}
	for _, s := range queryList(c, "statuses") {
		req.Statuses = append(req.Statuses, models.PostStatus(s))
	}
	if raw := c.Query("author_role"); raw != "" {
		role, ok := models.ParseUserRole(raw)
		if !ok {
			response.Error(c, appErrors.Validation(map[string]string{"author_role": "unknown role"}))
			return
		}
		req.AuthorRole = &role
	}
	posts, pagination, err := h.service.ListPaginated(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts, pagination)
}

// Get godoc
// @Summary Get a post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id} [get]
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Create godoc
// @Summary Create a post
// @Tags Posts
// @Accept json
// @Produce json
// @Param allow_past query bool false "Allow a SCHEDULED publish time that is not in the future"
// @Param payload body dto.CreatePostRequest true "Post payload"
// @Success 201 {object} response.Envelope
// @Router /posts [post]
func (h *PostHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	allowPast, err := parseQueryBool(c, "allow_past")
	if err != nil {
		response.Error(c, err)
		return
	}
	post, err := h.service.Create(c.Request.Context(), req, claims.Actor(), allowPast)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, post)
}

// Update godoc
// @Summary Update a post
// @Tags Posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param allow_past query bool false "Allow a SCHEDULED publish time that is not in the future"
// @Param payload body dto.UpdatePostRequest true "Partial post payload"
// @Success 200 {object} response.Envelope
// @Router /posts/{id} [patch]
func (h *PostHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid post payload"))
		return
	}
	allowPast, err := parseQueryBool(c, "allow_past")
	if err != nil {
		response.Error(c, err)
		return
	}
	post, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.Actor(), allowPast)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post, nil)
}

// Archive godoc
// @Summary Archive a post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/archive [post]
func (h *PostHandler) Archive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	archived, err := h.service.Archive(c.Request.Context(), c.Param("id"), claims.Actor())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"archived": archived}, nil)
}

// Delete godoc
// @Summary Delete a post
// @Tags Posts
// @Param id path string true "Post ID"
// @Success 204
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if _, err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.Actor()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Duplicate godoc
// @Summary Build a creation payload from an existing post
// @Tags Posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} response.Envelope
// @Router /posts/{id}/duplicate [post]
func (h *PostHandler) Duplicate(c *gin.Context) {
	payload, err := h.service.Duplicate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Changes godoc
// @Summary Stream post change signals
// @Description Server-sent events; every "change" event means posts should be re-fetched.
// @Tags Posts
// @Produce text/event-stream
// @Router /posts/changes [get]
func (h *PostHandler) Changes(c *gin.Context) {
	changes, cancel := h.service.Watch()
	defer cancel()

	heartbeat := time.NewTicker(changeStreamHeartbeat)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-store")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var seq int
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case _, ok := <-changes:
			if !ok {
				return false
			}
			seq++
			c.SSEvent("change", gin.H{"seq": strconv.Itoa(seq), "at": time.Now().UTC()})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
