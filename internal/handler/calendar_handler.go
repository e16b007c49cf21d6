package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/dto"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/response"
)

type calendarService interface {
	Events(ctx context.Context, req dto.CalendarRequest) ([]models.CalendarEvent, error)
}

// CalendarHandler exposes derived calendar events.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(service calendarService) *CalendarHandler {
	return &CalendarHandler{service: service}
}

// Events godoc
// @Summary Calendar events derived from published posts
// @Tags Calendar
// @Produce json
// @Param start query string true "Window start (RFC3339 or YYYY-MM-DD, inclusive)"
// @Param end query string true "Window end (RFC3339 or YYYY-MM-DD, exclusive)"
// @Param types query string false "Comma separated post types"
// @Param authors query string false "Comma separated author ids"
// @Param class_ids query string false "Comma separated class ids"
// @Param search query string false "Free text over title, body and author"
// @Param has_weight query bool false "Only posts with a weight"
// @Param min_weight query number false "Minimum weight (with has_weight)"
// @Param max_weight query number false "Maximum weight (with has_weight)"
// @Param has_attachments query bool false "Only posts with attachments"
// @Param this_week query bool false "Only the current week"
// @Param upcoming query bool false "Only future dates"
// @Param overdue query bool false "Only past deadlines"
// @Success 200 {object} response.Envelope
// @Router /calendar/events [get]
func (h *CalendarHandler) Events(c *gin.Context) {
	req, err := parseCalendarRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.service.Events(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil, map[string]interface{}{"count": len(events)})
}

func parseCalendarRequest(c *gin.Context) (dto.CalendarRequest, error) {
	var req dto.CalendarRequest
	var err error
	if req.Window.Start, err = parseQueryTime(c, "start"); err != nil {
		return req, err
	}
	if req.Window.End, err = parseQueryTime(c, "end"); err != nil {
		return req, err
	}

	f := &req.Filters
	f.Search = c.Query("search")
	f.AuthorIDs = queryList(c, "authors")
	f.ClassIDs = queryList(c, "class_ids")
	for _, t := range queryList(c, "types") {
		f.Types = append(f.Types, models.PostType(t))
	}
	if f.MinWeight, err = parseQueryFloat(c, "min_weight"); err != nil {
		return req, err
	}
	if f.MaxWeight, err = parseQueryFloat(c, "max_weight"); err != nil {
		return req, err
	}
	toggles := []struct {
		key string
		dst *bool
	}{
		{"has_weight", &f.HasWeight},
		{"has_attachments", &f.HasAttachments},
		{"this_week", &f.ThisWeek},
		{"upcoming", &f.Upcoming},
		{"overdue", &f.Overdue},
	}
	for _, t := range toggles {
		if *t.dst, err = parseQueryBool(c, t.key); err != nil {
			return req, err
		}
	}
	return req, nil
}
