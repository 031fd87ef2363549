package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Yates-Labs/storyforge/internal/memory"
)

type endpoint struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

type rootResponse struct {
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Endpoints []endpoint `json:"endpoints"`
}

func (s *Server) handleGetRoot(c echo.Context) error {
	endpoints := []endpoint{
		{"/generate", http.MethodPost, "Generate perspectives from a user query"},
		{"/generate-story-bible", http.MethodPost, "Generate a story bible from a perspective"},
		{"/generate_episode", http.MethodPost, "Generate an episode based on a story bible"},
	}
	if s.pipeline != nil {
		endpoints = append(endpoints, endpoint{"/pipeline", http.MethodPost, "Run the full story pipeline"})
	}
	if s.queue != nil {
		endpoints = append(endpoints,
			endpoint{"/requests", http.MethodPost, "Queue a story idea for the worker"},
			endpoint{"/requests/:id", http.MethodGet, "Show a queued request and its result"},
		)
	}

	return c.JSON(http.StatusOK, rootResponse{
		Status:    "ok",
		Message:   "Story Forge API is running",
		Endpoints: endpoints,
	})
}

// GET /requests/:id
func (s *Server) handleGetRequest(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := s.queue.Get(ctx, c.Param("id"))
	if errors.Is(err, memory.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Request not found")
	}
	if err != nil {
		return err
	}

	body := map[string]any{"success": true, "request": req}
	if req.ResultID != "" {
		res, err := s.queue.Result(ctx, req)
		if err != nil {
			return err
		}
		body["result"] = res
	}
	return c.JSON(http.StatusOK, body)
}
