package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Yates-Labs/storyforge/internal/stage"
	"github.com/Yates-Labs/storyforge/internal/story"
)

type generateReq struct {
	Query string `json:"query"`
}

type generateResp struct {
	Success      bool                `json:"success"`
	Perspectives []story.Perspective `json:"perspectives"`
}

type storyBibleReq struct {
	Perspective story.Perspective `json:"perspective"`
	Parameters  story.Parameters  `json:"parameters"`
	Importance  story.Importance  `json:"importance"`
	Prompt      string            `json:"prompt"`
}

type storyBibleResp struct {
	Success    bool             `json:"success"`
	StoryBible story.StoryBible `json:"storyBible"`
}

type episodeReq struct {
	StoryBible       *story.StoryBible       `json:"storyBible"`
	EpisodeNumber    int                     `json:"episodeNumber"`
	PreviousEpisodes []story.PreviousEpisode `json:"previousEpisodes"`
	Prompt           string                  `json:"prompt"`
}

type queuedResp struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// POST /generate
func (s *Server) handlePostGenerate(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No query provided")
	}

	perspectives := s.stages.GeneratePerspectives(c.Request().Context(), req.Query)
	return c.JSON(http.StatusOK, generateResp{Success: true, Perspectives: perspectives})
}

// POST /generate-story-bible
func (s *Server) handlePostStoryBible(c echo.Context) error {
	var req storyBibleReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if req.Perspective == (story.Perspective{}) {
		return echo.NewHTTPError(http.StatusBadRequest, "No perspective provided")
	}
	if err := s.validate.Struct(req.Parameters); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid parameters: "+err.Error())
	}
	if err := s.validate.Struct(req.Importance); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid importance: "+err.Error())
	}

	bible := s.stages.GenerateStoryBible(c.Request().Context(), stage.BibleInput{
		Perspective: req.Perspective,
		Parameters:  req.Parameters,
		Importance:  req.Importance,
		Query:       req.Prompt,
	})
	return c.JSON(http.StatusOK, storyBibleResp{Success: true, StoryBible: bible})
}

// POST /generate_episode
func (s *Server) handlePostEpisode(c echo.Context) error {
	var req episodeReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if req.StoryBible == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Story bible is required")
	}
	if req.EpisodeNumber <= 0 {
		req.EpisodeNumber = 1
	}

	ep := s.stages.GenerateEpisode(c.Request().Context(), *req.StoryBible, req.EpisodeNumber, req.PreviousEpisodes, req.Prompt)
	return c.JSON(http.StatusOK, ep)
}

// POST /pipeline
func (s *Server) handlePostPipeline(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	res, err := s.pipeline.Run(c.Request().Context(), req.Query)
	if errors.Is(err, story.ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, "No query provided")
	}
	if err != nil {
		return err
	}
	if !res.Success {
		return c.JSON(http.StatusInternalServerError, res)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /requests
func (s *Server) handlePostRequest(c echo.Context) error {
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	id, err := s.queue.Submit(c.Request().Context(), req.Query)
	if errors.Is(err, story.ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, "No query provided")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, queuedResp{Success: true, ID: id})
}
