package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentic-research/faultcat/api"
	"github.com/agentic-research/faultcat/internal/catalog"
	"github.com/agentic-research/faultcat/internal/codepath"
	"github.com/agentic-research/faultcat/internal/coherence"
	"github.com/agentic-research/faultcat/internal/navigator"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ColumnsResponse is the body of GET /api/columns. Error is set when the
// chain stopped on a missing file.
type ColumnsResponse struct {
	Columns []navigator.Column `json:"columns"`
	Error   string             `json:"error,omitempty"`
}

// EditRequest is the body of PUT /api/entries.
type EditRequest struct {
	Path        string  `json:"path" binding:"required"`
	Lang        string  `json:"lang" binding:"required"`
	Index       *int    `json:"index" binding:"required"`
	Description *string `json:"description"`
	Expandable  *bool   `json:"expandable"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) columns(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	p := codepath.Root
	if raw := c.Query("path"); raw != "" {
		var err error
		if p, err = codepath.ParseList(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	cols, err := s.nav.Columns(p, lang)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound) && len(cols) > 0:
		c.JSON(http.StatusOK, ColumnsResponse{Columns: cols, Error: err.Error()})
		return
	default:
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ColumnsResponse{Columns: cols})
}

func (s *Server) search(c *gin.Context) {
	lang, ok := language(c)
	if !ok {
		return
	}
	hits, err := s.nav.Search(c.Query("q"), lang)
	if err != nil {
		fail(c, err)
		return
	}
	if hits == nil {
		hits = []navigator.Hit{}
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

func (s *Server) edit(c *gin.Context) {
	var req EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p, err := codepath.ParseList(req.Path)
	if err != nil {
		badRequest(c, err)
		return
	}
	lang, err := api.ParseLanguage(req.Lang)
	if err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.nav.Apply(navigator.Edit{
		Path:        p,
		Lang:        lang,
		Index:       *req.Index,
		Description: req.Description,
		Expandable:  req.Expandable,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) check(c *gin.Context) {
	rep, err := s.checker.Check(coherence.Options{Quick: c.Query("quick") == "true"})
	if err != nil {
		fail(c, err)
		return
	}
	if rep.Issues == nil {
		rep.Issues = []coherence.Issue{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": rep.OK(), "summary": rep.Summary(), "report": rep})
}

// language reads ?lang=, French when absent.
func language(c *gin.Context) (api.Language, bool) {
	raw := c.DefaultQuery("lang", string(api.French))
	lang, err := api.ParseLanguage(raw)
	if err != nil {
		badRequest(c, err)
		return "", false
	}
	return lang, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, navigator.ErrIndex), errors.Is(err, navigator.ErrNotExpandable):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid_entry", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: err.Error()})
	}
}
