package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alnah/go-html2lms"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleIndex(c *gin.Context) {
	files, err := s.svc.List(c.Request.Context())
	if err != nil {
		s.fail(c, err, "listing documents")
		return
	}
	c.HTML(http.StatusOK, "index", gin.H{
		"Title": "html2lms",
		"Root":  s.svc.Root(),
		"Files": files,
	})
}

func (s *Server) handleFiles(c *gin.Context) {
	files, err := s.svc.List(c.Request.Context())
	if err != nil {
		s.fail(c, err, "listing documents")
		return
	}
	if files == nil {
		files = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (s *Server) handleTransform(c *gin.Context) {
	file := c.Query("file")
	if file == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing file parameter"})
		return
	}

	res, err := s.svc.Transform(c.Request.Context(), file)
	if err != nil {
		s.fail(c, err, "transforming "+file)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleAsset(c *gin.Context) {
	file, asset := c.Query("file"), c.Query("path")
	if file == "" || asset == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing file or path parameter"})
		return
	}

	a, err := s.svc.OpenAsset(file, asset)
	if err != nil {
		s.fail(c, err, "reading asset "+asset)
		return
	}
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// fail maps err to a status and a short message. Details go to the log only.
func (s *Server) fail(c *gin.Context, err error, action string) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(action, "error", err)
	} else {
		s.logger.Debug(action, "status", status, "error", err)
	}
	c.JSON(status, errorResponse{Error: msg})
}

// classify maps library errors to HTTP statuses. Escapes are checked first:
// they also match ErrNotFound and ErrAssetNotFound.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, html2lms.ErrPathEscape):
		return http.StatusForbidden, "path escapes root"
	case errors.Is(err, html2lms.ErrAssetNotFound):
		return http.StatusNotFound, "asset not found"
	case errors.Is(err, html2lms.ErrAssetUnreadable):
		return http.StatusForbidden, "asset not readable"
	case errors.Is(err, html2lms.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, html2lms.ErrParse):
		return http.StatusUnprocessableEntity, "cannot parse document"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
