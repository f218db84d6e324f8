package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/ai"
	"github.com/spigell/resumatch/internal/extract"
	"github.com/spigell/resumatch/internal/notify"
	"github.com/spigell/resumatch/internal/pipeline"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// evaluate handles POST /api/evaluate with the pdfFile and jobDescription form fields.
func (s *Server) evaluate(c *gin.Context) {
	if !s.parseUpload(c) {
		return
	}

	jobDescription := strings.TrimSpace(c.PostForm("jobDescription"))
	if jobDescription == "" {
		respondError(c, http.StatusBadRequest, "job description is required")
		return
	}

	file, err := c.FormFile("pdfFile")
	if err != nil {
		respondError(c, http.StatusBadRequest, "a resume file is required in 'pdfFile' field")
		return
	}

	dir, cleanup, err := s.uploadDir()
	if err != nil {
		s.internalError(c, err)
		return
	}
	defer cleanup()

	path, err := s.save(c, dir, file)
	if err != nil {
		s.internalError(c, err)
		return
	}

	result, err := s.deps.Runner.Run(c.Request.Context(), pipeline.Request{DocumentPath: path, JobDescription: jobDescription})
	if err != nil {
		respondError(c, statusFor(err), clientMessage(err, path, filepath.Base(file.Filename)))
		return
	}

	encoded, err := result.Verdict.MarshalJSON()
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", encoded)
}

// evaluateMultiple handles POST /api/evaluate-multiple with the pdfFiles, jobDescription
// and threshold form fields.
func (s *Server) evaluateMultiple(c *gin.Context) {
	if !s.parseUpload(c) {
		return
	}

	jobDescription := strings.TrimSpace(c.PostForm("jobDescription"))
	if jobDescription == "" {
		respondError(c, http.StatusBadRequest, "job description is required")
		return
	}

	threshold := s.cfg.Threshold
	if raw := strings.TrimSpace(c.PostForm("threshold")); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "threshold must be a number")
			return
		}
		threshold = parsed
	}

	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "multipart form is required")
		return
	}

	files := form.File["pdfFiles"]
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, "at least one file is required in 'pdfFiles' field")
		return
	}

	dir, cleanup, err := s.uploadDir()
	if err != nil {
		s.internalError(c, err)
		return
	}
	defer cleanup()

	reqs := make([]pipeline.Request, 0, len(files))
	names := make(map[string]string, len(files))
	for _, file := range files {
		path, err := s.save(c, dir, file)
		if err != nil {
			s.internalError(c, err)
			return
		}
		names[path] = filepath.Base(file.Filename)
		reqs = append(reqs, pipeline.Request{DocumentPath: path, JobDescription: jobDescription})
	}

	items := s.deps.Runner.RunBatch(c.Request.Context(), reqs, s.cfg.BatchConcurrency)

	failed := pipeline.Failures(items)
	for i := range failed {
		path := failed[i].Document
		failed[i].Document = names[path]
		failed[i].Error = strings.ReplaceAll(failed[i].Error, path, names[path])
	}

	c.JSON(http.StatusOK, gin.H{
		"qualifying": pipeline.Shortlist(items, threshold),
		"total":      len(items),
		"failed":     failed,
	})
}

// sendEmails handles POST /api/send-emails with {"candidates": [...], "jobDescription": "..."}.
func (s *Server) sendEmails(c *gin.Context) {
	if s.deps.Notifier == nil {
		respondError(c, http.StatusServiceUnavailable, "email notifications are not configured")
		return
	}

	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, http.StatusBadRequest, "invalid json body")
		return
	}

	data, err := notify.DecodeData(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, s.deps.Notifier.Notify(c.Request.Context(), data.Candidates, data.JobDescription))
}

// parseUpload reads the multipart form with the request body capped at MaxUploadSize.
func (s *Server) parseUpload(c *gin.Context) bool {
	if c.Request.ContentLength > s.cfg.MaxUploadSize {
		respondError(c, http.StatusRequestEntityTooLarge, tooLargeMessage(s.cfg.MaxUploadSize))
		return false
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize)
	if err := c.Request.ParseMultipartForm(s.cfg.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, tooLargeMessage(s.cfg.MaxUploadSize))
			return false
		}
		respondError(c, http.StatusBadRequest, "multipart form is required")
		return false
	}

	return true
}

func tooLargeMessage(limit int64) string {
	return "upload exceeds " + strconv.FormatInt(limit, 10) + " bytes"
}

// clientMessage replaces the server-side upload path with the name the client sent.
func clientMessage(err error, path, name string) string {
	return strings.ReplaceAll(err.Error(), path, name)
}

func (s *Server) uploadDir() (string, func(), error) {
	dir, err := os.MkdirTemp(s.cfg.UploadDir, "resumatch-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			s.deps.Logger.Warn("failed to remove upload dir", zap.String("dir", dir), zap.Error(err))
		}
	}, nil
}

// save stores an upload under a random name that keeps the original extension.
func (s *Server) save(c *gin.Context, dir string, file *multipart.FileHeader) (string, error) {
	path := filepath.Join(dir, uuid.New().String()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.deps.Logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	respondError(c, http.StatusInternalServerError, "internal server error")
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func statusFor(err error) int {
	var (
		extractErr   *extract.Error
		malformedErr *ai.MalformedResponseError
		transportErr *ai.TransportError
	)

	switch {
	case errors.As(err, &extractErr):
		return http.StatusBadRequest
	case errors.As(err, &malformedErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
