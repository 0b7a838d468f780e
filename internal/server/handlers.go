package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tasklist/internal/auth"
	"tasklist/internal/model"
	"tasklist/internal/service"
)

const ctxUserKey = "userID"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createTaskRequest struct {
	Title    string         `json:"title"`
	Desc     string         `json:"desc"`
	Priority model.Priority `json:"priority"`
	Deadline string         `json:"deadline"`
}

// updateTaskRequest is a strict patch: absent fields stay untouched.
type updateTaskRequest struct {
	Title    *string         `json:"title"`
	Desc     *string         `json:"desc"`
	Priority *model.Priority `json:"priority"`
	Deadline *string         `json:"deadline"`
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	userID, err := s.accounts.VerifyToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.Set(ctxUserKey, userID)
	c.Next()
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := s.accounts.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"id": user.ID, "username": user.Username}})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := s.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"token": token}})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.TaskInput{
		Title:       req.Title,
		Description: req.Desc,
		Priority:    req.Priority,
		Deadline:    deadline,
	}
	if _, err := s.directory.Create(c.Request.Context(), s.userID(c), input); err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"message": "task created"}})
}

func (s *Server) handleListAll(c *gin.Context) {
	filter := service.ListFilter{
		Query:    c.Query("query"),
		Priority: model.Priority(c.Query("priority")),
	}
	if raw := c.Query("deadline"); raw != "" {
		deadline, err := parseDeadline(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.Deadline = deadline
	}

	tasks, err := s.directory.ListAll(c.Request.Context(), s.userID(c), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondTasks(c, tasks)
}

func (s *Server) handleListImportant(c *gin.Context) {
	tasks, err := s.directory.ListImportant(c.Request.Context(), s.userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondTasks(c, tasks)
}

func (s *Server) handleListComplete(c *gin.Context) {
	tasks, err := s.directory.ListComplete(c.Request.Context(), s.userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondTasks(c, tasks)
}

func (s *Server) handleListIncomplete(c *gin.Context) {
	tasks, err := s.directory.ListIncomplete(c.Request.Context(), s.userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondTasks(c, tasks)
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter required"})
		return
	}

	tasks, err := s.directory.Search(c.Request.Context(), s.userID(c), query)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.respondTasks(c, tasks)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	patch := service.TaskPatch{
		Title:       req.Title,
		Description: req.Desc,
		Priority:    req.Priority,
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch.Deadline = deadline
	}

	if err := s.directory.Update(c.Request.Context(), s.userID(c), c.Param("id"), patch); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "task updated"}})
}

func (s *Server) handleToggleImportant(c *gin.Context) {
	if err := s.directory.ToggleImportant(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "task updated"}})
}

func (s *Server) handleToggleComplete(c *gin.Context) {
	if err := s.directory.ToggleComplete(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "task updated"}})
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.directory.Delete(c.Request.Context(), s.userID(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "task deleted"}})
}

func (s *Server) userID(c *gin.Context) string {
	return c.GetString(ctxUserKey)
}

func (s *Server) respondTasks(c *gin.Context, tasks []model.Task) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

// fail maps service errors onto status codes so callers can tell a missing
// task from a store failure.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		log.Printf("[warn] request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// parseDeadline accepts a bare date or a full RFC 3339 timestamp. Bare
// dates are anchored to the server's timezone, which is also the timezone
// deadline matching uses.
func parseDeadline(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.Local); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid deadline %q, expected YYYY-MM-DD or RFC 3339", raw)
}
