package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasklist/internal/model"
	"tasklist/internal/service"
)

// Directory is the task surface the handlers consume.
type Directory interface {
	Create(ctx context.Context, userID string, input service.TaskInput) (*model.Task, error)
	ListAll(ctx context.Context, userID string, filter service.ListFilter) ([]model.Task, error)
	ListImportant(ctx context.Context, userID string) ([]model.Task, error)
	ListComplete(ctx context.Context, userID string) ([]model.Task, error)
	ListIncomplete(ctx context.Context, userID string) ([]model.Task, error)
	Search(ctx context.Context, userID, query string) ([]model.Task, error)
	Update(ctx context.Context, userID, taskID string, patch service.TaskPatch) error
	ToggleImportant(ctx context.Context, userID, taskID string) error
	ToggleComplete(ctx context.Context, userID, taskID string) error
	Delete(ctx context.Context, userID, taskID string) error
}

// Accounts is the registration/login surface and the token verifier the
// middleware relies on.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	VerifyToken(token string) (string, error)
}

// Server is the HTTP front of the task directory.
type Server struct {
	directory Directory
	accounts  Accounts
	router    *gin.Engine
}

// New wires all routes. Task routes sit behind the bearer-token middleware.
func New(directory Directory, accounts Accounts) *Server {
	router := gin.Default()

	s := &Server{
		directory: directory,
		accounts:  accounts,
		router:    router,
	}

	api := router.Group("/api/v1")
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)

	tasks := api.Group("/tasks", s.requireAuth)
	{
		tasks.POST("", s.handleCreate)
		tasks.GET("", s.handleListAll)
		tasks.GET("/important", s.handleListImportant)
		tasks.GET("/complete", s.handleListComplete)
		tasks.GET("/incomplete", s.handleListIncomplete)
		tasks.GET("/search", s.handleSearch)
		tasks.PUT("/:id", s.handleUpdate)
		tasks.PUT("/:id/important", s.handleToggleImportant)
		tasks.PUT("/:id/complete", s.handleToggleComplete)
		tasks.DELETE("/:id", s.handleDelete)
	}

	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
