package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tasklist/internal/model"
	"tasklist/internal/repository"
)

var (
	// ErrUserNotFound means the caller's user record could not be resolved.
	ErrUserNotFound = errors.New("user not found")
	// ErrTaskNotFound means the task does not exist for the caller.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidInput marks validation failures on caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string
	Description string
	Priority    model.Priority
	Deadline    *time.Time
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *model.Priority
	Deadline    *time.Time
}

// ListFilter narrows a full listing. Zero-value fields are inactive; active
// filters combine with AND.
type ListFilter struct {
	Query    string
	Priority model.Priority
	Deadline *time.Time
}

// Directory owns all task query and mutation rules. Caller identity comes
// from the auth layer and is trusted as-is, but every store access is
// scoped to it, so one user can never reach another's tasks.
type Directory struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
}

func NewDirectory(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository) *Directory {
	return &Directory{taskRepo: taskRepo, userRepo: userRepo}
}

// Create stores a new task for the user. Priority defaults to Medium,
// important and complete start false.
func (d *Directory) Create(ctx context.Context, userID string, input TaskInput) (*model.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	priority := input.Priority
	if priority == "" {
		priority = model.DefaultPriority
	}
	if err := priority.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if _, err := d.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	task := model.Task{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Priority:    priority,
		Deadline:    input.Deadline,
	}

	if err := d.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// ListAll returns the user's tasks newest first, narrowed by each active
// filter in turn.
func (d *Directory) ListAll(ctx context.Context, userID string, filter ListFilter) ([]model.Task, error) {
	if filter.Priority != "" {
		if err := filter.Priority.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	if _, err := d.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	tasks, err := d.taskRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		tasks = keep(tasks, func(t model.Task) bool {
			return strings.Contains(strings.ToLower(t.Title), q)
		})
	}

	if filter.Priority != "" {
		tasks = keep(tasks, func(t model.Task) bool {
			return t.Priority == filter.Priority
		})
	}

	if filter.Deadline != nil {
		target := *filter.Deadline
		tasks = keep(tasks, func(t model.Task) bool {
			return t.Deadline != nil && sameDate(*t.Deadline, target)
		})
	}

	return tasks, nil
}

// ListImportant returns the user's flagged tasks, newest first.
func (d *Directory) ListImportant(ctx context.Context, userID string) ([]model.Task, error) {
	if _, err := d.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return d.taskRepo.ListImportant(ctx, userID)
}

// ListComplete returns the user's finished tasks, newest first.
func (d *Directory) ListComplete(ctx context.Context, userID string) ([]model.Task, error) {
	if _, err := d.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return d.taskRepo.ListByComplete(ctx, userID, true)
}

// ListIncomplete returns the user's open tasks, newest first.
func (d *Directory) ListIncomplete(ctx context.Context, userID string) ([]model.Task, error) {
	if _, err := d.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return d.taskRepo.ListByComplete(ctx, userID, false)
}

// Search returns the user's tasks whose title or description contains the
// query as a case-insensitive substring, newest first.
func (d *Directory) Search(ctx context.Context, userID, query string) ([]model.Task, error) {
	if _, err := d.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return d.taskRepo.Search(ctx, userID, query)
}

// Update applies a strict patch: only non-nil fields are written, omitted
// fields keep their stored values.
func (d *Directory) Update(ctx context.Context, userID, taskID string, patch TaskPatch) error {
	updates := make(map[string]interface{})
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Priority != nil {
		if err := patch.Priority.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		updates["priority"] = *patch.Priority
	}
	if patch.Deadline != nil {
		updates["deadline"] = *patch.Deadline
	}
	if len(updates) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	return d.asTaskErr(d.taskRepo.Patch(ctx, userID, taskID, updates))
}

// ToggleImportant flips the task's important flag.
func (d *Directory) ToggleImportant(ctx context.Context, userID, taskID string) error {
	return d.asTaskErr(d.taskRepo.ToggleImportant(ctx, userID, taskID))
}

// ToggleComplete flips the task's complete flag.
func (d *Directory) ToggleComplete(ctx context.Context, userID, taskID string) error {
	return d.asTaskErr(d.taskRepo.ToggleComplete(ctx, userID, taskID))
}

// Delete removes the task. Deleting an id the user does not own, or one
// that never existed, succeeds without effect.
func (d *Directory) Delete(ctx context.Context, userID, taskID string) error {
	return d.taskRepo.Delete(ctx, userID, taskID)
}

func (d *Directory) requireUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := d.userRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (d *Directory) asTaskErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	return err
}

func keep(tasks []model.Task, match func(model.Task) bool) []model.Task {
	filtered := tasks[:0]
	for _, t := range tasks {
		if match(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// sameDate reports whether two instants fall on the same calendar day in
// the server's timezone. Time of day is not significant for deadline
// matching.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
