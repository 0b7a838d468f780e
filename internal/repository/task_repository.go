package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"tasklist/internal/model"
)

// TaskRepository handles CRUD for tasks. Every query is scoped to the
// owning user, so a foreign task id behaves like a missing one.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListByUser returns the user's full task set, newest first. Id breaks
// created_at ties so the order is stable.
func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListImportant returns the user's flagged tasks, filtered at the store.
func (r *TaskRepository) ListImportant(ctx context.Context, userID string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND important = ?", userID, true).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByComplete returns the user's tasks with the given completion state.
func (r *TaskRepository) ListByComplete(ctx context.Context, userID string, complete bool) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND complete = ?", userID, complete).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// likeEscaper neutralizes LIKE metacharacters so the query is matched as a
// literal substring.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns the user's tasks whose title or description contains the
// query as a case-insensitive substring.
func (r *TaskRepository) Search(ctx context.Context, userID, query string) ([]model.Task, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where(`user_id = ? AND (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, userID, pattern, pattern).
		Order("created_at DESC, id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID string) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Patch overwrites only the given columns. Returns gorm.ErrRecordNotFound
// when the task does not exist for this user.
func (r *TaskRepository) Patch(ctx context.Context, userID, taskID string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ToggleImportant flips the important flag in a single statement, so
// concurrent toggles compose as double negation instead of losing updates.
func (r *TaskRepository) ToggleImportant(ctx context.Context, userID, taskID string) error {
	return r.flip(ctx, userID, taskID, "important")
}

// ToggleComplete flips the complete flag in a single statement.
func (r *TaskRepository) ToggleComplete(ctx context.Context, userID, taskID string) error {
	return r.flip(ctx, userID, taskID, "complete")
}

func (r *TaskRepository) flip(ctx context.Context, userID, taskID, column string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Update(column, gorm.Expr("NOT "+column))
	if res.Error != nil {
		return fmt.Errorf("toggle %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a task for the given user. Deleting an id that does not
// exist is a no-op, not an error.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).
		Delete(&model.Task{}).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
