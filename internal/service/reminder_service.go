package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"tasklist/internal/model"
	"tasklist/internal/repository"
)

// dueSoonWindow is how far ahead a deadline counts as "due soon".
const dueSoonWindow = 48 * time.Hour

// ReminderService builds human-readable deadline digests.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// DeadlineDigest summarizes the user's open tasks that are overdue or due
// within the next two days. Returns an empty string when there is nothing
// to report, so callers can skip the notification entirely.
func (s *ReminderService) DeadlineDigest(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListByComplete(ctx, user.ID, false)
	if err != nil {
		return "", err
	}

	var overdue []model.Task
	var dueSoon []model.Task
	for _, task := range tasks {
		if task.Deadline == nil {
			continue
		}
		d := task.Deadline.In(now.Location())
		switch {
		case now.After(d):
			overdue = append(overdue, task)
		case d.Sub(now) <= dueSoonWindow:
			dueSoon = append(dueSoon, task)
		}
	}

	if len(overdue) == 0 && len(dueSoon) == 0 {
		return "", nil
	}

	byDeadline := func(tasks []model.Task) {
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Deadline.Before(*tasks[j].Deadline)
		})
	}
	byDeadline(overdue)
	byDeadline(dueSoon)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Deadline digest for %s — %s\n", user.Username, now.Format("2006-01-02")))

	if len(overdue) > 0 {
		builder.WriteString("\nOverdue:\n")
		for _, task := range overdue {
			builder.WriteString(formatDigestLine(task, now))
		}
	}

	if len(dueSoon) > 0 {
		builder.WriteString("\nDue soon:\n")
		for _, task := range dueSoon {
			builder.WriteString(formatDigestLine(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatDigestLine(task model.Task, now time.Time) string {
	d := task.Deadline.In(now.Location())
	line := fmt.Sprintf("- %s (due %s", strings.TrimSpace(task.Title), d.Format("2006-01-02"))
	if task.Priority == model.PriorityHigh {
		line += ", high priority"
	}
	return line + ")\n"
}
