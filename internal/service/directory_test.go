package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"tasklist/internal/model"
	"tasklist/internal/repository"
)

type testEnv struct {
	db       *gorm.DB
	dir      *Directory
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	userID   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	user := model.User{ID: "user-1", Username: "alice", PasswordHash: "irrelevant"}
	if err := userRepo.Create(context.Background(), &user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	return &testEnv{
		db:       db,
		dir:      NewDirectory(taskRepo, userRepo),
		taskRepo: taskRepo,
		userRepo: userRepo,
		userID:   user.ID,
	}
}

func (e *testEnv) addUser(t *testing.T, id, username string) {
	t.Helper()
	user := model.User{ID: id, Username: username, PasswordHash: "irrelevant"}
	if err := e.userRepo.Create(context.Background(), &user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
}

func (e *testEnv) mustCreate(t *testing.T, userID string, input TaskInput, createdAt time.Time) *model.Task {
	t.Helper()
	task, err := e.dir.Create(context.Background(), userID, input)
	if err != nil {
		t.Fatalf("create task %q: %v", input.Title, err)
	}
	if !createdAt.IsZero() {
		if err := e.db.Model(&model.Task{}).Where("id = ?", task.ID).
			Update("created_at", createdAt).Error; err != nil {
			t.Fatalf("set created_at: %v", err)
		}
		task.CreatedAt = createdAt
	}
	return task
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	return &d
}

func titles(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func sameTitles(got []model.Task, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Title != want[i] {
			return false
		}
	}
	return true
}

func TestCreateDefaultsPriorityToMedium(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task, err := env.dir.Create(ctx, env.userID, TaskInput{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("priority = %q, want %q", task.Priority, model.PriorityMedium)
	}
	if task.Important || task.Complete {
		t.Errorf("new task flags = important:%v complete:%v, want both false", task.Important, task.Complete)
	}

	stored, err := env.taskRepo.FindByID(ctx, env.userID, task.ID)
	if err != nil {
		t.Fatalf("find stored task: %v", err)
	}
	if stored.Priority != model.PriorityMedium {
		t.Errorf("stored priority = %q, want %q", stored.Priority, model.PriorityMedium)
	}

	listed, err := env.dir.ListAll(ctx, env.userID, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameTitles(listed, "Buy milk") {
		t.Errorf("listing after create = %v, want the new task", titles(listed))
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.dir.Create(ctx, env.userID, TaskInput{Title: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank title: err = %v, want ErrInvalidInput", err)
	}
	if _, err := env.dir.Create(ctx, env.userID, TaskInput{Title: "x", Priority: "Urgent"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad priority: err = %v, want ErrInvalidInput", err)
	}
	if _, err := env.dir.Create(ctx, "no-such-user", TaskInput{Title: "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown user: err = %v, want ErrUserNotFound", err)
	}
}

func TestListAllSortsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	env.mustCreate(t, env.userID, TaskInput{Title: "oldest"}, base)
	env.mustCreate(t, env.userID, TaskInput{Title: "middle"}, base.Add(time.Hour))
	env.mustCreate(t, env.userID, TaskInput{Title: "newest"}, base.Add(2*time.Hour))

	tasks, err := env.dir.ListAll(context.Background(), env.userID, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameTitles(tasks, "newest", "middle", "oldest") {
		t.Errorf("order = %v, want newest first", titles(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].CreatedAt.After(tasks[i-1].CreatedAt) {
			t.Errorf("createdAt increases at index %d", i)
		}
	}
}

func TestListAllFilterComposition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)

	env.mustCreate(t, env.userID, TaskInput{Title: "Buy milk", Priority: model.PriorityLow, Deadline: datePtr(2024, 1, 5)}, base.Add(3*time.Hour))
	env.mustCreate(t, env.userID, TaskInput{Title: "Buy bread", Priority: model.PriorityHigh, Deadline: datePtr(2024, 1, 5)}, base.Add(2*time.Hour))
	env.mustCreate(t, env.userID, TaskInput{Title: "Clean", Priority: model.PriorityLow, Deadline: datePtr(2024, 2, 1)}, base.Add(time.Hour))

	cases := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"no filters", ListFilter{}, []string{"Buy milk", "Buy bread", "Clean"}},
		{"query", ListFilter{Query: "buy"}, []string{"Buy milk", "Buy bread"}},
		{"query and priority", ListFilter{Query: "buy", Priority: model.PriorityLow}, []string{"Buy milk"}},
		{"deadline", ListFilter{Deadline: datePtr(2024, 1, 5)}, []string{"Buy milk", "Buy bread"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks, err := env.dir.ListAll(ctx, env.userID, tc.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !sameTitles(tasks, tc.want...) {
				t.Errorf("result = %v, want %v", titles(tasks), tc.want)
			}
		})
	}
}

func TestListAllDeadlineIgnoresTimeOfDay(t *testing.T) {
	env := newTestEnv(t)
	evening := time.Date(2024, 1, 5, 23, 30, 0, 0, time.Local)
	env.mustCreate(t, env.userID, TaskInput{Title: "Late task", Deadline: &evening}, time.Time{})

	tasks, err := env.dir.ListAll(context.Background(), env.userID, ListFilter{Deadline: datePtr(2024, 1, 5)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameTitles(tasks, "Late task") {
		t.Errorf("result = %v, want the evening task", titles(tasks))
	}
}

func TestListAllEmptyCollection(t *testing.T) {
	env := newTestEnv(t)

	tasks, err := env.dir.ListAll(context.Background(), env.userID, ListFilter{})
	if err != nil {
		t.Fatalf("list on empty collection: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("got %d tasks, want 0", len(tasks))
	}
}

func TestListAllUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.dir.ListAll(context.Background(), "no-such-user", ListFilter{}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestFlagListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, env.userID, TaskInput{Title: "plain"}, time.Time{})
	flagged := env.mustCreate(t, env.userID, TaskInput{Title: "flagged"}, time.Time{})
	done := env.mustCreate(t, env.userID, TaskInput{Title: "done"}, time.Time{})

	if err := env.dir.ToggleImportant(ctx, env.userID, flagged.ID); err != nil {
		t.Fatalf("toggle important: %v", err)
	}
	if err := env.dir.ToggleComplete(ctx, env.userID, done.ID); err != nil {
		t.Fatalf("toggle complete: %v", err)
	}

	important, err := env.dir.ListImportant(ctx, env.userID)
	if err != nil {
		t.Fatalf("list important: %v", err)
	}
	if !sameTitles(important, "flagged") {
		t.Errorf("important = %v, want [flagged]", titles(important))
	}

	complete, err := env.dir.ListComplete(ctx, env.userID)
	if err != nil {
		t.Fatalf("list complete: %v", err)
	}
	if !sameTitles(complete, "done") {
		t.Errorf("complete = %v, want [done]", titles(complete))
	}

	incomplete, err := env.dir.ListIncomplete(ctx, env.userID)
	if err != nil {
		t.Fatalf("list incomplete: %v", err)
	}
	if len(incomplete) != 2 {
		t.Errorf("incomplete = %v, want plain and flagged", titles(incomplete))
	}
}

func TestToggleTwiceRestoresFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreate(t, env.userID, TaskInput{Title: "flip me"}, time.Time{})

	for i := 0; i < 2; i++ {
		if err := env.dir.ToggleImportant(ctx, env.userID, task.ID); err != nil {
			t.Fatalf("toggle %d: %v", i+1, err)
		}
	}

	stored, err := env.taskRepo.FindByID(ctx, env.userID, task.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if stored.Important {
		t.Error("important = true after double toggle, want original false")
	}
}

func TestToggleUnknownTask(t *testing.T) {
	env := newTestEnv(t)

	if err := env.dir.ToggleComplete(context.Background(), env.userID, "no-such-task"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, env.userID, TaskInput{Title: "keep"}, time.Time{})

	if err := env.dir.Delete(ctx, env.userID, "never-existed"); err != nil {
		t.Fatalf("delete of absent id: %v", err)
	}

	tasks, err := env.dir.ListAll(ctx, env.userID, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !sameTitles(tasks, "keep") {
		t.Errorf("listing changed by no-op delete: %v", titles(tasks))
	}
}

func TestDeleteConsistency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreate(t, env.userID, TaskInput{Title: "doomed"}, time.Time{})
	if err := env.dir.Delete(ctx, env.userID, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	tasks, err := env.dir.ListAll(ctx, env.userID, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("deleted task still listed: %v", titles(tasks))
	}

	var user model.User
	if err := env.db.Preload("Tasks").Where("id = ?", env.userID).First(&user).Error; err != nil {
		t.Fatalf("load user with tasks: %v", err)
	}
	if len(user.Tasks) != 0 {
		t.Errorf("user association still holds %d tasks after delete", len(user.Tasks))
	}
}

func TestSearchMatchesTitleOrDescription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, env.userID, TaskInput{Title: "Groceries", Description: "buy MILK and eggs"}, time.Time{})
	env.mustCreate(t, env.userID, TaskInput{Title: "Milk the deadline", Description: "unrelated"}, time.Time{})
	env.mustCreate(t, env.userID, TaskInput{Title: "Clean house", Description: "vacuum"}, time.Time{})

	tasks, err := env.dir.Search(ctx, env.userID, "milk")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("search hits = %v, want the two milk tasks", titles(tasks))
	}
	for _, task := range tasks {
		if task.Title == "Clean house" {
			t.Error("search matched a task with the query in neither field")
		}
	}
}

func TestSearchTreatsMetacharactersLiterally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustCreate(t, env.userID, TaskInput{Title: "plain task"}, time.Time{})
	env.mustCreate(t, env.userID, TaskInput{Title: "snake_case refactor"}, time.Time{})
	env.mustCreate(t, env.userID, TaskInput{Title: "report", Description: "50% done"}, time.Time{})

	// An underscore is a literal character, not a single-character wildcard.
	tasks, err := env.dir.Search(ctx, env.userID, "p_ain")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("underscore query matched %v, want no hits", titles(tasks))
	}

	tasks, err = env.dir.Search(ctx, env.userID, "snake_case")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !sameTitles(tasks, "snake_case refactor") {
		t.Errorf("literal underscore query = %v, want the snake_case task", titles(tasks))
	}

	tasks, err = env.dir.Search(ctx, env.userID, "50%")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !sameTitles(tasks, "report") {
		t.Errorf("percent query = %v, want only the literal 50%% task", titles(tasks))
	}
}

func TestUpdateIsStrictPatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreate(t, env.userID, TaskInput{
		Title:       "Original",
		Description: "original desc",
		Priority:    model.PriorityHigh,
	}, time.Time{})

	newTitle := "Renamed"
	if err := env.dir.Update(ctx, env.userID, task.ID, TaskPatch{Title: &newTitle}); err != nil {
		t.Fatalf("patch title: %v", err)
	}

	stored, err := env.taskRepo.FindByID(ctx, env.userID, task.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if stored.Title != "Renamed" {
		t.Errorf("title = %q, want %q", stored.Title, "Renamed")
	}
	if stored.Description != "original desc" {
		t.Errorf("description = %q, want untouched original", stored.Description)
	}
	if stored.Priority != model.PriorityHigh {
		t.Errorf("priority = %q, want untouched High", stored.Priority)
	}

	// An explicitly provided empty string clears the field.
	empty := ""
	if err := env.dir.Update(ctx, env.userID, task.ID, TaskPatch{Description: &empty}); err != nil {
		t.Fatalf("clear description: %v", err)
	}
	stored, err = env.taskRepo.FindByID(ctx, env.userID, task.ID)
	if err != nil {
		t.Fatalf("find task: %v", err)
	}
	if stored.Description != "" {
		t.Errorf("description = %q, want cleared", stored.Description)
	}
}

func TestUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.mustCreate(t, env.userID, TaskInput{Title: "target"}, time.Time{})

	if err := env.dir.Update(ctx, env.userID, task.ID, TaskPatch{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty patch: err = %v, want ErrInvalidInput", err)
	}
	bad := model.Priority("Critical")
	if err := env.dir.Update(ctx, env.userID, task.ID, TaskPatch{Priority: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad priority: err = %v, want ErrInvalidInput", err)
	}
	title := "x"
	if err := env.dir.Update(ctx, env.userID, "no-such-task", TaskPatch{Title: &title}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("unknown task: err = %v, want ErrTaskNotFound", err)
	}
}

func TestOwnershipScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "user-2", "bob")

	task := env.mustCreate(t, env.userID, TaskInput{Title: "alice's task"}, time.Time{})

	if err := env.dir.ToggleImportant(ctx, "user-2", task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("foreign toggle: err = %v, want ErrTaskNotFound", err)
	}
	title := "hijacked"
	if err := env.dir.Update(ctx, "user-2", task.ID, TaskPatch{Title: &title}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("foreign update: err = %v, want ErrTaskNotFound", err)
	}

	// Delete by a non-owner is the idempotent no-op, not a removal.
	if err := env.dir.Delete(ctx, "user-2", task.ID); err != nil {
		t.Fatalf("foreign delete: %v", err)
	}
	if _, err := env.taskRepo.FindByID(ctx, env.userID, task.ID); err != nil {
		t.Errorf("owner's task gone after foreign delete: %v", err)
	}

	listed, err := env.dir.ListAll(ctx, "user-2", ListFilter{})
	if err != nil {
		t.Fatalf("list as bob: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("bob sees %d of alice's tasks", len(listed))
	}
}
