package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/domain/job"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/mail"
	"github.com/taskhub/taskhub/internal/repo/memory"
)

const (
	creatorID  = "11111111-1111-1111-1111-111111111111"
	assigneeID = "22222222-2222-2222-2222-222222222222"
	strangerID = "33333333-3333-3333-3333-333333333333"
	taskID     = "44444444-4444-4444-4444-444444444444"
)

type fakeTaskStore struct {
	repo         *memory.TasksRepo
	lastReminder *job.CreateRequest
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{repo: memory.NewTasksRepo()}
}

func (f *fakeTaskStore) CreateWithReminder(ctx context.Context, t task.Task, reminder *job.CreateRequest) (task.Task, error) {
	f.lastReminder = reminder
	return f.repo.Create(ctx, t)
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id string) (task.Task, error) {
	return f.repo.GetByID(ctx, id)
}

func (f *fakeTaskStore) List(ctx context.Context, requesterID string, filter task.ListTasksFilter) ([]task.Task, error) {
	return f.repo.List(ctx, requesterID, filter)
}

func (f *fakeTaskStore) Update(ctx context.Context, t task.Task) (task.Task, error) {
	return f.repo.Update(ctx, t)
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) error {
	return f.repo.Delete(ctx, id)
}

type fakeJobsStore struct {
	created  []job.CreateRequest
	canceled []string
}

func (f *fakeJobsStore) Create(_ context.Context, req job.CreateRequest) (job.Job, error) {
	f.created = append(f.created, req)
	return job.New(req), nil
}

func (f *fakeJobsStore) CancelPendingByTask(_ context.Context, taskID string) (int64, error) {
	f.canceled = append(f.canceled, taskID)
	return 1, nil
}

type fakeMailer struct {
	sent []mail.TaskReminderInput
	fail bool
}

func (f *fakeMailer) SendTaskReminder(_ context.Context, in mail.TaskReminderInput) error {
	if f.fail {
		return context.DeadlineExceeded
	}
	f.sent = append(f.sent, in)
	return nil
}

type tasksFixture struct {
	store  *fakeTaskStore
	jobs   *fakeJobsStore
	mailer *fakeMailer
	router map[string]*gin.Engine // keyed by acting user id
}

func newTasksFixture(t *testing.T) *tasksFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &tasksFixture{
		store:  newFakeTaskStore(),
		jobs:   &fakeJobsStore{},
		mailer: &fakeMailer{},
		router: make(map[string]*gin.Engine),
	}

	h := NewTasksHandler(
		f.store, f.jobs, f.mailer,
		cache.NewMemory(time.Minute), nil, slog.Default(), 24*time.Hour,
	)

	for _, uid := range []string{creatorID, assigneeID, strangerID} {
		uid := uid
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(middlewares.CtxClaims, &auth.Claims{UserID: uid, Email: uid + "@example.com"})
			c.Next()
		})
		r.GET("/tasks", h.List)
		r.POST("/tasks", h.Create)
		r.GET("/tasks/:id", h.GetByID)
		r.PUT("/tasks/:id", h.Update)
		r.DELETE("/tasks/:id", h.Delete)
		r.POST("/tasks/:id/complete", h.ToggleComplete)
		r.POST("/tasks/:id/schedule-email", h.ScheduleEmail)
		f.router[uid] = r
	}

	return f
}

func (f *tasksFixture) seedTask(t *testing.T, tk task.Task) {
	t.Helper()
	if _, err := f.store.repo.Create(context.Background(), tk); err != nil {
		t.Fatal(err)
	}
}

func decodeTask(t *testing.T, body []byte) task.Task {
	t.Helper()
	var resp struct {
		Task task.Task `json:"task"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode task: %v (%s)", err, body)
	}
	return resp.Task
}

func TestCreateTaskSchedulesReminder(t *testing.T) {
	f := newTasksFixture(t)
	due := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)

	w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks", gin.H{
		"title":   "ship release",
		"dueDate": due.Format(time.RFC3339),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}

	created := decodeTask(t, w.Body.Bytes())
	if created.CreatedBy != creatorID {
		t.Errorf("CreatedBy = %q", created.CreatedBy)
	}
	if created.AssignedTo != creatorID {
		t.Errorf("AssignedTo = %q, want self-assignment", created.AssignedTo)
	}

	rem := f.store.lastReminder
	if rem == nil {
		t.Fatal("expected a reminder job to be armed")
	}
	if want := due.Add(-24 * time.Hour); !rem.RunAt.Equal(want) {
		t.Errorf("RunAt = %v, want %v", rem.RunAt, want)
	}
	if rem.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", rem.MaxAttempts)
	}
	if rem.TaskID == nil || *rem.TaskID != created.ID {
		t.Errorf("TaskID = %v, want %q", rem.TaskID, created.ID)
	}
	if rem.IdempotencyKey == nil || *rem.IdempotencyKey != "reminder:task:"+created.ID {
		t.Errorf("IdempotencyKey = %v", rem.IdempotencyKey)
	}
}

func TestCreateTaskWithoutDueDateHasNoReminder(t *testing.T) {
	f := newTasksFixture(t)

	w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks", gin.H{"title": "no due"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if f.store.lastReminder != nil {
		t.Fatal("no due date must mean no reminder")
	}
}

func TestCreateTaskDueInsideLeadHasNoReminder(t *testing.T) {
	f := newTasksFixture(t)
	due := time.Now().UTC().Add(time.Hour)

	w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks", gin.H{
		"title":   "due soon",
		"dueDate": due.Format(time.RFC3339),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if f.store.lastReminder != nil {
		t.Fatal("lead window already elapsed, no reminder expected")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	f := newTasksFixture(t)

	w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks", gin.H{"description": "no title"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if code := errorCode(t, w); code != "validation_failed" {
		t.Errorf("code = %q", code)
	}
}

func TestGetTaskAccess(t *testing.T) {
	f := newTasksFixture(t)
	f.seedTask(t, task.Task{ID: taskID, Title: "x", CreatedBy: creatorID, AssignedTo: assigneeID})

	cases := []struct {
		name   string
		actor  string
		status int
	}{
		{"creator", creatorID, http.StatusOK},
		{"assignee", assigneeID, http.StatusOK},
		{"stranger", strangerID, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, f.router[tc.actor], http.MethodGet, "/tasks/"+taskID, nil)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
		})
	}

	t.Run("malformed id resolves to nothing", func(t *testing.T) {
		w := doJSON(t, f.router[creatorID], http.MethodGet, "/tasks/not-a-uuid", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})

	t.Run("missing", func(t *testing.T) {
		w := doJSON(t, f.router[creatorID], http.MethodGet, "/tasks/55555555-5555-5555-5555-555555555555", nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

func TestUpdateTaskPatch(t *testing.T) {
	f := newTasksFixture(t)
	f.seedTask(t, task.Task{
		ID: taskID, Title: "old", Description: "keep me",
		Status: task.StatusTodo, Priority: task.PriorityLow,
		CreatedBy: creatorID, AssignedTo: assigneeID,
	})

	w := doJSON(t, f.router[assigneeID], http.MethodPut, "/tasks/"+taskID, gin.H{
		"title":    "new",
		"priority": "high",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}

	got := decodeTask(t, w.Body.Bytes())
	if got.Title != "new" || got.Priority != task.PriorityHigh {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.Description != "keep me" {
		t.Errorf("untouched field changed: %q", got.Description)
	}
}

func TestUpdateDueDateReschedulesReminder(t *testing.T) {
	f := newTasksFixture(t)
	oldDue := time.Now().UTC().Add(48 * time.Hour)
	f.seedTask(t, task.Task{
		ID: taskID, Title: "x", DueDate: &oldDue,
		Status: task.StatusTodo, Priority: task.PriorityMedium,
		CreatedBy: creatorID, AssignedTo: creatorID,
	})

	newDue := time.Now().UTC().Add(96 * time.Hour).Truncate(time.Second)
	w := doJSON(t, f.router[creatorID], http.MethodPut, "/tasks/"+taskID, gin.H{
		"dueDate": newDue.Format(time.RFC3339),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}

	if len(f.jobs.canceled) != 1 || f.jobs.canceled[0] != taskID {
		t.Fatalf("canceled = %v, want [%s]", f.jobs.canceled, taskID)
	}
	if len(f.jobs.created) != 1 {
		t.Fatalf("created = %d jobs, want 1", len(f.jobs.created))
	}
	if want := newDue.Add(-24 * time.Hour); !f.jobs.created[0].RunAt.Equal(want) {
		t.Errorf("RunAt = %v, want %v", f.jobs.created[0].RunAt, want)
	}
}

func TestDeleteTask(t *testing.T) {
	t.Run("assignee cannot delete", func(t *testing.T) {
		f := newTasksFixture(t)
		f.seedTask(t, task.Task{ID: taskID, Title: "x", CreatedBy: creatorID, AssignedTo: assigneeID})

		w := doJSON(t, f.router[assigneeID], http.MethodDelete, "/tasks/"+taskID, nil)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})

	t.Run("creator deletes and cancels the reminder", func(t *testing.T) {
		f := newTasksFixture(t)
		f.seedTask(t, task.Task{ID: taskID, Title: "x", CreatedBy: creatorID, AssignedTo: assigneeID})

		w := doJSON(t, f.router[creatorID], http.MethodDelete, "/tasks/"+taskID, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (%s)", w.Code, w.Body.String())
		}

		if len(f.jobs.canceled) != 1 || f.jobs.canceled[0] != taskID {
			t.Errorf("canceled = %v, want [%s]", f.jobs.canceled, taskID)
		}

		if w := doJSON(t, f.router[creatorID], http.MethodGet, "/tasks/"+taskID, nil); w.Code != http.StatusNotFound {
			t.Errorf("after delete: status = %d, want 404", w.Code)
		}
	})
}

func TestToggleCompleteRoundTrip(t *testing.T) {
	f := newTasksFixture(t)
	f.seedTask(t, task.Task{
		ID: taskID, Title: "x", Status: task.StatusInProgress,
		Priority: task.PriorityMedium, CreatedBy: creatorID, AssignedTo: creatorID,
	})

	w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks/"+taskID+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeTask(t, w.Body.Bytes()); got.Status != task.StatusCompleted {
		t.Fatalf("after first toggle: status = %q, want completed", got.Status)
	}

	if len(f.jobs.canceled) != 1 {
		t.Errorf("completion must cancel the pending reminder, canceled = %v", f.jobs.canceled)
	}

	w = doJSON(t, f.router[creatorID], http.MethodPost, "/tasks/"+taskID+"/complete", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got := decodeTask(t, w.Body.Bytes()); got.Status != task.StatusInProgress {
		t.Fatalf("after second toggle: status = %q, want in_progress back", got.Status)
	}
}

func TestListTasks(t *testing.T) {
	f := newTasksFixture(t)
	f.seedTask(t, task.Task{ID: taskID, Title: "mine", Status: task.StatusTodo, Priority: task.PriorityHigh, CreatedBy: creatorID, AssignedTo: creatorID})
	f.seedTask(t, task.Task{ID: "55555555-5555-5555-5555-555555555555", Title: "other", Status: task.StatusTodo, Priority: task.PriorityLow, CreatedBy: strangerID, AssignedTo: strangerID})

	t.Run("scoped to requester", func(t *testing.T) {
		w := doJSON(t, f.router[creatorID], http.MethodGet, "/tasks", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
		}

		var resp struct {
			Tasks []task.Task `json:"tasks"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Tasks) != 1 || resp.Tasks[0].ID != taskID {
			t.Fatalf("tasks = %+v, want only own task", resp.Tasks)
		}
	})

	t.Run("second read is served from cache", func(t *testing.T) {
		w := doJSON(t, f.router[creatorID], http.MethodGet, "/tasks?status=todo", nil)
		if w.Header().Get("X-Cache") != "MISS" {
			t.Fatalf("first read: X-Cache = %q, want MISS", w.Header().Get("X-Cache"))
		}

		w = doJSON(t, f.router[creatorID], http.MethodGet, "/tasks?status=todo", nil)
		if w.Header().Get("X-Cache") != "HIT" {
			t.Fatalf("second read: X-Cache = %q, want HIT", w.Header().Get("X-Cache"))
		}
	})

	t.Run("invalid filter values", func(t *testing.T) {
		for _, q := range []string{"status=nope", "priority=urgent", "sortBy=owner", "order=sideways"} {
			w := doJSON(t, f.router[creatorID], http.MethodGet, "/tasks?"+q, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: status = %d, want 400", q, w.Code)
			}
		}
	})
}

func TestScheduleEmail(t *testing.T) {
	t.Run("sends to the supplied address", func(t *testing.T) {
		f := newTasksFixture(t)
		f.seedTask(t, task.Task{ID: taskID, Title: "pay invoice", CreatedBy: creatorID, AssignedTo: assigneeID})

		w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks/"+taskID+"/schedule-email", gin.H{
			"email": "third-party@example.com",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
		}

		if len(f.mailer.sent) != 1 {
			t.Fatalf("sent = %d mails, want 1", len(f.mailer.sent))
		}
		if got := f.mailer.sent[0]; got.To != "third-party@example.com" || got.Title != "pay invoice" {
			t.Errorf("sent = %+v", got)
		}
	})

	t.Run("missing or invalid address", func(t *testing.T) {
		f := newTasksFixture(t)
		f.seedTask(t, task.Task{ID: taskID, Title: "x", CreatedBy: creatorID, AssignedTo: assigneeID})

		for _, body := range []any{nil, gin.H{}, gin.H{"email": "not-an-address"}} {
			w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks/"+taskID+"/schedule-email", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body %v: status = %d, want 400", body, w.Code)
			}
		}
		if len(f.mailer.sent) != 0 {
			t.Errorf("invalid input must not send mail, sent = %v", f.mailer.sent)
		}
	})

	t.Run("mail failure surfaces as 500", func(t *testing.T) {
		f := newTasksFixture(t)
		f.mailer.fail = true
		f.seedTask(t, task.Task{ID: taskID, Title: "x", CreatedBy: creatorID, AssignedTo: assigneeID})

		w := doJSON(t, f.router[creatorID], http.MethodPost, "/tasks/"+taskID+"/schedule-email", gin.H{
			"email": "third-party@example.com",
		})
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", w.Code)
		}
		if code := errorCode(t, w); code != "mail_failed" {
			t.Errorf("code = %q, want mail_failed", code)
		}
	})

	t.Run("stranger cannot trigger a reminder", func(t *testing.T) {
		f := newTasksFixture(t)
		f.seedTask(t, task.Task{ID: taskID, Title: "x", CreatedBy: creatorID, AssignedTo: assigneeID})

		w := doJSON(t, f.router[strangerID], http.MethodPost, "/tasks/"+taskID+"/schedule-email", gin.H{
			"email": "third-party@example.com",
		})
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
	})
}
