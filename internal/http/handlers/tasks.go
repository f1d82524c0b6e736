package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/authz"
	"github.com/taskhub/taskhub/internal/cache"
	"github.com/taskhub/taskhub/internal/domain/job"
	"github.com/taskhub/taskhub/internal/domain/task"
	"github.com/taskhub/taskhub/internal/http/middlewares"
	"github.com/taskhub/taskhub/internal/jobs"
	"github.com/taskhub/taskhub/internal/mail"
	"github.com/taskhub/taskhub/internal/observability"
	"github.com/taskhub/taskhub/internal/utils"
)

type TasksStore interface {
	CreateWithReminder(ctx context.Context, t task.Task, reminder *job.CreateRequest) (task.Task, error)
	GetByID(ctx context.Context, id string) (task.Task, error)
	List(ctx context.Context, requesterID string, filter task.ListTasksFilter) ([]task.Task, error)
	Update(ctx context.Context, t task.Task) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

type JobsStore interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
	CancelPendingByTask(ctx context.Context, taskID string) (int64, error)
}

type TasksHandler struct {
	store  TasksStore
	jobs   JobsStore
	mailer mail.Mailer
	cache  cache.Cache
	prom   *observability.Prom
	log    *slog.Logger

	// how long before the due date the automatic reminder fires
	reminderLead time.Duration
}

func NewTasksHandler(
	store TasksStore,
	jobsStore JobsStore,
	mailer mail.Mailer,
	c cache.Cache,
	prom *observability.Prom,
	log *slog.Logger,
	reminderLead time.Duration,
) *TasksHandler {
	return &TasksHandler{
		store:        store,
		jobs:         jobsStore,
		mailer:       mailer,
		cache:        c,
		prom:         prom,
		log:          log,
		reminderLead: reminderLead,
	}
}

// reminderRequest arms the reminder job for t, or returns nil when the
// task has no due date or the lead window has already elapsed.
func (h *TasksHandler) reminderRequest(c *gin.Context, t task.Task) *job.CreateRequest {
	if t.DueDate == nil {
		return nil
	}

	runAt, ok := jobs.ReminderRunAt(*t.DueDate, h.reminderLead, time.Now().UTC())
	if !ok {
		return nil
	}

	payload := jobs.TaskReminderPayload{
		TaskID:      t.ID,
		RequestedAt: time.Now().UTC(),
		RequestID:   c.GetString(middlewares.CtxRequestID),
	}

	raw, err := jobs.EncodePayload(jobs.TypeTaskReminder, payload)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "encode reminder payload", "err", err, "task_id", t.ID)
		return nil
	}

	key := "reminder:task:" + t.ID
	taskID := t.ID

	return &job.CreateRequest{
		Type:           jobs.TypeTaskReminder,
		Payload:        raw,
		RunAt:          runAt,
		MaxAttempts:    1,
		IdempotencyKey: &key,
		TaskID:         &taskID,
	}
}

func (h *TasksHandler) invalidateLists(ctx context.Context, userIDs ...string) {
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		h.cache.DeletePrefix(ctx, utils.TasksListCachePrefix(id))
	}
}

func (h *TasksHandler) Create(c *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(c)
	if !ok {
		RespondUnAuthorized(c, "Missing authentication")
		return
	}

	var req task.CreateTaskRequest
	if !BindJSON(c, &req) {
		return
	}

	t := task.NewFromCreateRequest(req, claims.UserID)

	created, err := h.store.CreateWithReminder(c.Request.Context(), t, h.reminderRequest(c, t))
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "create task", "err", err)
		RespondInternal(c)
		return
	}

	h.invalidateLists(c.Request.Context(), created.CreatedBy, created.AssignedTo)

	c.JSON(http.StatusCreated, gin.H{"task": created})
}

func (h *TasksHandler) List(c *gin.Context) {
	claims, ok := middlewares.ClaimsFromContext(c)
	if !ok {
		RespondUnAuthorized(c, "Missing authentication")
		return
	}

	filter, ok := parseListFilter(c)
	if !ok {
		return
	}

	key := utils.BuildTasksListCacheKey(claims.UserID, filter)

	if body, hit := h.cache.Get(c.Request.Context(), key); hit {
		c.Header("X-Cache", "HIT")
		RespondJSONWithETag(c, http.StatusOK, body)
		return
	}

	tasksList, err := h.store.List(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "list tasks", "err", err)
		RespondInternal(c)
		return
	}

	body, err := json.Marshal(gin.H{"tasks": tasksList})
	if err != nil {
		RespondInternal(c)
		return
	}

	h.cache.Set(c.Request.Context(), key, body)
	c.Header("X-Cache", "MISS")
	RespondJSONWithETag(c, http.StatusOK, body)
}

func parseListFilter(c *gin.Context) (task.ListTasksFilter, bool) {
	var filter task.ListTasksFilter
	var fields []FieldError

	if s := c.Query("status"); s != "" {
		switch task.Status(s) {
		case task.StatusTodo, task.StatusInProgress, task.StatusCompleted:
			st := task.Status(s)
			filter.Status = &st
		default:
			fields = append(fields, FieldError{Field: "status", Message: "must be one of: todo, in_progress, completed"})
		}
	}

	if p := c.Query("priority"); p != "" {
		switch task.Priority(p) {
		case task.PriorityLow, task.PriorityMedium, task.PriorityHigh:
			pr := task.Priority(p)
			filter.Priority = &pr
		default:
			fields = append(fields, FieldError{Field: "priority", Message: "must be one of: low, medium, high"})
		}
	}

	filter.SortBy = c.DefaultQuery("sortBy", "createdAt")
	if !task.ValidSortBy(filter.SortBy) {
		fields = append(fields, FieldError{Field: "sortBy", Message: "must be one of: dueDate, priority, createdAt, title"})
	}

	filter.Order = strings.ToLower(c.DefaultQuery("order", "asc"))
	if filter.Order != "asc" && filter.Order != "desc" {
		fields = append(fields, FieldError{Field: "order", Message: "must be one of: asc, desc"})
	}

	if len(fields) > 0 {
		RespondBadRequest(c, "validation_failed", "Query validation failed", fields)
		return task.ListTasksFilter{}, false
	}

	return filter, true
}

// loadAuthorized is the shared read-check step of every /tasks/:id
// handler: parse the id, load the task and run the authz gate.
func (h *TasksHandler) loadAuthorized(c *gin.Context, action authz.Action) (task.Task, bool) {
	claims, ok := middlewares.ClaimsFromContext(c)
	if !ok {
		RespondUnAuthorized(c, "Missing authentication")
		return task.Task{}, false
	}

	// a malformed id cannot resolve to a task, same answer as a miss
	id := c.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(c, "Task not found")
		return task.Task{}, false
	}

	t, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(c, "Task not found")
			return task.Task{}, false
		}
		h.log.ErrorContext(c.Request.Context(), "load task", "err", err, "task_id", id)
		RespondInternal(c)
		return task.Task{}, false
	}

	if err := authz.Can(claims, t, action); err != nil {
		RespondForbidden(c, "You do not have access to this task")
		return task.Task{}, false
	}

	return t, true
}

func (h *TasksHandler) GetByID(c *gin.Context) {
	t, ok := h.loadAuthorized(c, authz.ActionView)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *TasksHandler) Update(c *gin.Context) {
	t, ok := h.loadAuthorized(c, authz.ActionUpdate)
	if !ok {
		return
	}

	var req task.UpdateTaskRequest
	if !BindJSON(c, &req) {
		return
	}

	updated := task.ApplyUpdate(t, req)

	// keep the toggle history coherent when status changes by update
	if req.Status != nil {
		switch {
		case *req.Status == task.StatusCompleted && t.Status != task.StatusCompleted:
			updated.PrevStatus = t.Status
		case *req.Status != task.StatusCompleted:
			updated.PrevStatus = ""
		}
	}

	updated, err := h.store.Update(c.Request.Context(), updated)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(c, "Task not found")
			return
		}
		h.log.ErrorContext(c.Request.Context(), "update task", "err", err, "task_id", t.ID)
		RespondInternal(c)
		return
	}

	h.syncReminder(c, t, updated)
	h.invalidateLists(c.Request.Context(), t.CreatedBy, t.AssignedTo, updated.AssignedTo)

	c.JSON(http.StatusOK, gin.H{"task": updated})
}

// syncReminder keeps the armed reminder in step with an update. A
// completed task never reminds; a moved due date replaces the old
// schedule with a fresh one.
func (h *TasksHandler) syncReminder(c *gin.Context, before, after task.Task) {
	ctx := c.Request.Context()

	dueChanged := !equalDue(before.DueDate, after.DueDate)
	completedNow := after.Status == task.StatusCompleted && before.Status != task.StatusCompleted

	if !dueChanged && !completedNow {
		return
	}

	if _, err := h.jobs.CancelPendingByTask(ctx, after.ID); err != nil {
		h.log.ErrorContext(ctx, "cancel pending reminder", "err", err, "task_id", after.ID)
	}

	if dueChanged && after.Status != task.StatusCompleted {
		if req := h.reminderRequest(c, after); req != nil {
			if _, err := h.jobs.Create(ctx, *req); err != nil {
				h.log.ErrorContext(ctx, "reschedule reminder", "err", err, "task_id", after.ID)
			}
		}
	}
}

func equalDue(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (h *TasksHandler) Delete(c *gin.Context) {
	t, ok := h.loadAuthorized(c, authz.ActionDelete)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), t.ID); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(c, "Task not found")
			return
		}
		h.log.ErrorContext(c.Request.Context(), "delete task", "err", err, "task_id", t.ID)
		RespondInternal(c)
		return
	}

	if _, err := h.jobs.CancelPendingByTask(c.Request.Context(), t.ID); err != nil {
		h.log.ErrorContext(c.Request.Context(), "cancel pending reminder", "err", err, "task_id", t.ID)
	}

	h.invalidateLists(c.Request.Context(), t.CreatedBy, t.AssignedTo)

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

func (h *TasksHandler) ToggleComplete(c *gin.Context) {
	t, ok := h.loadAuthorized(c, authz.ActionToggle)
	if !ok {
		return
	}

	status, prev := t.Toggled()
	t.Status = status
	t.PrevStatus = prev
	t.UpdatedAt = time.Now().UTC()

	updated, err := h.store.Update(c.Request.Context(), t)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			RespondNotFound(c, "Task not found")
			return
		}
		h.log.ErrorContext(c.Request.Context(), "toggle task", "err", err, "task_id", t.ID)
		RespondInternal(c)
		return
	}

	if updated.Status == task.StatusCompleted {
		if _, err := h.jobs.CancelPendingByTask(c.Request.Context(), updated.ID); err != nil {
			h.log.ErrorContext(c.Request.Context(), "cancel pending reminder", "err", err, "task_id", updated.ID)
		}
	}

	h.invalidateLists(c.Request.Context(), updated.CreatedBy, updated.AssignedTo)

	c.JSON(http.StatusOK, gin.H{"task": updated})
}

type ScheduleEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ScheduleEmail sends a reminder right now, synchronously, to the
// address supplied by the caller. The caller learns on the spot
// whether the mail went out.
func (h *TasksHandler) ScheduleEmail(c *gin.Context) {
	t, ok := h.loadAuthorized(c, authz.ActionRemind)
	if !ok {
		return
	}

	var req ScheduleEmailRequest
	if !BindJSON(c, &req) {
		return
	}

	in := mail.TaskReminderInput{
		To:          req.Email,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
	}

	if err := h.mailer.SendTaskReminder(c.Request.Context(), in); err != nil {
		if h.prom != nil {
			h.prom.MailSendsTotal.WithLabelValues("manual", "error").Inc()
		}
		h.log.ErrorContext(c.Request.Context(), "manual reminder send", "err", err, "task_id", t.ID)
		RespondError(c, http.StatusInternalServerError, "mail_failed", "Could not send the reminder email", nil)
		return
	}

	if h.prom != nil {
		h.prom.MailSendsTotal.WithLabelValues("manual", "ok").Inc()
	}

	c.JSON(http.StatusOK, gin.H{"message": "reminder sent", "to": req.Email})
}
