package utils

import (
	"github.com/google/uuid"
	"github.com/taskhub/taskhub/internal/domain/task"
)

func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// TasksListCachePrefix scopes cached list responses to one user so a
// mutation only invalidates that user's pages.
func TasksListCachePrefix(userID string) string {
	return "tasks:list:v1:user=" + userID
}

func BuildTasksListCacheKey(userID string, filter task.ListTasksFilter) string {
	s := ""
	if filter.Status != nil {
		s = string(*filter.Status)
	}
	p := ""
	if filter.Priority != nil {
		p = string(*filter.Priority)
	}

	return TasksListCachePrefix(userID) +
		":status=" + s +
		":priority=" + p +
		":sortBy=" + filter.SortBy +
		":order=" + filter.Order
}
