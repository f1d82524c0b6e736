// Package authz decides what a verified identity may do with a task.
// The claim is passed in explicitly; nothing here reads ambient state.
package authz

import (
	"errors"

	"github.com/taskhub/taskhub/internal/auth"
	"github.com/taskhub/taskhub/internal/domain/task"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionView   Action = "view"
	ActionUpdate Action = "update"
	ActionToggle Action = "toggle_complete"
	ActionDelete Action = "delete"
	ActionRemind Action = "remind"
)

// Can reports whether the claim's identity may perform action on t.
// Creator and assignee may view, update, toggle and send reminders;
// only the creator may delete.
func Can(claims *auth.Claims, t task.Task, action Action) error {
	if claims == nil || claims.UserID == "" {
		return ErrForbidden
	}

	switch action {
	case ActionDelete:
		if claims.UserID == t.CreatedBy {
			return nil
		}
	case ActionView, ActionUpdate, ActionToggle, ActionRemind:
		if claims.UserID == t.CreatedBy || claims.UserID == t.AssignedTo {
			return nil
		}
	}

	return ErrForbidden
}
