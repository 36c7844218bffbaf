// Package policy decides what the current session may do with a resource.
// All functions are pure.
package policy

import (
	"reflect"
	"strings"

	"github.com/dmitrijs2005/coffeedia/internal/client/models"
)

type Action string

const (
	View   Action = "view"
	Create Action = "create"
	Edit   Action = "edit"
	Delete Action = "delete"
)

func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case View, Create, Edit, Delete:
		return a, true
	}
	return "", false
}

// Subject is the session as seen by the policy.
type Subject struct {
	Authenticated bool
	User          *models.User
}

// Resource is anything that reports its ownership fields. Every resource
// model embedding models.Ownership qualifies.
type Resource interface {
	Owner() models.Ownership
}

// RequiresAuth reports whether the action needs a logged-in session.
func RequiresAuth(a Action) bool {
	switch a {
	case Create, Edit, Delete:
		return true
	}
	return false
}

// ResolveOwner returns the owner id from the first ownership field present:
// createdBy.id, then userId, then authorId.
func ResolveOwner(r Resource) (int64, bool) {
	if isNil(r) {
		return 0, false
	}

	o := r.Owner()
	switch {
	case o.CreatedBy != nil:
		return o.CreatedBy.ID, true
	case o.UserID != nil:
		return *o.UserID, true
	case o.AuthorID != nil:
		return *o.AuthorID, true
	}
	return 0, false
}

func IsOwner(s Subject, r Resource) bool {
	if !s.Authenticated || s.User == nil {
		return false
	}
	owner, ok := ResolveOwner(r)
	return ok && owner == s.User.ID
}

// CanPerform: view is always allowed, create needs a session, edit and
// delete need a session that owns the resource. Anything else is denied.
func CanPerform(a Action, s Subject, r Resource) bool {
	switch a {
	case View:
		return true
	case Create:
		return s.Authenticated
	case Edit, Delete:
		return IsOwner(s, r)
	}
	return false
}

func isNil(r Resource) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
