// Package access holds the authorization policy: which classes an actor may see and write.
// Every decision fails closed: an unknown role or an empty target set is denied.
package access

import (
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/user"
)

// Scope restricts queries to a set of classes.
// The zero Scope is restricted to no class and matches nothing.
type Scope struct {
	unrestricted bool
	classIDs     []int64
}

// Unrestricted returns a Scope matching every class.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// Restricted returns a Scope matching only classIDs.
func Restricted(classIDs []int64) Scope {
	return Scope{classIDs: core.UniqueIDs(classIDs)}
}

func (s Scope) IsUnrestricted() bool { return s.unrestricted }

// IsEmpty reports whether the Scope matches nothing.
func (s Scope) IsEmpty() bool { return !s.unrestricted && len(s.classIDs) == 0 }

// ClassIDs returns the classes of a restricted Scope; nil when unrestricted.
func (s Scope) ClassIDs() []int64 {
	if s.unrestricted {
		return nil
	}
	ids := make([]int64, len(s.classIDs))
	copy(ids, s.classIDs)
	return ids
}

func (s Scope) Allows(classID int64) bool {
	if s.unrestricted {
		return true
	}
	for _, id := range s.classIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// ScopeFor returns the read scope of actor.
func ScopeFor(actor *user.Actor) (Scope, error) {
	if actor == nil {
		return Scope{}, core.ErrUnauthenticated
	}
	switch actor.Role {
	case user.RoleAdmin:
		return Unrestricted(), nil
	case user.RoleTeacher:
		return Restricted(actor.ClassIDs), nil
	default:
		return Scope{}, core.ErrForbidden
	}
}

// AuthorizeWrite allows actor to write records touching classIDs.
// Teachers must be assigned to every class touched.
func AuthorizeWrite(actor *user.Actor, classIDs []int64) error {
	if actor == nil {
		return core.ErrUnauthenticated
	}
	targets := core.UniqueIDs(classIDs)
	if len(targets) == 0 {
		return core.ErrForbidden
	}
	switch actor.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleTeacher:
		scope := Restricted(actor.ClassIDs)
		if scope.IsEmpty() {
			return core.ErrForbidden
		}
		for _, id := range targets {
			if !scope.Allows(id) {
				return core.ErrForbidden
			}
		}
		return nil
	default:
		return core.ErrForbidden
	}
}

// AuthorizeAdmin allows admins only.
func AuthorizeAdmin(actor *user.Actor) error {
	if actor == nil {
		return core.ErrUnauthenticated
	}
	if actor.Role != user.RoleAdmin {
		return core.ErrForbidden
	}
	return nil
}
