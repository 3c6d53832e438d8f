package core

import "fmt"

// Domain is an opaque position among count symmetric execution contexts, such as
// the workers of a runtime or the memory regions they belong to. The zero Domain
// means "no domain" and is what root and system threads carry.
type Domain struct {
	index int
	count int
}

// NewDomain creates a Domain. It panics if index is not in [0, count).
func NewDomain(index, count int) Domain {
	if count <= 0 || index < 0 || index >= count {
		panicProgramming("domain index %d out of range for count %d", index, count)
	}
	return Domain{index: index, count: count}
}

// Index returns the position of the domain.
func (d Domain) Index() int { return d.index }

// Count returns the number of peers the domain was created among.
func (d Domain) Count() int { return d.count }

// IsValid reports whether d was created by NewDomain.
func (d Domain) IsValid() bool { return d.count > 0 }

func (d Domain) String() string {
	if !d.IsValid() {
		return "domain(none)"
	}
	return fmt.Sprintf("domain(%d/%d)", d.index, d.count)
}

// PlacementKind enumerates placement policies.
type PlacementKind int

const (
	// PlacementAny lets the dispatcher choose a foreground worker.
	PlacementAny PlacementKind = iota
	// PlacementSameThreadAs pins the task to the worker named by a Domain token.
	PlacementSameThreadAs
	// PlacementBackground routes the task to the low-priority worker category.
	PlacementBackground
	// PlacementCurrentRegion picks a worker in the caller's memory region.
	PlacementCurrentRegion
)

func (k PlacementKind) String() string {
	switch k {
	case PlacementAny:
		return "any"
	case PlacementSameThreadAs:
		return "same_thread_as"
	case PlacementBackground:
		return "background"
	case PlacementCurrentRegion:
		return "current_region"
	default:
		return "unknown"
	}
}

// Placement tells the dispatcher where a new task should run. It is resolved once,
// at spawn time.
type Placement struct {
	kind  PlacementKind
	token Domain
}

// Any lets the dispatcher choose.
func Any() Placement {
	return Placement{kind: PlacementAny}
}

// SameThreadAs pins a task to the worker identified by token. Tokens come from
// ThreadState.Domain or a join handle's Domain.
func SameThreadAs(token Domain) Placement {
	if !token.IsValid() {
		panicProgramming("SameThreadAs requires a valid domain token")
	}
	return Placement{kind: PlacementSameThreadAs, token: token}
}

// Background routes a task to the background worker category.
func Background() Placement {
	return Placement{kind: PlacementBackground}
}

// CurrentRegion places a task in the caller's memory region.
func CurrentRegion() Placement {
	return Placement{kind: PlacementCurrentRegion}
}

func (p Placement) Kind() PlacementKind { return p.kind }

// Token returns the pinned domain for SameThreadAs placements.
func (p Placement) Token() (Domain, bool) {
	return p.token, p.kind == PlacementSameThreadAs
}

func (p Placement) String() string {
	if p.kind == PlacementSameThreadAs {
		return fmt.Sprintf("%s(%s)", p.kind, p.token)
	}
	return p.kind.String()
}
