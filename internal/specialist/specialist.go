// Package specialist implements the reasoning services consulted for a
// single turn: a router that decides which capabilities apply, the
// specialist agents themselves, and a pool that fans consultations out
// and gathers them.
package specialist

import "context"

// ID identifies one capability in the fixed catalog.
type ID string

const (
	Medical  ID = "medical"
	Legacy   ID = "legacy"
	ACP      ID = "acp"
	Cultural ID = "cultural"
)

// Catalog is the full capability catalog in consultation order.
var Catalog = []ID{Medical, Legacy, ACP, Cultural}

// Label returns the display name used in composed specialist blocks.
func (id ID) Label() string {
	switch id {
	case Medical:
		return "MEDICAL"
	case Legacy:
		return "LEGACY"
	case ACP:
		return "ACP"
	case Cultural:
		return "CULTURAL"
	default:
		return string(id)
	}
}

// TurnContext carries the per-turn inputs every specialist sees.
type TurnContext struct {
	Query    string
	History  string
	UserInfo string
}

// Specialist is one consultable capability.
type Specialist interface {
	ID() ID
	Consult(ctx context.Context, tc TurnContext) (string, error)
}
