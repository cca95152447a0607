package reconcile

import "github.com/five82/prospector/internal/regolith"

// parent names the collection a new entity must be reachable from.
type parent int

const (
	parentNone parent = iota
	parentMembers
	parentWorkOrders
	parentScouting
	parentWorkOrder
)

// kind describes how deltas of one __typename are applied.
type kind struct {
	// stateField is the aliased field the delta query selects state under.
	stateField string
	parent     parent
}

var kinds = func() map[string]kind {
	k := map[string]kind{
		regolith.TypeSession:     {stateField: "sessionState"},
		regolith.TypeSessionUser: {stateField: "sessionUserState", parent: parentMembers},
		regolith.TypeCrewShare:   {stateField: "crewShareState", parent: parentWorkOrder},
	}
	for _, name := range regolith.WorkOrderTypes {
		k[name] = kind{stateField: "workOrderState", parent: parentWorkOrders}
	}
	for _, name := range regolith.ScoutingFindTypes {
		k[name] = kind{stateField: "scoutingFindState", parent: parentScouting}
	}
	return k
}()

// collectionField returns the session field holding refs for p.
func (p parent) collectionField() string {
	switch p {
	case parentMembers:
		return "activeMembers"
	case parentWorkOrders:
		return "workOrders"
	case parentScouting:
		return "scouting"
	default:
		return ""
	}
}
