package regolith

import (
	"strings"

	"github.com/five82/prospector/internal/cache"
)

// Concrete GraphQL types the session cache stores.
const (
	TypeSession            = "Session"
	TypeSessionUser        = "SessionUser"
	TypeShipMiningOrder    = "ShipMiningOrder"
	TypeVehicleMiningOrder = "VehicleMiningOrder"
	TypeSalvageOrder       = "SalvageOrder"
	TypeOtherOrder         = "OtherOrder"
	TypeCrewShare          = "CrewShare"
	TypeShipClusterFind    = "ShipClusterFind"
	TypeVehicleClusterFind = "VehicleClusterFind"
	TypeSalvageFind        = "SalvageFind"
)

// WorkOrderTypes lists every work order variant.
var WorkOrderTypes = []string{TypeShipMiningOrder, TypeVehicleMiningOrder, TypeSalvageOrder, TypeOtherOrder}

// ScoutingFindTypes lists every scouting find variant.
var ScoutingFindTypes = []string{TypeShipClusterFind, TypeVehicleClusterFind, TypeSalvageFind}

// EventName is the kind of change a delta record describes.
type EventName string

const (
	EventCreate EventName = "CREATE"
	EventUpdate EventName = "UPDATE"
	EventRemove EventName = "REMOVE"
)

// IsRemove reports whether the event deletes its entity.
func (e EventName) IsRemove() bool {
	return strings.EqualFold(string(e), string(EventRemove))
}

// Delta is one record of the sessionUpdates query.
type Delta struct {
	EventDate int64          `json:"eventDate"`
	SessionID string         `json:"sessionId"`
	EventName EventName      `json:"eventName"`
	Data      cache.Fragment `json:"data"`
}

// SessionKey returns the cache id of the session record.
func SessionKey(sessionID string) string {
	return TypeSession + ":" + sessionID
}

// Policies returns the cache type policies for the session schema.
func Policies() *cache.Policies {
	types := map[string]cache.Policy{
		TypeSession:     {KeyFields: []string{"sessionId"}},
		TypeSessionUser: {KeyFields: []string{"sessionId", "userId"}},
	}
	for _, name := range WorkOrderTypes {
		types[name] = cache.Policy{KeyFields: []string{"sessionId", "orderId"}}
	}
	for _, name := range ScoutingFindTypes {
		types[name] = cache.Policy{KeyFields: []string{"sessionId", "scoutingFindId"}}
	}
	return &cache.Policies{
		Types: types,
		Discriminators: []cache.Discriminator{
			{Field: "orderType", Variants: map[string]string{
				"SHIP":    TypeShipMiningOrder,
				"VEHICLE": TypeVehicleMiningOrder,
				"SALVAGE": TypeSalvageOrder,
				"OTHER":   TypeOtherOrder,
			}},
			{Field: "clusterType", Variants: map[string]string{
				"SHIP":    TypeShipClusterFind,
				"VEHICLE": TypeVehicleClusterFind,
				"SALVAGE": TypeSalvageFind,
			}},
		},
	}
}
