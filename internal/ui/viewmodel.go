package ui

import (
	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/regolith"
)

// sessionView is the cache projected into what the tabs render.
type sessionView struct {
	Loaded    bool
	SessionID string
	Name      string
	State     string
	Note      string
	OwnerID   string
	UpdatedAt int64

	Members []memberRow
	Orders  []orderRow
	Finds   []findRow
}

type memberRow struct {
	UserID    string
	State     string
	Vehicle   string
	CaptainID string
	Pilot     bool
	Active    bool // listed in activeMemberIds
	UpdatedAt int64
}

type orderRow struct {
	OrderID   string
	Kind      string
	State     string
	OwnerID   string
	Seller    string
	Shares    int
	Paid      int
	Sold      bool
	Note      string
	UpdatedAt int64
}

type findRow struct {
	FindID    string
	Kind      string
	State     string
	OwnerID   string
	Clusters  int64
	Note      string
	UpdatedAt int64
}

var kindLabels = map[string]string{
	regolith.TypeShipMiningOrder:    "Ship",
	regolith.TypeVehicleMiningOrder: "ROC",
	regolith.TypeSalvageOrder:       "Salvage",
	regolith.TypeOtherOrder:         "Other",
	regolith.TypeShipClusterFind:    "Ship",
	regolith.TypeVehicleClusterFind: "ROC",
	regolith.TypeSalvageFind:        "Salvage",
}

// project reads the session record and follows its collection refs. Refs
// whose record is missing are skipped.
func project(r cache.Reader, sessionID string) sessionView {
	session, ok := r.Read(regolith.SessionKey(sessionID))
	if !ok {
		return sessionView{SessionID: sessionID}
	}

	view := sessionView{
		Loaded:    true,
		SessionID: sessionID,
		Name:      session.String("name"),
		State:     session.String("state"),
		Note:      session.String("note"),
		OwnerID:   session.String("ownerId"),
	}
	view.UpdatedAt, _ = session.Int64("updatedAt")

	active := make(map[string]bool)
	for _, v := range session.List("activeMemberIds") {
		if id, ok := v.(string); ok {
			active[id] = true
		}
	}

	for _, f := range follow(r, session, "activeMembers") {
		row := memberRow{
			UserID:    f.String("userId"),
			State:     f.String("state"),
			Vehicle:   f.String("vehicleCode"),
			CaptainID: f.String("captainId"),
			Pilot:     boolField(f, "isPilot"),
		}
		row.Active = active[row.UserID]
		row.UpdatedAt, _ = f.Int64("updatedAt")
		view.Members = append(view.Members, row)
	}

	for _, f := range follow(r, session, "workOrders") {
		row := orderRow{
			OrderID: f.String("orderId"),
			Kind:    kindLabel(f.Typename()),
			State:   f.String("state"),
			OwnerID: f.String("ownerId"),
			Seller:  f.String("sellerscName"),
			Sold:    boolField(f, "isSold"),
			Note:    f.String("note"),
		}
		for _, item := range f.List("crewShares") {
			share, ok := cache.AsFragment(item)
			if !ok {
				continue
			}
			row.Shares++
			if boolField(share, "state") {
				row.Paid++
			}
		}
		row.UpdatedAt, _ = f.Int64("updatedAt")
		view.Orders = append(view.Orders, row)
	}

	for _, f := range follow(r, session, "scouting") {
		row := findRow{
			FindID:  f.String("scoutingFindId"),
			Kind:    kindLabel(f.Typename()),
			State:   f.String("state"),
			OwnerID: f.String("ownerId"),
			Note:    f.String("note"),
		}
		row.Clusters, _ = f.Int64("clusterCount")
		row.UpdatedAt, _ = f.Int64("updatedAt")
		view.Finds = append(view.Finds, row)
	}

	return view
}

func follow(r cache.Reader, session cache.Fragment, field string) []cache.Fragment {
	items := session.Items(field)
	out := make([]cache.Fragment, 0, len(items))
	for _, item := range items {
		id, ok := cache.RefID(item)
		if !ok {
			continue
		}
		if f, ok := r.Read(id); ok {
			out = append(out, f)
		}
	}
	return out
}

func boolField(f cache.Fragment, field string) bool {
	v, _ := f[field].(bool)
	return v
}

func kindLabel(typename string) string {
	if label, ok := kindLabels[typename]; ok {
		return label
	}
	return typename
}
