package reconcile

import (
	"github.com/five82/prospector/internal/cache"
	"github.com/five82/prospector/internal/regolith"
)

// attach makes the new record id reachable from its session collection. It
// reports false when the session record is not cached.
func (r *Reconciler) attach(tx cache.Tx, p parent, id string, data cache.Fragment) bool {
	field := p.collectionField()
	if field == "" {
		return true
	}
	sessionKey := regolith.SessionKey(data.String("sessionId"))
	return tx.Modify(sessionKey, func(session cache.Fragment) bool {
		changed := appendRef(session, field, id)
		if p == parentMembers {
			if appendUnique(session, "activeMemberIds", data.String("userId")) {
				changed = true
			}
		}
		return changed
	})
}

// detachMember drops userId from the session's activeMemberIds. The ref in
// activeMembers is pruned by GC once the record is evicted.
func detachMember(tx cache.Tx, data cache.Fragment) {
	userID := data.String("userId")
	if userID == "" {
		return
	}
	tx.Modify(regolith.SessionKey(data.String("sessionId")), func(session cache.Fragment) bool {
		ids := session.List("activeMemberIds")
		kept := ids[:0:0]
		for _, v := range ids {
			if s, _ := v.(string); s != userID {
				kept = append(kept, v)
			}
		}
		if len(kept) == len(ids) {
			return false
		}
		session["activeMemberIds"] = kept
		return true
	})
}

func appendRef(f cache.Fragment, field, id string) bool {
	items := f.Items(field)
	for _, item := range items {
		if ref, ok := cache.RefID(item); ok && ref == id {
			return false
		}
	}
	f.SetItems(field, append(items, cache.Ref{ID: id}))
	return true
}

func appendUnique(f cache.Fragment, field, value string) bool {
	if value == "" {
		return false
	}
	list := f.List(field)
	for _, v := range list {
		if s, _ := v.(string); s == value {
			return false
		}
	}
	f[field] = append(list, value)
	return true
}

// findWorkOrder scans the session's work orders for orderID.
func findWorkOrder(tx cache.Tx, sessionID, orderID string) (string, bool) {
	session, ok := tx.Read(regolith.SessionKey(sessionID))
	if !ok {
		return "", false
	}
	for _, item := range session.Items("workOrders") {
		id, ok := cache.RefID(item)
		if !ok {
			continue
		}
		order, ok := tx.Read(id)
		if ok && order.String("orderId") == orderID {
			return id, true
		}
	}
	return "", false
}

// patchCrewShare applies a crew share delta to the embedded crewShares list of
// its work order, matching entries by payeeScName.
func patchCrewShare(order cache.Fragment, event regolith.EventName, data cache.Fragment, stateField string) (Outcome, bool) {
	payee := data.String("payeeScName")
	shares := order.List("crewShares")
	idx := -1
	for i, item := range shares {
		if share, ok := cache.AsFragment(item); ok && share.String("payeeScName") == payee {
			idx = i
			break
		}
	}

	switch {
	case event.IsRemove():
		if idx < 0 {
			return OutcomeRemoved, false
		}
		kept := make([]any, 0, len(shares)-1)
		kept = append(kept, shares[:idx]...)
		kept = append(kept, shares[idx+1:]...)
		order["crewShares"] = kept
		return OutcomeRemoved, true
	case idx >= 0:
		existing, _ := cache.AsFragment(shares[idx])
		if cache.Newer(existing, data) {
			return OutcomeStale, false
		}
		shares[idx] = map[string]any(merge(existing, data, stateField))
		order["crewShares"] = shares
		return OutcomeUpdated, true
	default:
		order["crewShares"] = append(shares, map[string]any(merge(nil, data, stateField)))
		return OutcomeAdded, true
	}
}

// merge returns {...existing, ...data, state: data[stateField]}.
func merge(existing, data cache.Fragment, stateField string) cache.Fragment {
	out := make(cache.Fragment, len(existing)+len(data)+1)
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range data {
		out[k] = v
	}
	if stateField != "" {
		if v, ok := data[stateField]; ok {
			out["state"] = v
		}
	}
	return out
}
