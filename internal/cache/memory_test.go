package cache

import (
	"errors"
	"reflect"
	"testing"
)

func testPolicies() *Policies {
	return &Policies{
		Types: map[string]Policy{
			"Session":         {KeyFields: []string{"sessionId"}},
			"SessionUser":     {KeyFields: []string{"sessionId", "userId"}},
			"ShipMiningOrder": {KeyFields: []string{"sessionId", "orderId"}},
			"SalvageOrder":    {KeyFields: []string{"sessionId", "orderId"}},
		},
		Discriminators: []Discriminator{
			{Field: "orderType", Variants: map[string]string{"SHIP": "ShipMiningOrder", "SALVAGE": "SalvageOrder"}},
		},
	}
}

func TestPolicies_Identify(t *testing.T) {
	p := testPolicies()

	tests := []struct {
		name    string
		in      Fragment
		want    string
		wantErr bool
	}{
		{"typename", Fragment{"__typename": "SessionUser", "sessionId": "sess1", "userId": "u1"}, "SessionUser:sess1:u1", false},
		{"discriminator", Fragment{"orderType": "salvage", "sessionId": "sess1", "orderId": "o9"}, "SalvageOrder:sess1:o9", false},
		{"missing key", Fragment{"__typename": "SessionUser", "sessionId": "sess1"}, "", true},
		{"no policy", Fragment{"__typename": "CrewShare", "orderId": "o1"}, "", true},
		{"no type", Fragment{"sessionId": "sess1"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Identify(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnidentifiable) {
					t.Fatalf("Identify error = %v, want ErrUnidentifiable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Identify returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Identify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMemory_ReadReturnsCopy(t *testing.T) {
	m := NewMemory(testPolicies())
	m.Write("Session:s", Fragment{"name": "a", "activeMemberIds": []any{"u1"}})

	got, ok := m.Read("Session:s")
	if !ok {
		t.Fatal("Read returned ok=false")
	}
	got["name"] = "changed"
	got["activeMemberIds"] = append(got.List("activeMemberIds"), "u2")

	again, _ := m.Read("Session:s")
	if again.String("name") != "a" {
		t.Fatalf("name = %q, want a", again.String("name"))
	}
	if len(again.List("activeMemberIds")) != 1 {
		t.Fatalf("activeMemberIds = %v, want 1 entry", again.List("activeMemberIds"))
	}
}

func TestMemory_ModifyOnlyWritesWhenAsked(t *testing.T) {
	m := NewMemory(testPolicies())
	if m.Modify("missing", func(Fragment) bool { return true }) {
		t.Fatal("Modify on missing record returned true")
	}

	m.Write("Session:s", Fragment{"name": "a"})
	m.Modify("Session:s", func(f Fragment) bool {
		f["name"] = "discarded"
		return false
	})
	got, _ := m.Read("Session:s")
	if got.String("name") != "a" {
		t.Fatalf("name = %q, want a", got.String("name"))
	}

	m.Modify("Session:s", func(f Fragment) bool {
		f["name"] = "kept"
		return true
	})
	got, _ = m.Read("Session:s")
	if got.String("name") != "kept" {
		t.Fatalf("name = %q, want kept", got.String("name"))
	}
}

func sessionTree() Fragment {
	return Fragment{
		"__typename":      "Session",
		"sessionId":       "s",
		"name":            "Aaron Halo run",
		"updatedAt":       int64(10),
		"activeMemberIds": []any{"u1"},
		"activeMembers": map[string]any{
			"items": []any{
				map[string]any{"__typename": "SessionUser", "sessionId": "s", "userId": "u1", "updatedAt": int64(10)},
			},
			"nextToken": nil,
		},
		"workOrders": map[string]any{
			"items": []any{
				map[string]any{
					"orderType": "SHIP", "sessionId": "s", "orderId": "o1", "updatedAt": int64(10),
					"crewShares": []any{map[string]any{"__typename": "CrewShare", "orderId": "o1", "payeeScName": "pilot"}},
				},
			},
		},
	}
}

func TestMemory_WriteTreeNormalizes(t *testing.T) {
	m := NewMemory(testPolicies())

	id, err := m.WriteTree(sessionTree())
	if err != nil {
		t.Fatalf("WriteTree returned error: %v", err)
	}
	if id != "Session:s" {
		t.Fatalf("id = %q, want Session:s", id)
	}

	want := []string{"Session:s", "SessionUser:s:u1", "ShipMiningOrder:s:o1"}
	if got := m.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs = %v, want %v", got, want)
	}

	session, _ := m.Read("Session:s")
	items := session.Items("workOrders")
	if len(items) != 1 {
		t.Fatalf("workOrders items = %v, want 1", items)
	}
	if ref, ok := RefID(items[0]); !ok || ref != "ShipMiningOrder:s:o1" {
		t.Fatalf("workOrders item = %#v, want ref to ShipMiningOrder:s:o1", items[0])
	}

	order, _ := m.Read("ShipMiningOrder:s:o1")
	if order.Typename() != "ShipMiningOrder" {
		t.Fatalf("order typename = %q, want resolved ShipMiningOrder", order.Typename())
	}
	shares := order.List("crewShares")
	if len(shares) != 1 {
		t.Fatalf("crewShares = %v, want embedded entry", shares)
	}
	if _, isRef := RefID(shares[0]); isRef {
		t.Fatal("crew share should stay embedded")
	}
}

func TestMemory_WriteTreeKeepsNewerRecords(t *testing.T) {
	m := NewMemory(testPolicies())
	m.Write("SessionUser:s:u1", Fragment{"__typename": "SessionUser", "sessionId": "s", "userId": "u1", "updatedAt": int64(99), "state": "ON_SITE"})

	if _, err := m.WriteTree(sessionTree()); err != nil {
		t.Fatalf("WriteTree returned error: %v", err)
	}
	user, _ := m.Read("SessionUser:s:u1")
	if user.String("state") != "ON_SITE" {
		t.Fatalf("state = %q, want newer record kept", user.String("state"))
	}
}

func TestMemory_GCEvictsUnreachableAndPrunesRefs(t *testing.T) {
	m := NewMemory(testPolicies())
	id, err := m.WriteTree(sessionTree())
	if err != nil {
		t.Fatalf("WriteTree returned error: %v", err)
	}
	m.Retain(id)
	m.Write("SessionUser:s:orphan", Fragment{"userId": "orphan"})

	if n := m.GC(); n != 1 {
		t.Fatalf("GC evicted %d, want 1", n)
	}
	if _, ok := m.Read("SessionUser:s:orphan"); ok {
		t.Fatal("orphan survived GC")
	}

	m.Evict("ShipMiningOrder:s:o1")
	m.GC()
	session, _ := m.Read("Session:s")
	if items := session.Items("workOrders"); len(items) != 0 {
		t.Fatalf("workOrders items = %v, want dangling ref pruned", items)
	}
	if items := session.Items("activeMembers"); len(items) != 1 {
		t.Fatalf("activeMembers items = %v, want untouched", items)
	}
}

func TestMemory_BatchIsExclusive(t *testing.T) {
	m := NewMemory(testPolicies())
	m.Write("Session:s", Fragment{"n": int64(0)})

	done := make(chan struct{})
	m.Batch(func(tx Tx) {
		go func() {
			m.Read("Session:s")
			close(done)
		}()
		tx.Write("Session:s", Fragment{"n": int64(1)})
		select {
		case <-done:
			t.Error("reader ran while batch held the lock")
		default:
		}
	})
	<-done
	got, _ := m.Read("Session:s")
	if n, _ := got.Int64("n"); n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
}

func TestFragment_Int64(t *testing.T) {
	f := Fragment{"a": int64(5), "b": float64(7), "c": "11", "d": "x"}
	for field, want := range map[string]int64{"a": 5, "b": 7, "c": 11} {
		got, ok := f.Int64(field)
		if !ok || got != want {
			t.Fatalf("Int64(%q) = %d,%v want %d", field, got, ok, want)
		}
	}
	if _, ok := f.Int64("d"); ok {
		t.Fatal("Int64(d) ok=true, want false")
	}
}
