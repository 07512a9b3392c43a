package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// fakeRelay connects hubs in one process the way Redis connects instances.
type fakeRelay struct {
	origin  string
	net     *fakeNet
	failPub bool
}

type fakeNet struct {
	relays []*fakeRelay
	sent   []RelayMessage
	inbox  map[*fakeRelay]func(RelayMessage)
}

func newFakeNet() *fakeNet {
	return &fakeNet{inbox: make(map[*fakeRelay]func(RelayMessage))}
}

func (n *fakeNet) relay(origin string) *fakeRelay {
	r := &fakeRelay{origin: origin, net: n}
	n.relays = append(n.relays, r)
	return r
}

func (r *fakeRelay) Publish(_ context.Context, msg RelayMessage) error {
	if r.failPub {
		return errors.New("redis down")
	}
	msg.Origin = r.origin
	r.net.sent = append(r.net.sent, msg)
	for other, deliver := range r.net.inbox {
		if other.origin != msg.Origin {
			deliver(msg)
		}
	}
	return nil
}

// Run registers synchronously so tests need no goroutines.
func (r *fakeRelay) Run(_ context.Context, deliver func(RelayMessage)) error {
	r.net.inbox[r] = deliver
	return nil
}

func testClient(id, room string) *Client {
	return &Client{ID: id, Room: room, send: make(chan WSMessage, 4)}
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestHubBroadcastIsPerRoom(t *testing.T) {
	h := NewHub(nil, nil)
	a := testClient("a", RoomAdmin)
	b := testClient("b", "other")
	h.Register(a)
	h.Register(b)

	h.Broadcast(RoomAdmin, EventRosterChanged, map[string]int{"total": 8})
	msgs := drain(a)
	if len(msgs) != 1 || msgs[0].Event != EventRosterChanged {
		t.Fatalf("a got %+v", msgs)
	}
	var data map[string]int
	if err := json.Unmarshal(msgs[0].Data, &data); err != nil || data["total"] != 8 {
		t.Errorf("data = %s", msgs[0].Data)
	}
	if got := drain(b); len(got) != 0 {
		t.Errorf("b got %+v", got)
	}
}

func TestHubPublishReachesEveryInstanceOnce(t *testing.T) {
	n := newFakeNet()
	r1, r2 := n.relay("one"), n.relay("two")
	h1, h2 := NewHub(nil, r1), NewHub(nil, r2)
	h1.Run(context.Background())
	h2.Run(context.Background())

	a := testClient("a", RoomAdmin)
	b := testClient("b", RoomAdmin)
	h1.Register(a)
	h2.Register(b)

	h1.Publish(RoomAdmin, EventBookingCreated, map[string]string{"id": "b-1"})
	if len(n.sent) != 1 || n.sent[0].Origin != "one" || n.sent[0].Room != RoomAdmin {
		t.Fatalf("relayed = %+v", n.sent)
	}
	if msgs := drain(a); len(msgs) != 1 {
		t.Errorf("local client got %d messages", len(msgs))
	}
	msgs := drain(b)
	if len(msgs) != 1 || msgs[0].Event != EventBookingCreated {
		t.Fatalf("remote client got %+v", msgs)
	}
	var data map[string]string
	if err := json.Unmarshal(msgs[0].Data, &data); err != nil || data["id"] != "b-1" {
		t.Errorf("remote data = %s", msgs[0].Data)
	}

	r1.failPub = true
	h1.Publish(RoomAdmin, EventBookingCreated, map[string]string{"id": "b-2"})
	if msgs := drain(a); len(msgs) != 1 {
		t.Errorf("relay failure blocked local delivery: %d messages", len(msgs))
	}
}

func TestHubWithoutRelay(t *testing.T) {
	h := NewHub(nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	h.Run(ctx)

	a := testClient("a", RoomAdmin)
	h.Register(a)
	h.Publish(RoomAdmin, EventContentSaved, []byte(`{"section":"hero"}`))
	msgs := drain(a)
	if len(msgs) != 1 || string(msgs[0].Data) != `{"section":"hero"}` {
		t.Errorf("got %+v", msgs)
	}
}

func TestDecodeRelay(t *testing.T) {
	if _, err := decodeRelay(`{"room":"admin"}`); err == nil {
		t.Error("message without event accepted")
	}
	if _, err := decodeRelay(`not json`); err == nil {
		t.Error("malformed message accepted")
	}
	m, err := decodeRelay(`{"origin":"x","room":"admin","event":"roster_changed","data":{"total":3}}`)
	if err != nil || m.Origin != "x" || string(m.Data) != `{"total":3}` {
		t.Errorf("decoded = %+v, %v", m, err)
	}
}

func TestHubUnregister(t *testing.T) {
	h := NewHub(nil, nil)
	var counts []int
	h.SetPresenceHandler(func(room string, n int) { counts = append(counts, n) })

	a := testClient("a", RoomAdmin)
	b := testClient("b", RoomAdmin)
	h.Register(a)
	h.Register(b)
	if h.Count(RoomAdmin) != 2 {
		t.Fatalf("count = %d", h.Count(RoomAdmin))
	}
	h.Unregister(a)
	h.Unregister(b)
	if h.Count(RoomAdmin) != 0 {
		t.Errorf("count = %d", h.Count(RoomAdmin))
	}
	if _, ok := <-a.send; ok {
		t.Error("send channel left open")
	}
	if len(counts) != 4 || counts[3] != 0 {
		t.Errorf("presence = %v", counts)
	}
	// Unregistering twice is harmless.
	h.Unregister(a)
}
