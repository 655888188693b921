package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"

	"github.com/pflow-xyz/go-forge/blueprint"
	"github.com/pflow-xyz/go-forge/criteria"
	"github.com/pflow-xyz/go-forge/forge"
	"github.com/pflow-xyz/go-forge/journal"
	"github.com/pflow-xyz/go-forge/mutator"
	"github.com/pflow-xyz/go-forge/server"
	"github.com/pflow-xyz/go-forge/trait"
)

const admin = "publisher"

type testServer struct {
	t      *testing.T
	ts     *httptest.Server
	engine *forge.Engine
	feed   *server.Feed
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed := server.NewFeed(log)
	engine := forge.New(forge.Config{
		Admin:   admin,
		Journal: server.Broadcast(journal.NewMemory(), feed),
		Logger:  log,
	})
	srv := server.New(engine, server.WithLogger(log), server.WithFeed(feed))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{t: t, ts: ts, engine: engine, feed: feed}
}

// do runs a JSON request and asserts the response status.
func (s *testServer) do(method, path string, body any, wantStatus int) []byte {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, rd)
	if err != nil {
		s.t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.ts.Client().Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.t.Fatalf("read response body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		s.t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, resp.StatusCode, data)
	}
	return data
}

func (s *testServer) registerAtom(id, name string, props []trait.Entry) {
	s.t.Helper()
	s.do("POST", "/api/atoms", map[string]any{
		"caller": admin,
		"atom":   map[string]any{"id": id, "name": name, "props": props},
	}, http.StatusCreated)
}

func (s *testServer) createItem(def *blueprint.ItemType) uint64 {
	s.t.Helper()
	data := s.do("POST", "/api/items", map[string]any{"caller": admin, "item": def}, http.StatusCreated)
	var out struct {
		ID  uint64 `json:"id"`
		CID string `json:"cid"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.t.Fatalf("decode create response: %v", err)
	}
	if out.CID == "" {
		s.t.Error("Expected a content id in the create response")
	}
	return out.ID
}

func (s *testServer) mint(owner, id, amount string) {
	s.t.Helper()
	s.do("POST", "/api/mint", map[string]any{
		"caller": admin, "owner": owner, "id": id, "amount": amount,
	}, http.StatusNoContent)
}

func (s *testServer) balance(owner, id string) string {
	s.t.Helper()
	data := s.do("GET", "/api/balances?owner="+url.QueryEscape(owner)+"&id="+url.QueryEscape(id), nil, http.StatusOK)
	var out struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.t.Fatalf("decode balance response: %v", err)
	}
	return out.Balance
}

type errBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func decodeError(t *testing.T, data []byte) errBody {
	t.Helper()
	var e errBody
	if err := json.Unmarshal(data, &e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func potionDef() *blueprint.ItemType {
	return &blueprint.ItemType{
		Name: "Healing Potion",
		Kind: blueprint.Fungible,
		Components: []blueprint.Component{
			{Kind: blueprint.FixedAtom, Target: uint256.NewInt(1001), Amount: 2},
		},
	}
}

func bladeDef() *blueprint.ItemType {
	return &blueprint.ItemType{
		Name:      "Storm Blade",
		Kind:      blueprint.Unique,
		MutatorID: "mass-tier",
		Components: []blueprint.Component{
			{Kind: blueprint.FixedAtom, Target: uint256.NewInt(1001), Amount: 1},
			{Kind: blueprint.VariableAtom, Amount: 1, Criteria: []criteria.Criterion{
				{Property: "mass", Mode: criteria.Range, Min: uint256.NewInt(50), Max: uint256.NewInt(100)},
			}},
		},
		TierImages: [7]string{"t1.png", "t2.png", "t3.png", "t4.png", "t5.png", "t6.png", "t7.png"},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	data := s.do("GET", "/health", nil, http.StatusOK)
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", out["status"])
	}
}

func TestItemEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.registerAtom("1001", "ju2", nil)
	id := s.createItem(potionDef())
	if id != 1 {
		t.Fatalf("Expected first item id 1, got %d", id)
	}

	data := s.do("GET", "/api/items/1", nil, http.StatusOK)
	var it blueprint.ItemType
	if err := json.Unmarshal(data, &it); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	if it.Name != "Healing Potion" {
		t.Errorf("Expected name Healing Potion, got %q", it.Name)
	}
	if it.Kind != blueprint.Fungible {
		t.Errorf("Expected fungible kind, got %q", it.Kind)
	}

	data = s.do("GET", "/api/items", nil, http.StatusOK)
	var list []*blueprint.ItemType
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode item list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 item, got %d", len(list))
	}

	data = s.do("GET", "/api/items/99", nil, http.StatusNotFound)
	if e := decodeError(t, data); e.Code != "not_found" {
		t.Errorf("Expected code not_found, got %q", e.Code)
	}

	// Only the item admin may update.
	update := potionDef()
	update.Description = "Restores health"
	data = s.do("PUT", "/api/items/1", map[string]any{"caller": "mallory", "item": update}, http.StatusForbidden)
	if e := decodeError(t, data); e.Code != "forbidden" {
		t.Errorf("Expected code forbidden, got %q", e.Code)
	}

	s.do("PUT", "/api/items/1", map[string]any{"caller": admin, "item": update}, http.StatusOK)
	data = s.do("GET", "/api/items/1", nil, http.StatusOK)
	if err := json.Unmarshal(data, &it); err != nil {
		t.Fatalf("decode updated item: %v", err)
	}
	if it.Description != "Restores health" {
		t.Errorf("Expected updated description, got %q", it.Description)
	}

	s.do("POST", "/api/items/1/freeze", map[string]any{"caller": admin}, http.StatusNoContent)
	data = s.do("PUT", "/api/items/1", map[string]any{"caller": admin, "item": update}, http.StatusConflict)
	if e := decodeError(t, data); e.Code != "conflict" {
		t.Errorf("Expected code conflict, got %q", e.Code)
	}

	s.do("POST", "/api/items/1/admin", map[string]any{"caller": admin, "newAdmin": "steward"}, http.StatusNoContent)

	data = s.do("GET", "/api/items/1/stats", nil, http.StatusOK)
	var stats struct {
		Crafted uint64 `json:"crafted"`
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Crafted != 0 {
		t.Errorf("Expected 0 crafted, got %d", stats.Crafted)
	}
}

func TestAtomEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.registerAtom("2075", "shard-mid", []trait.Entry{{Name: "mass", Value: trait.Num(75)}})

	data := s.do("GET", "/api/atoms", nil, http.StatusOK)
	var atoms []struct {
		ID    string        `json:"id"`
		Name  string        `json:"name"`
		Props []trait.Entry `json:"props"`
	}
	if err := json.Unmarshal(data, &atoms); err != nil {
		t.Fatalf("decode atom list: %v", err)
	}
	if len(atoms) != 1 {
		t.Fatalf("Expected 1 atom, got %d", len(atoms))
	}
	if atoms[0].ID != "2075" || atoms[0].Name != "shard-mid" {
		t.Errorf("Unexpected atom listing: %+v", atoms[0])
	}
	if len(atoms[0].Props) != 1 || atoms[0].Props[0].Name != "mass" {
		t.Errorf("Expected mass prop, got %+v", atoms[0].Props)
	}

	s.do("PUT", "/api/atoms/2075/props", map[string]any{
		"caller": admin,
		"props":  []trait.Entry{{Name: "mass", Value: trait.Num(80)}, {Name: "grade", Value: trait.Str("b")}},
	}, http.StatusNoContent)

	data = s.do("GET", "/api/atoms", nil, http.StatusOK)
	if err := json.Unmarshal(data, &atoms); err != nil {
		t.Fatalf("decode atom list: %v", err)
	}
	if len(atoms[0].Props) != 2 {
		t.Errorf("Expected 2 props after update, got %d", len(atoms[0].Props))
	}

	// Non-admin registration is rejected.
	data = s.do("POST", "/api/atoms", map[string]any{
		"caller": "alice",
		"atom":   map[string]any{"id": "3000", "name": "dust"},
	}, http.StatusForbidden)
	if e := decodeError(t, data); e.Code != "forbidden" {
		t.Errorf("Expected code forbidden, got %q", e.Code)
	}
}

func TestCraftAndTransferFlow(t *testing.T) {
	s := newTestServer(t)
	s.registerAtom("1001", "ju2", nil)
	s.createItem(potionDef())
	s.mint("alice", "1001", "10")

	if got := s.balance("alice", "1001"); got != "10" {
		t.Fatalf("Expected balance 10, got %s", got)
	}

	data := s.do("POST", "/api/craft", map[string]any{
		"caller": "alice", "itemId": 1, "amount": 3,
	}, http.StatusOK)
	var res struct {
		ItemID  uint64 `json:"itemId"`
		Kind    string `json:"kind"`
		TokenID string `json:"tokenId"`
		Tier    uint8  `json:"tier"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode craft response: %v", err)
	}
	if res.ItemID != 1 || res.Kind != "fungible" || res.TokenID != "1" {
		t.Errorf("Unexpected craft response: %+v", res)
	}

	if got := s.balance("alice", "1001"); got != "4" {
		t.Errorf("Expected reagent balance 4, got %s", got)
	}
	if got := s.balance("alice", "1"); got != "3" {
		t.Errorf("Expected potion balance 3, got %s", got)
	}

	s.do("POST", "/api/consume", map[string]any{
		"caller": "alice", "owner": "alice", "itemId": 1, "amount": 1,
	}, http.StatusNoContent)
	if got := s.balance("alice", "1"); got != "2" {
		t.Errorf("Expected potion balance 2 after consume, got %s", got)
	}

	s.do("POST", "/api/transfer", map[string]any{
		"caller": "alice", "from": "alice", "to": "bob", "id": "1", "amount": "2",
	}, http.StatusNoContent)
	if got := s.balance("bob", "1"); got != "2" {
		t.Errorf("Expected bob balance 2, got %s", got)
	}

	// Nothing left to craft with.
	data = s.do("POST", "/api/craft", map[string]any{
		"caller": "alice", "itemId": 1, "amount": 3,
	}, http.StatusUnprocessableEntity)
	if e := decodeError(t, data); e.Code != "rejected" {
		t.Errorf("Expected code rejected, got %q", e.Code)
	}

	q := url.Values{"stream": {"item/1"}, "type": {"craft"}}
	data = s.do("GET", "/api/journal?"+q.Encode(), nil, http.StatusOK)
	var events []*journal.Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("decode journal response: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 craft event, got %d", len(events))
	}
	if events[0].Actor != "alice" {
		t.Errorf("Expected actor alice, got %q", events[0].Actor)
	}
}

func TestUniqueCraftOverHTTP(t *testing.T) {
	s := newTestServer(t)

	script, err := mutator.CompileScript("mass-tier", `
		function calculateTier(req) {
			var mass = 0;
			for (var i = 0; i < req.variable.length; i++) {
				mass += req.variable[i].props.mass;
			}
			return { tier: Math.floor(mass / 25) };
		}
	`)
	if err != nil {
		t.Fatalf("compile script: %v", err)
	}
	if err := s.engine.Mutators().Register("mass-tier", script); err != nil {
		t.Fatalf("register script: %v", err)
	}

	s.registerAtom("1001", "ju2", nil)
	s.registerAtom("2075", "shard-mid", []trait.Entry{{Name: "mass", Value: trait.Num(75)}})
	s.createItem(bladeDef())
	s.mint("alice", "1001", "1")
	s.mint("alice", "2075", "1")

	data := s.do("POST", "/api/craft", map[string]any{
		"caller": "alice", "itemId": 1, "amount": 1, "variable": []string{"2075"},
	}, http.StatusOK)
	var res struct {
		Kind       string `json:"kind"`
		TokenID    string `json:"tokenId"`
		Serial     uint64 `json:"serial"`
		Tier       uint8  `json:"tier"`
		Commitment string `json:"commitment"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode craft response: %v", err)
	}
	if res.Kind != "unique" || res.Serial != 1 || res.Tier != 3 {
		t.Errorf("Unexpected craft response: %+v", res)
	}
	if !strings.HasPrefix(res.TokenID, "0x") {
		t.Errorf("Expected hex token id, got %q", res.TokenID)
	}
	if !strings.HasPrefix(res.Commitment, "mimc:") {
		t.Errorf("Expected mimc commitment, got %q", res.Commitment)
	}

	data = s.do("GET", "/api/tokens/"+res.TokenID, nil, http.StatusOK)
	var info struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
		Tier  uint8  `json:"tier"`
		Image string `json:"image"`
	}
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("decode token info: %v", err)
	}
	if info.Name != "Storm Blade" || info.Owner != "alice" || info.Tier != 3 || info.Image != "t3.png" {
		t.Errorf("Unexpected token info: %+v", info)
	}

	data = s.do("GET", "/api/owners/alice/tokens", nil, http.StatusOK)
	var owned struct {
		Tokens []string `json:"tokens"`
	}
	if err := json.Unmarshal(data, &owned); err != nil {
		t.Fatalf("decode owned tokens: %v", err)
	}
	if len(owned.Tokens) != 1 || owned.Tokens[0] != res.TokenID {
		t.Errorf("Expected alice to own %s, got %v", res.TokenID, owned.Tokens)
	}

	// The module defines no use hook, so use is a no-op that succeeds.
	data = s.do("POST", "/api/use", map[string]any{
		"caller": "alice", "tokenId": res.TokenID,
	}, http.StatusOK)
	var useOut struct {
		Tier      uint8 `json:"tier"`
		Destroyed bool  `json:"destroyed"`
	}
	if err := json.Unmarshal(data, &useOut); err != nil {
		t.Fatalf("decode use response: %v", err)
	}
	if useOut.Tier != 3 || useOut.Destroyed {
		t.Errorf("Unexpected use response: %+v", useOut)
	}

	// Unique transfers default to amount 1.
	s.do("POST", "/api/transfer", map[string]any{
		"caller": "alice", "from": "alice", "to": "bob", "id": res.TokenID,
	}, http.StatusNoContent)
	data = s.do("GET", "/api/owners/bob/tokens", nil, http.StatusOK)
	if err := json.Unmarshal(data, &owned); err != nil {
		t.Fatalf("decode owned tokens: %v", err)
	}
	if len(owned.Tokens) != 1 {
		t.Errorf("Expected bob to own the blade, got %v", owned.Tokens)
	}

	q := url.Values{"stream": {"token/" + res.TokenID}}
	data = s.do("GET", "/api/journal?"+q.Encode(), nil, http.StatusOK)
	var events []*journal.Event
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("decode journal response: %v", err)
	}
	types := make([]journal.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	want := []journal.EventType{journal.EventCrafted, journal.EventUsed, journal.EventTransferred}
	if len(types) != len(want) {
		t.Fatalf("Expected %d token events, got %d: %v", len(want), len(types), types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, want[i], types[i])
		}
	}
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	s.registerAtom("1001", "ju2", nil)
	s.createItem(potionDef())

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"BadItemID", "GET", "/api/items/abc", nil, http.StatusBadRequest},
		{"BadTokenID", "GET", "/api/tokens/nope", nil, http.StatusBadRequest},
		{"FungibleTokenLookup", "GET", "/api/tokens/1", nil, http.StatusBadRequest},
		{"UnknownToken", "GET", "/api/tokens/0x8000000000000000000000000000000000000000000000000000000000000000", nil, http.StatusNotFound},
		{"MissingBalanceParams", "GET", "/api/balances", nil, http.StatusBadRequest},
		{"BadVariableID", "POST", "/api/craft", map[string]any{
			"caller": "alice", "itemId": 1, "amount": 1, "variable": []string{"zz"},
		}, http.StatusBadRequest},
		{"UnknownApprovalScope", "POST", "/api/approvals", map[string]any{
			"caller": "alice", "operator": "bob", "scope": "bogus", "approved": true,
		}, http.StatusBadRequest},
		{"CreationToggleDenied", "POST", "/api/creation", map[string]any{
			"caller": "alice", "enabled": true,
		}, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.do(tc.method, tc.path, tc.body, tc.status)
		})
	}

	// The admin can open creation, and the toggle reads back.
	s.do("POST", "/api/creation", map[string]any{"caller": admin, "enabled": true}, http.StatusOK)
	data := s.do("GET", "/api/creation", nil, http.StatusOK)
	var out struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode creation response: %v", err)
	}
	if !out.Enabled {
		t.Error("Expected creation to be enabled")
	}
}

func TestApprovalOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.registerAtom("1001", "ju2", nil)
	s.createItem(potionDef())
	s.mint("alice", "1001", "10")
	s.do("POST", "/api/craft", map[string]any{"caller": "alice", "itemId": 1, "amount": 2}, http.StatusOK)

	// Bob cannot consume alice's potions until she grants item scope.
	s.do("POST", "/api/consume", map[string]any{
		"caller": "bob", "owner": "alice", "itemId": 1, "amount": 1,
	}, http.StatusForbidden)

	s.do("POST", "/api/approvals", map[string]any{
		"caller": "alice", "operator": "bob", "scope": "item", "itemId": 1, "approved": true,
	}, http.StatusNoContent)
	s.do("POST", "/api/consume", map[string]any{
		"caller": "bob", "owner": "alice", "itemId": 1, "amount": 1,
	}, http.StatusNoContent)

	if got := s.balance("alice", "1"); got != "1" {
		t.Errorf("Expected balance 1 after consume, got %s", got)
	}
}

func dialFeed(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFeedMessage(t *testing.T, conn *websocket.Conn, msgType server.MessageType, payload any) {
	t.Helper()
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}
	data, err := json.Marshal(server.Message{Type: msgType, Payload: raw, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write message: %v", err)
	}
}

// awaitPong drains until the pong reply arrives, proving the server
// processed everything sent before the ping.
func awaitPong(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	sendFeedMessage(t, conn, server.MsgTypePing, nil)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("await pong: %v", err)
		}
		var msg server.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.Type == server.MsgTypePong {
			return
		}
	}
}

func readFeedEvent(t *testing.T, conn *websocket.Conn) *journal.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read feed event: %v", err)
		}
		var msg server.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode message: %v", err)
		}
		if msg.Type != server.MsgTypeEvent {
			continue
		}
		var ev journal.Event
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			t.Fatalf("decode event payload: %v", err)
		}
		return &ev
	}
}

func TestFeedDeliversEvents(t *testing.T) {
	s := newTestServer(t)
	conn := dialFeed(t, s)
	awaitPong(t, conn)

	s.registerAtom("1001", "ju2", nil)

	ev := readFeedEvent(t, conn)
	if ev.Stream != journal.SystemStream {
		t.Errorf("Expected system stream, got %q", ev.Stream)
	}
	if ev.Type != journal.EventAtomRegistered {
		t.Errorf("Expected atom.registered, got %q", ev.Type)
	}
	if ev.Actor != admin {
		t.Errorf("Expected actor %q, got %q", admin, ev.Actor)
	}
	var data struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("decode atom data: %v", err)
	}
	if data.ID != "1001" || data.Name != "ju2" {
		t.Errorf("Unexpected atom data: %+v", data)
	}
}

func TestFeedSubscribeFiltering(t *testing.T) {
	s := newTestServer(t)
	conn := dialFeed(t, s)

	sendFeedMessage(t, conn, server.MsgTypeSubscribe, server.SubscribePayload{Streams: []string{"item/1"}})
	awaitPong(t, conn)

	// The system-stream registration is filtered out; the item
	// creation on item/1 is the first event delivered.
	s.registerAtom("1001", "ju2", nil)
	s.createItem(potionDef())

	ev := readFeedEvent(t, conn)
	if ev.Stream != "item/1" {
		t.Errorf("Expected stream item/1, got %q", ev.Stream)
	}
	if ev.Type != journal.EventItemCreated {
		t.Errorf("Expected item.created, got %q", ev.Type)
	}
}
