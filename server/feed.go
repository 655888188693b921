package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pflow-xyz/go-forge/journal"
)

// MessageType tags feed protocol messages.
type MessageType string

const (
	MsgTypeEvent       MessageType = "event"
	MsgTypeSubscribe   MessageType = "subscribe"
	MsgTypeUnsubscribe MessageType = "unsubscribe"
	MsgTypeError       MessageType = "error"
	MsgTypePing        MessageType = "ping"
	MsgTypePong        MessageType = "pong"
)

// Message envelope
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SubscribePayload names the journal streams a client wants. An empty
// list selects every stream.
type SubscribePayload struct {
	Streams []string `json:"streams"`
}

// ErrorPayload for errors
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Feed fans journal events out to websocket subscribers. New clients
// receive every stream until they narrow their subscription.
type Feed struct {
	mu      sync.RWMutex
	clients map[*feedClient]bool

	log      *slog.Logger
	upgrader websocket.Upgrader
}

type feedClient struct {
	conn     *websocket.Conn
	sendChan chan []byte

	mu      sync.Mutex
	streams map[string]bool // nil means all streams
}

// NewFeed creates an empty feed hub.
func NewFeed(log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		clients: make(map[*feedClient]bool),
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Publish delivers an event to every subscribed client. Delivery is
// non-blocking; a client with a full send buffer misses the event.
func (f *Feed) Publish(ev *journal.Event) {
	if ev == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		f.log.Error("feed marshal failed", "stream", ev.Stream, "err", err)
		return
	}
	msg, err := json.Marshal(Message{
		Type:      MsgTypeEvent,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for client := range f.clients {
		if !client.wants(ev.Stream) {
			continue
		}
		select {
		case client.sendChan <- msg:
		default:
			f.log.Warn("feed client send buffer full")
		}
	}
}

// Clients returns the number of connected subscribers.
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// ServeHTTP upgrades the connection and pumps events until the client
// disconnects.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Error("websocket upgrade failed", "err", err)
		return
	}

	client := &feedClient{
		conn:     conn,
		sendChan: make(chan []byte, 256),
	}

	f.mu.Lock()
	f.clients[client] = true
	f.mu.Unlock()

	f.log.Debug("feed client connected", "remote", conn.RemoteAddr().String())

	go client.writePump()
	f.readPump(client)
}

func (f *Feed) readPump(client *feedClient) {
	defer func() {
		f.removeClient(client)
		client.conn.Close()
		close(client.sendChan)
	}()

	client.conn.SetReadLimit(4096)
	client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msgBytes, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.log.Debug("feed client read error", "err", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			f.sendError(client, "invalid_message", "Could not parse message")
			continue
		}

		f.handleMessage(client, &msg)
	}
}

func (f *Feed) handleMessage(client *feedClient, msg *Message) {
	switch msg.Type {
	case MsgTypeSubscribe:
		var sub SubscribePayload
		if msg.Payload != nil {
			if err := json.Unmarshal(msg.Payload, &sub); err != nil {
				f.sendError(client, "invalid_payload", "Could not parse subscribe payload")
				return
			}
		}
		client.subscribe(sub.Streams)

	case MsgTypeUnsubscribe:
		client.subscribe(nil)

	case MsgTypePing:
		f.sendMessage(client, MsgTypePong, nil)

	default:
		f.sendError(client, "unknown_type", "Unknown message type: "+string(msg.Type))
	}
}

func (f *Feed) sendMessage(client *feedClient, msgType MessageType, payload any) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			f.log.Error("feed payload marshal failed", "err", err)
			return
		}
	}

	msgBytes, err := json.Marshal(Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	select {
	case client.sendChan <- msgBytes:
	default:
		f.log.Warn("feed client send buffer full")
	}
}

func (f *Feed) sendError(client *feedClient, code, message string) {
	f.sendMessage(client, MsgTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

func (f *Feed) removeClient(client *feedClient) {
	f.mu.Lock()
	delete(f.clients, client)
	f.mu.Unlock()
	f.log.Debug("feed client disconnected")
}

// subscribe replaces the client's stream selection. An empty or nil
// list reverts to all streams.
func (c *feedClient) subscribe(streams []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(streams) == 0 {
		c.streams = nil
		return
	}
	c.streams = make(map[string]bool, len(streams))
	for _, s := range streams {
		c.streams[s] = true
	}
}

func (c *feedClient) wants(stream string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams == nil || c.streams[stream]
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		// Unblocks the read pump when a write fails first.
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.sendChan:
			if !ok {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
