package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/arobi/valkyrie-rescue/internal/rescue"
)

// Message is one broadcast tick of rescue telemetry, shaped like the
// teacher's livefeed.TelemetryMessage: a flat struct of named fields with
// json tags, carrying the debug channels plus the phase/failure labels a
// dashboard actually wants to render.
type Message struct {
	Timestamp   time.Time            `json:"timestamp"`
	Phase       string                `json:"phase"`
	Failure     string                `json:"failure"`
	MagDisabled bool                  `json:"mag_disabled"`
	ThrottlePWM float64               `json:"throttle_pwm"`
	YawRateDegS float64               `json:"yaw_rate_deg_s"`
	Debug       rescue.DebugChannels  `json:"debug"`
}

// client is a connected WebSocket subscriber, mirroring livefeed.Client.
type client struct {
	conn *websocket.Conn
	send chan *Message
	id   string
}

// Streamer broadcasts rescue telemetry to WebSocket subscribers, grounded on
// livefeed.LiveFeedStreamer's client-map/broadcast-channel pattern, with
// clearance checking replaced by a single JWT read-scope (this module has
// one telemetry tier, not livefeed's five).
type Streamer struct {
	mu      sync.RWMutex
	clients map[*client]bool

	broadcast chan *Message
	upgrader  websocket.Upgrader
	secret    []byte
	log       *logrus.Logger

	messagesSent uint64
}

// NewStreamer creates a Streamer that requires a valid subscriber token
// signed with secret.
func NewStreamer(secret []byte, log *logrus.Logger) *Streamer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Streamer{
		clients:   make(map[*client]bool),
		broadcast: make(chan *Message, 100),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		secret: secret,
		log:    log,
	}
}

// HandleWebSocket upgrades an authenticated request to a streaming
// connection.
func (s *Streamer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	subject, err := VerifySubscriberToken(s.secret, token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("telemetry: failed to upgrade websocket")
		return
	}

	c := &client{conn: conn, send: make(chan *Message, 50), id: subject}
	s.registerClient(c)
	s.log.WithField("subscriber", subject).Info("telemetry: subscriber connected")

	go s.writePump(c)
	go s.readPump(c)
}

func (s *Streamer) registerClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = true
}

func (s *Streamer) unregisterClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for delivery to every connected subscriber, dropping
// the oldest pending message if the buffer is full.
func (s *Streamer) Broadcast(msg *Message) {
	select {
	case s.broadcast <- msg:
	default:
		select {
		case <-s.broadcast:
		default:
		}
		s.broadcast <- msg
	}
}

// Run drains the broadcast channel until ctx-like stop is closed.
func (s *Streamer) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			s.closeAll()
			return
		case msg := <-s.broadcast:
			s.fanOut(msg)
		}
	}
}

func (s *Streamer) fanOut(msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
			s.messagesSent++
		default:
		}
	}
}

func (s *Streamer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
		close(c.send)
		delete(s.clients, c)
	}
}

func (s *Streamer) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

func (s *Streamer) readPump(c *client) {
	defer func() {
		s.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Stats returns the current subscriber count and lifetime message count.
func (s *Streamer) Stats() (clients int, sent uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients), s.messagesSent
}
