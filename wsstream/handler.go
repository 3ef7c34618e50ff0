package wsstream

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/NYTimes/hubstream/pubsub"
)

const (
	defaultPingInterval = 5 * time.Second
	defaultWriteTimeout = 30 * time.Second

	maxCloseReason = 123
)

// Handler upgrades requests to websockets and streams records from its
// source to each client until either side goes away.
type Handler struct {
	src pubsub.Observable
	pub pubsub.Publisher
	key string

	entityPath   string
	eventType    string
	pingInterval time.Duration
	writeTimeout time.Duration

	upgrader websocket.Upgrader
	log      *logrus.Entry
}

// Option configures a Handler.
type Option func(*Handler)

// WithEntityPath sets the event hub name used in each event's source.
func WithEntityPath(entityPath string) Option {
	return func(h *Handler) { h.entityPath = entityPath }
}

// WithEventType overrides DefaultEventType.
func WithEventType(eventType string) Option {
	return func(h *Handler) { h.eventType = eventType }
}

// WithPublisher publishes text messages from clients to pub under key.
func WithPublisher(pub pubsub.Publisher, key string) Option {
	return func(h *Handler) {
		h.pub = pub
		h.key = key
	}
}

// WithPingInterval overrides the default 5s keep-alive ping.
func WithPingInterval(d time.Duration) Option {
	return func(h *Handler) { h.pingInterval = d }
}

// WithCheckOrigin sets the upgrader's origin check. All origins are
// accepted by default.
func WithCheckOrigin(check func(*http.Request) bool) Option {
	return func(h *Handler) { h.upgrader.CheckOrigin = check }
}

// NewHandler returns a Handler streaming from src.
func NewHandler(src pubsub.Observable, opts ...Option) *Handler {
	h := &Handler{
		src:          src,
		eventType:    DefaultEventType,
		pingInterval: defaultPingInterval,
		writeTimeout: defaultWriteTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = pubsub.Log.WithField("entity_path", h.entityPath)
	return h
}

// ServeHTTP subscribes the client to the source for the lifetime of the
// websocket.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithField("remote_addr", r.RemoteAddr)

	// Upgrade replies with an HTTP error on failure
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("error", err).Error("unable to create websocket")
		return
	}
	defer func() {
		if err := ws.Close(); err != nil {
			log.WithField("error", err).Debug("unable to close ws")
		}
	}()
	log.Info("new stream req")

	sub := pubsub.NewSubscriber(h.src)
	defer sub.Stop()

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		h.read(r, ws, log)
	}()

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	msgs := sub.Start()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				h.closeStream(ws, sub.Err(), log)
				return
			}
			if err := h.write(ws, msg.Record()); err != nil {
				log.WithField("error", err).Error("unable to write ws message")
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(h.writeTimeout)
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				log.WithField("error", err).Error("error writing ws ping")
				return
			}
		case <-clientDone:
			log.Info("closing stream req")
			return
		}
	}
}

func (h *Handler) write(ws *websocket.Conn, r *pubsub.Record) error {
	ev, err := NewEvent(h.entityPath, h.eventType, r)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err = ws.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, payload)
}

// closeStream tells the client the source terminated.
func (h *Handler) closeStream(ws *websocket.Conn, streamErr error, log *logrus.Entry) {
	code, text := websocket.CloseNormalClosure, "stream completed"
	if streamErr != nil {
		log.WithField("error", streamErr).Error("stream failed")
		code, text = websocket.CloseInternalServerErr, streamErr.Error()
	}
	msg := websocket.FormatCloseMessage(code, closeReason(text))
	if err := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.writeTimeout)); err != nil {
		log.WithField("error", err).Debug("unable to write close message")
	}
}

// closeReason trims text to fit a close frame, whose payload is capped at
// 125 bytes including the two byte code. The cut never splits a rune.
func closeReason(text string) string {
	if len(text) <= maxCloseReason {
		return text
	}
	n := maxCloseReason
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// read consumes client messages until the client disconnects, publishing
// text messages when a publisher is configured.
func (h *Handler) read(r *http.Request, ws *websocket.Conn, log *logrus.Entry) {
	for {
		messageType, rd, err := ws.NextReader()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithField("error", err).Debug("error reading message")
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			if h.pub == nil {
				continue
			}
			payload, err := ioutil.ReadAll(rd)
			if err != nil {
				log.WithField("error", err).Error("unable to read payload")
				return
			}
			if err = h.pub.PublishRaw(r.Context(), h.key, payload); err != nil {
				log.WithField("error", err).Error("unable to publish payload")
			}
		default:
			log.Debug("discarding message type: ", messageType)
		}
	}
}
