package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/scan"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 8 << 20 // captures carry images
)

// inbound is one client command: {"type": "...", "data": {...}}.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type lookupData struct {
	Barcode string `json:"barcode"`
}

type captureData struct {
	Text       string  `json:"text,omitempty"`
	Image      []byte  `json:"image,omitempty"` // base64 in JSON
	Confidence float64 `json:"confidence,omitempty"`
}

type selectPetsData struct {
	PetIDs []uuid.UUID `json:"pet_ids"`
}

type ack struct {
	Command  string `json:"command"`
	Accepted bool   `json:"accepted"`
	State    string `json:"state"`
}

type errorData struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// socket serializes writes; gorilla connections allow one writer at a time.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *socket) send(msgType string, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(map[string]any{"type": msgType, "data": data})
}

func (c *socket) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// handleScanSocket runs one scan session per connection. Commands come in as
// messages; every state transition and outcome goes back out.
func (s *Server) handleScanSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &socket{conn: conn}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := scan.NewSession(ctx, s.deps.Lookup, s.deps.Recognizer, s.deps.Analyzer,
		scan.WithConfig(s.deps.Scan),
		scan.WithLogger(s.logger),
	)
	logger := s.logger.With("session_id", sess.ID())
	logger.Info("scan socket opened", "remote", r.RemoteAddr)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.pump(ctx, c, sess)
	}()
	defer func() {
		sess.Close()
		<-pumpDone
		logger.Info("scan socket closed")
	}()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	_ = c.send("session", map[string]any{"session_id": sess.ID(), "state": sess.State().String()})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = c.send("error", errorData{Message: "invalid message format", Code: "InvalidArgument"})
			continue
		}
		accepted, err := s.dispatch(ctx, sess, msg)
		if err != nil {
			_ = c.send("error", errorData{Command: msg.Type, Message: err.Error(), Code: common.CodeOf(err).String()})
			continue
		}
		_ = c.send("ack", ack{Command: msg.Type, Accepted: accepted, State: sess.State().String()})
	}
}

func (s *Server) dispatch(ctx context.Context, sess *scan.Session, msg inbound) (bool, error) {
	switch msg.Type {
	case "start":
		return true, sess.Start()
	case "barcode":
		var b scan.BarcodeResult
		if err := decodeData(msg.Data, &b); err != nil {
			return false, err
		}
		if b.Timestamp.IsZero() {
			b.Timestamp = time.Now()
		}
		return sess.OnBarcode(b)
	case "confirm":
		return true, sess.Confirm()
	case "lookup":
		var d lookupData
		if err := decodeData(msg.Data, &d); err != nil {
			return false, err
		}
		return true, sess.RequestLookup(d.Barcode)
	case "label_scan":
		return true, sess.LabelScan()
	case "capture":
		var d captureData
		if err := decodeData(msg.Data, &d); err != nil {
			return false, err
		}
		return true, sess.Capture(scan.Capture{Text: d.Text, Image: d.Image, Confidence: d.Confidence})
	case "select_pets":
		var d selectPetsData
		if err := decodeData(msg.Data, &d); err != nil {
			return false, err
		}
		pets, err := s.resolvePets(ctx, d.PetIDs)
		if err != nil {
			return false, err
		}
		return true, sess.SelectPets(pets...)
	case "retry":
		return true, sess.Retry()
	case "cancel":
		return true, sess.Cancel()
	default:
		return false, fmt.Errorf("%w: unknown message type %q", common.ErrInvalidInput, msg.Type)
	}
}

func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", common.ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}
	return nil
}

func (s *Server) resolvePets(ctx context.Context, ids []uuid.UUID) ([]entity.PetProfile, error) {
	if s.deps.Pets == nil {
		return nil, errors.New("pet profiles are not configured")
	}
	pets := make([]entity.PetProfile, 0, len(ids))
	for _, id := range ids {
		p, err := s.deps.Pets.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("pet %s: %w", id, err)
		}
		pets = append(pets, *p)
	}
	return pets, nil
}

// pump forwards session events to the client until the session closes.
// Outcomes are persisted before they are sent.
func (s *Server) pump(ctx context.Context, c *socket, sess *scan.Session) {
	updates, outcomes := sess.Updates(), sess.Outcome()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for updates != nil || outcomes != nil {
		select {
		case t, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			_ = c.send("transition", map[string]any{
				"from":       t.From.String(),
				"to":         t.To.String(),
				"reason":     t.Reason,
				"generation": t.Generation,
				"at":         t.At,
			})
		case o, ok := <-outcomes:
			if !ok {
				outcomes = nil
				continue
			}
			s.recordOutcome(ctx, o)
			_ = c.send("outcome", o)
		case <-ticker.C:
			if err := c.ping(); err != nil {
				s.logger.Debug("websocket ping failed", "error", err)
			}
		}
	}
}

func (s *Server) recordOutcome(ctx context.Context, o scan.ScanOutcome) {
	if s.deps.Scans == nil {
		return
	}
	rec, err := o.Record()
	if err == nil {
		err = s.deps.Scans.Record(ctx, rec)
	}
	if err != nil {
		s.logger.Error("scan.record.failed", "session_id", o.SessionID, "error", err)
	}
}
