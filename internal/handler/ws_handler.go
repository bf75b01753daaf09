package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/middleware"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/model"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/proctor"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
	ws "github.com/ymanyman2014/trubank-hrms-sub000/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsClient wraps one proctoring connection. It implements
// service.Notifier, so engine pushes and read-loop replies share the
// same connection; the mutex keeps gorilla's single-writer rule.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) write(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ws.WriteTyped(c.conn, v)
}

func (c *wsClient) writeError(msg string) {
	c.write(ws.ErrorResponse{Event: ws.EventError, Error: msg})
}

// PushState forwards an engine snapshot, followed by the matching
// terminal event when the session just ended.
func (c *wsClient) PushState(snap proctor.Snapshot) {
	c.write(ws.StateResponse{Event: ws.EventState, Snapshot: snap})

	switch snap.State {
	case proctor.StateCompleted:
		scores := make([]ws.GradedScore, 0, len(snap.Scores))
		for _, sc := range snap.Scores {
			scores = append(scores, ws.GradedScore{
				GroupID: sc.GroupID.String(),
				Total:   sc.Total,
				Correct: sc.Correct,
			})
		}
		c.write(ws.GradedResponse{Event: ws.EventGraded, Status: "completed", Scores: scores})
	case proctor.StateTerminated:
		c.write(ws.TerminatedResponse{Event: ws.EventTerminated, Reason: string(snap.Reason)})
	}
}

// PushRelease tells the host to drop fullscreen and stop the camera.
func (c *wsClient) PushRelease() {
	c.write(ws.ReleaseResponse{Event: ws.EventRelease})
}

// WSHandler handles the WebSocket proctoring stream.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/employee/exams/:exam_id/proctor
// Upgrades to WebSocket for the proctored exam stream: raw presence,
// fullscreen and visibility signals flow up, session state flows down.
func (h *WSHandler) ProctorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ls, err := h.sessionService.Get(claims.EmployeeID, examID)
	if err != nil {
		ws.WriteError(conn, "no live session for this exam")
		return
	}

	client := &wsClient{conn: conn}
	ls.Attach(client)
	defer ls.Detach(client)

	wsLog := h.log.With().
		Int("employee_id", claims.EmployeeID).
		Str("exam_id", examID.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	// A reconnecting client needs the current state immediately.
	client.PushState(ls.Engine.Snapshot())

	for {
		var envelope ws.RequestEnvelope
		raw, err := readRaw(conn, &envelope)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		h.dispatch(c, client, ls, wsLog, envelope.Action, raw)
	}
}

func (h *WSHandler) dispatch(c *gin.Context, client *wsClient, ls *service.LiveSession, wsLog zerolog.Logger, action ws.Action, raw []byte) {
	ctx := c.Request.Context()

	switch action {
	case ws.ActionPresence:
		var msg ws.PresenceRequest
		if !decode(client, raw, &msg) {
			return
		}
		res := proctor.PresenceResult{Present: msg.Present}
		if !msg.Present {
			res.Failure = proctor.FailureKind(msg.Failure)
			if res.Failure == "" {
				res.Failure = proctor.FailureDetectionFailed
			}
		}
		ls.ReportPresence(res)

	case ws.ActionFullscreen:
		var msg ws.FullscreenRequest
		if !decode(client, raw, &msg) {
			return
		}
		ls.SetFullscreen(msg.Active)

	case ws.ActionVisibility:
		var msg ws.VisibilityRequest
		if !decode(client, raw, &msg) {
			return
		}
		ls.SetVisibility(msg.Visible)

	case ws.ActionStart:
		if err := ls.Engine.Start(ctx); err != nil {
			client.writeError(err.Error())
			return
		}
		wsLog.Info().Msg("Exam started")

	case ws.ActionAnswer:
		var msg ws.AnswerRequest
		if !decode(client, raw, &msg) {
			return
		}
		if err := ls.Engine.SelectOption(ctx, model.OptionLabel(msg.Option)); err != nil {
			client.writeError(err.Error())
		}

	case ws.ActionNext:
		if err := ls.Engine.Next(ctx); err != nil {
			client.writeError(err.Error())
		}

	case ws.ActionPrevious:
		if err := ls.Engine.Previous(ctx); err != nil {
			client.writeError(err.Error())
		}

	case ws.ActionSubmit:
		if err := ls.Engine.Submit(ctx); err != nil {
			client.writeError(err.Error())
		}

	case ws.ActionPing:
		client.write(ws.PongResponse{Event: ws.EventPong})

	default:
		wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
		client.writeError("unknown action: " + string(action))
	}
}

// readRaw reads one message with a deadline and peeks at its action.
// The raw bytes are returned so the dispatcher can do the full parse.
func readRaw(conn *websocket.Conn, envelope *ws.RequestEnvelope) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, err
	}
	return raw, nil
}

func decode(client *wsClient, raw []byte, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		client.writeError("invalid payload")
		return false
	}
	return true
}
