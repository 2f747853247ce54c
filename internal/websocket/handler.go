package websocket

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/chirpsocial/backend/internal/auth"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub            *Hub
	verifier       auth.TokenVerifier
	users          repository.UserRepository
	originPatterns []string
}

// NewHandler creates a new WebSocket handler. originPatterns are host
// patterns accepted from the Origin header; an empty list or "*" accepts
// any origin.
func NewHandler(hub *Hub, verifier auth.TokenVerifier, users repository.UserRepository, originPatterns []string) *Handler {
	return &Handler{
		hub:            hub,
		verifier:       verifier,
		users:          users,
		originPatterns: originPatterns,
	}
}

// HandleWebSocket authenticates with ?token= (or a bearer header),
// upgrades and runs the pumps until the client leaves
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, err := h.authenticate(c.Request.Context(), auth.TokenFromRequest(c))
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", zap.Error(err))
		util.RespondUnauthorized(c, err.Error())
		return
	}

	conn, err := websocket.Accept(upgradeWriter{c.Writer}, c.Request, h.acceptOptions())
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(userID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, userID)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	// queued before Register so it is the first frame the client sees
	welcome, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data: map[string]interface{}{
			"user_id":     userID,
			"conn_id":     client.ID,
			"server_time": time.Now().UTC().UnixMilli(),
		},
	}))
	client.send <- welcome
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

// upgradeWriter hijacks through the net/http writer underneath gin's.
// websocket.Accept flushes the 101 with gin's WriteHeaderNow, after which
// gin's own Hijack refuses because the response counts as written.
type upgradeWriter struct {
	gin.ResponseWriter
}

func (w upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.WriteHeaderNow()
	var raw http.ResponseWriter = w.ResponseWriter
	for {
		u, ok := raw.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			break
		}
		raw = u.Unwrap()
	}
	return http.NewResponseController(raw).Hijack()
}

func (h *Handler) authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", auth.ErrNoToken
	}
	userID, err := h.verifier.ValidateToken(token)
	if err != nil {
		return "", err
	}
	if _, err := h.users.GetUser(ctx, userID); err != nil {
		if stderrors.Is(err, repository.ErrUserNotFound) {
			return "", stderrors.New("user not found")
		}
		return "", err
	}
	return userID, nil
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{CompressionMode: websocket.CompressionContextTakeover}
	hosts := originHosts(h.originPatterns)
	if hosts == nil {
		opts.InsecureSkipVerify = true
		return opts
	}
	opts.OriginPatterns = hosts
	return opts
}

// originHosts turns CORS origins ("https://app.example.com") into the host
// patterns websocket.Accept matches. nil means accept any origin.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
		} else if o != "" {
			hosts = append(hosts, o)
		}
	}
	return hosts
}

// HandleOnlineUsers returns the presence snapshot
func (h *Handler) HandleOnlineUsers(c *gin.Context) {
	ids := h.hub.Presence().Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"user_ids": ids,
		"count":    len(ids),
	})
}
