package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/errs"
	"github.com/mmynk/settlewise/internal/ledger"
	"github.com/mmynk/settlewise/internal/middleware"
)

const defaultWriteTimeout = 5 * time.Second

// TokenValidator validates session tokens. *auth.JWTManager implements it.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Handler streams a group's events to a websocket client as JSON messages.
// It is mounted at GET /ws/{group_id}; the session token is passed in the
// token query parameter or an Authorization header.
type Handler struct {
	hub            *Hub
	tokens         TokenValidator
	members        ledger.MembershipChecker
	originPatterns []string
	writeTimeout   time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithOriginPatterns sets the cross-origin hosts allowed to connect.
func WithOriginPatterns(patterns ...string) HandlerOption {
	return func(h *Handler) {
		h.originPatterns = patterns
	}
}

// WithWriteTimeout bounds each message write. A client that cannot take a
// message in time is disconnected.
func WithWriteTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.writeTimeout = d
	}
}

func NewHandler(hub *Hub, tokens TokenValidator, members ledger.MembershipChecker, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:          hub,
		tokens:       tokens,
		members:      members,
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("group_id")
	if groupID == "" {
		http.Error(w, "group_id required", http.StatusBadRequest)
		return
	}

	claims, err := h.authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := ledger.RequireMember(r.Context(), h.members, claims.UserID(), groupID); err != nil {
		if errs.KindOf(err) == errs.KindForbidden {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		slog.Error("Websocket membership check failed", "group_id", groupID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sub, err := h.hub.Subscribe(groupID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		slog.Warn("Websocket accept failed", "group_id", groupID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	slog.Info("Websocket connected", "group_id", groupID, "user_id", claims.UserID())
	err = h.stream(conn.CloseRead(r.Context()), conn, sub)
	switch {
	case errors.Is(err, errListenerClosed):
		conn.Close(websocket.StatusGoingAway, "listener closed")
	case errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1:
		// client went away
	default:
		h.hub.remove(sub, true)
		slog.Warn("Websocket write failed", "group_id", groupID, "user_id", claims.UserID(), "error", err)
	}
	slog.Info("Websocket disconnected", "group_id", groupID, "user_id", claims.UserID())
}

var errListenerClosed = errors.New("listener closed")

func (h *Handler) authenticate(r *http.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		token, err = middleware.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			return nil, err
		}
	}
	return h.tokens.Validate(token)
}

func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, sub *Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.Events():
			if !ok {
				return errListenerClosed
			}
			if err := h.write(ctx, conn, event); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
