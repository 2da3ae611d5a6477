package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/models"
	"github.com/mmynk/settlewise/internal/storage/memory"
	"github.com/mmynk/settlewise/internal/storage/storagetest"
)

type wsFixture struct {
	hub    *Hub
	server *httptest.Server
	group  *models.Group
	alice  string
	eve    string
}

func setupWS(t *testing.T) *wsFixture {
	t.Helper()

	store := memory.New()
	alice := storagetest.SeedUser(t, store, "alice@example.com", "Alice")
	bob := storagetest.SeedUser(t, store, "bob@example.com", "Bob")
	eve := storagetest.SeedUser(t, store, "eve@example.com", "Eve")
	group := storagetest.SeedGroup(t, store, "Flat", alice, bob)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token := func(u *models.User) string {
		s, err := jwtManager.Issue(u)
		require.NoError(t, err)
		return s.Token
	}

	hub := New()
	mux := http.NewServeMux()
	mux.Handle("GET /ws/{group_id}", NewHandler(hub, jwtManager, store, WithWriteTimeout(time.Second)))
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return &wsFixture{hub: hub, server: server, group: group, alice: token(alice), eve: token(eve)}
}

func (f *wsFixture) url(groupID, token string) string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/" + groupID + "?token=" + token
}

func TestHandler_StreamsGroupEvents(t *testing.T) {
	f := setupWS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, f.url(f.group.ID, f.alice), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return f.hub.Listeners(f.group.ID) == 1 }, time.Second, 10*time.Millisecond)

	sent := models.Event{Type: models.EventNewBill, GroupID: f.group.ID, BillID: "b1", Description: "Groceries", At: 42}
	require.NoError(t, f.hub.Publish(ctx, f.group.ID, sent))
	require.NoError(t, f.hub.Publish(ctx, "other-group", models.Event{Type: models.EventDeleteBill}))

	var got models.Event
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, sent, got)
}

func TestHandler_Rejects(t *testing.T) {
	f := setupWS(t)

	tests := []struct {
		name       string
		url        string
		wantStatus int
	}{
		{"missing token", f.url(f.group.ID, ""), http.StatusUnauthorized},
		{"invalid token", f.url(f.group.ID, "garbage"), http.StatusUnauthorized},
		{"not a member", f.url(f.group.ID, f.eve), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_, resp, err := websocket.Dial(ctx, tt.url, nil)
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, 0, f.hub.Listeners(f.group.ID))
		})
	}
}

func TestHandler_ClientDisconnectUnsubscribes(t *testing.T) {
	f := setupWS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, f.url(f.group.ID, f.alice), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.hub.Listeners(f.group.ID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return f.hub.Listeners(f.group.ID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_HubCloseEndsStream(t *testing.T) {
	f := setupWS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, f.url(f.group.ID, f.alice), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.hub.Listeners(f.group.ID) == 1 }, time.Second, 10*time.Millisecond)

	f.hub.Close()

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
}
