package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tripstars-api/internal/auth"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/roles"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server, token string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func readEnvelope(t *testing.T, conn *websocket.Conn) realtime.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env realtime.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func TestServeWS_ConnectAndPing(t *testing.T) {
	db, r, _ := newTestEnv(t)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)

	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := auth.GenerateAccessToken(worker.ID, worker.Role)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	env := readEnvelope(t, conn)
	require.Equal(t, realtime.EventConnected, env.Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	env = readEnvelope(t, conn)
	require.Equal(t, realtime.EventPong, env.Type)
}

func TestServeWS_MissingTokenRejected(t *testing.T) {
	_, r, _ := newTestEnv(t)

	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err, "the handshake completes so the close code can be delivered")
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, 4001, closeErr.Code)
}

func TestServeWS_DeactivationTakesEffectImmediately(t *testing.T) {
	db, r, _ := newTestEnv(t)
	admin := seedUser(t, db, "admin@tripstars.com", "Admin", roles.Admin)
	worker := seedUser(t, db, "worker@tripstars.com", "Worker", roles.TeamMember)

	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := auth.GenerateAccessToken(worker.ID, worker.Role)
	require.NoError(t, err)

	// First connection succeeds and primes the handshake user lookup.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	env := readEnvelope(t, conn)
	require.Equal(t, realtime.EventConnected, env.Type)
	conn.Close()

	w := doJSON(t, r, admin, http.MethodPatch, "/api/users/"+worker.ID, map[string]any{
		"is_active": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// A reconnect with the still-unexpired token is refused right away, not
	// after a cached snapshot times out.
	conn, _, err = websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, 4001, closeErr.Code)
}
