package server_test

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatverse/internal/auth"
	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/Tyrowin/chatverse/internal/server"
	"github.com/Tyrowin/chatverse/internal/store"
	"github.com/Tyrowin/chatverse/internal/testutil"
)

const (
	waitTimeout = 2 * time.Second
	quietWindow = 200 * time.Millisecond
	testSecret  = "test-secret"
)

type fixture struct {
	server   *server.Server
	http     *httptest.Server
	verifier *auth.Verifier
	store    *store.BadgerStore
	wsURL    string
}

// newFixture starts a server over an in-memory store and tears it down at cleanup.
func newFixture(t *testing.T, configure ...func(*server.Config)) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := server.NewConfig().WithOrigins(testutil.TestOrigin)
	cfg.JWTSecret = testSecret
	for _, fn := range configure {
		fn(cfg)
	}
	require.NoError(t, cfg.Validate())

	st, err := store.Open("", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	verifier := auth.NewVerifier(cfg.JWTSecret)
	srv := server.New(log, cfg, verifier, st)
	srv.Start()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(func() { _ = srv.Shutdown(waitTimeout) })

	return &fixture{
		server:   srv,
		http:     ts,
		verifier: verifier,
		store:    st,
		wsURL:    testutil.WebSocketURL(ts.URL),
	}
}

func (f *fixture) token(t *testing.T, user presence.UserID) string {
	t.Helper()
	token, err := f.verifier.Issue(user, time.Hour)
	require.NoError(t, err)
	return token
}

// login opens a connection for user and waits for its online-users snapshot.
func (f *fixture) login(t *testing.T, user presence.UserID) (*testutil.Client, []presence.UserID) {
	t.Helper()
	c := testutil.Dial(t, f.wsURL)
	c.Emit(presence.EventSetup, map[string]string{"token": f.token(t, user)})

	var online []presence.UserID
	c.WaitFor(presence.EventOnlineUsers, waitTimeout).Decode(t, &online)
	return c, online
}

// join puts the client in room and waits until the server has processed it.
func (f *fixture) join(t *testing.T, c *testutil.Client, room presence.RoomID) {
	t.Helper()
	before := len(f.server.Rooms().Members(room))
	c.Emit(presence.EventJoinChat, room)
	require.Eventually(t, func() bool {
		return len(f.server.Rooms().Members(room)) > before
	}, waitTimeout, 10*time.Millisecond)
}

func (f *fixture) bearer(t *testing.T, user presence.UserID) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + f.token(t, user),
		"Content-Type":  "application/json",
	}
}

func chatMessage(id string, sender presence.UserID, room presence.RoomID, users ...presence.UserID) presence.Message {
	return presence.Message{
		ID:      id,
		Sender:  presence.UserRef{ID: sender, Name: string(sender)},
		Content: "hello from " + string(sender),
		Chat:    presence.Chat{ID: room, Users: users},
		Type:    presence.MessageText,
	}
}
