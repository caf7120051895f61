package controller

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"casalink/models"
	"casalink/realtime"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// startWSServer boots a listening fiber app with the duplex routes wired
// the same way the main router does
func startWSServer(t *testing.T, db *gorm.DB) (string, *realtime.Hub) {
	t.Helper()

	hub := newTestHub()
	wc := NewWSController(db, hub, newTestLogger())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/users/:id", websocket.New(wc.HandleUserWS))
	app.Get("/ws/conversations/:id", websocket.New(wc.HandleConversationWS))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "ws://" + ln.Addr().String(), hub
}

func dialWS(t *testing.T, url string) *fws.Conn {
	t.Helper()

	var (
		conn *fws.Conn
		err  error
	)
	for i := 0; i < 20; i++ {
		conn, _, err = fws.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *fws.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &frame))
	return frame
}

// readUntilType skips interleaved frames (presence broadcasts arrive in
// nondeterministic order relative to the ack) until the wanted type shows up
func readUntilType(t *testing.T, conn *fws.Conn, wantType string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 10; i++ {
		frame := readFrame(t, conn)
		if frame["type"] == wantType {
			return frame
		}
	}
	t.Fatalf("never received a %q frame", wantType)
	return nil
}

func sendFrame(t *testing.T, conn *fws.Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(fws.TextMessage, []byte(payload)))
}

func createWSUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := models.User{Email: "operador@example.com", PasswordHash: "x", Name: "Operador"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestUserSocketUnknownSubjectClosedWith4004(t *testing.T) {
	db := newTestDB(t)
	base, _ := startWSServer(t, db)

	conn := dialWS(t, base+"/ws/users/99999")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var closeErr *fws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseSubjectNotFound, closeErr.Code)
}

func TestConversationSocketUnknownSubjectClosedWith4004(t *testing.T) {
	db := newTestDB(t)
	base, _ := startWSServer(t, db)

	conn := dialWS(t, base+"/ws/conversations/99999")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var closeErr *fws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseSubjectNotFound, closeErr.Code)
}

func TestUserSocketAckAndPingPong(t *testing.T) {
	db := newTestDB(t)
	base, hub := startWSServer(t, db)
	user := createWSUser(t, db)

	conn := dialWS(t, base+"/ws/users/"+itoa(user.ID))

	ack := readUntilType(t, conn, realtime.EventConnection)
	assert.Equal(t, itoa(user.ID), ack["user_id"])
	assert.True(t, hub.IsOnline(itoa(user.ID)))

	sendFrame(t, conn, `{"type":"ping","timestamp":1756645000}`)
	pong := readUntilType(t, conn, realtime.EventPong)
	assert.EqualValues(t, 1756645000, pong["timestamp"])
}

func TestUserSocketIgnoresUnparseableFrames(t *testing.T) {
	db := newTestDB(t)
	base, _ := startWSServer(t, db)
	user := createWSUser(t, db)

	conn := dialWS(t, base+"/ws/users/"+itoa(user.ID))
	readUntilType(t, conn, realtime.EventConnection)

	// Garbage must not kill the read loop
	sendFrame(t, conn, `{not json at all`)
	sendFrame(t, conn, `{"type":"ping","timestamp":7}`)

	pong := readUntilType(t, conn, realtime.EventPong)
	assert.EqualValues(t, 7, pong["timestamp"])
}

func TestUserSocketRegistersUnderCanonicalID(t *testing.T) {
	db := newTestDB(t)
	base, hub := startWSServer(t, db)
	user := createWSUser(t, db)

	// Zero-padded path form still lands on the numeric key senders use
	conn := dialWS(t, base+"/ws/users/0"+itoa(user.ID))

	ack := readUntilType(t, conn, realtime.EventConnection)
	assert.Equal(t, itoa(user.ID), ack["user_id"])
	require.True(t, hub.IsOnline(itoa(user.ID)))

	hub.SendToUser(itoa(user.ID), realtime.PriceUpdate{
		Type: realtime.EventPriceUpdate,
		Data: realtime.PriceUpdateData{PropertyID: 3, NewPrice: 450000},
	})
	update := readUntilType(t, conn, realtime.EventPriceUpdate)
	data, ok := update["data"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 3, data["property_id"])
}

func TestConversationSocketTypingRebroadcast(t *testing.T) {
	db := newTestDB(t)
	base, _ := startWSServer(t, db)

	lead := models.Lead{Name: "Visitante", Email: "v@example.com", Status: models.LeadStatusNew}
	require.NoError(t, db.Create(&lead).Error)
	conversation := models.Conversation{LeadID: lead.ID}
	require.NoError(t, db.Create(&conversation).Error)

	conn := dialWS(t, base+"/ws/conversations/"+itoa(conversation.ID))

	ack := readUntilType(t, conn, realtime.EventConnection)
	assert.Equal(t, itoa(conversation.ID), ack["conversation_id"])

	sendFrame(t, conn, `{"type":"typing","sender_type":"visitor"}`)
	typing := readUntilType(t, conn, realtime.EventUserTyping)
	assert.Equal(t, "visitor", typing["sender_type"])

	// Missing sender type falls back to unknown
	sendFrame(t, conn, `{"type":"typing"}`)
	typing = readUntilType(t, conn, realtime.EventUserTyping)
	assert.Equal(t, "unknown", typing["sender_type"])
}
