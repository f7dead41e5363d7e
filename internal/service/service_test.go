package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/passgate/internal/domain"
	"github.com/totegamma/passgate/jwt"
)

type sent struct {
	event string
	data  string
}

type fakeConn struct {
	mu      sync.Mutex
	sent    []sent
	pings   int
	failAt  int
	pingErr error
	closed  bool
}

func (c *fakeConn) Send(event string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAt > 0 && len(c.sent)+1 >= c.failAt {
		return errors.New("broken pipe")
	}
	c.sent = append(c.sent, sent{event: event, data: string(data)})
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return c.pingErr
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sent{}, c.sent...)
}

func TestHubRegisterSendsConnected(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}

	require.NoError(t, hub.Register(conn))
	assert.Equal(t, 1, hub.Count())

	msgs := conn.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.NotifyConnected, msgs[0].event)
	assert.JSONEq(t, `{"message":"connected"}`, msgs[0].data)
}

func TestHubRegisterFailsOnBrokenClient(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{failAt: 1}

	assert.Error(t, hub.Register(conn))
	assert.Equal(t, 0, hub.Count())
}

func TestHubBroadcastDropsFailedClients(t *testing.T) {
	hub := NewHub()
	healthy := &fakeConn{}
	broken := &fakeConn{failAt: 2}
	require.NoError(t, hub.Register(healthy))
	require.NoError(t, hub.Register(broken))

	hub.Broadcast(domain.NotifyPassUpdated, domain.Notification{Message: "Pass activated after CAR_ENTERED", PassID: 42})

	assert.Equal(t, 1, hub.Count())
	assert.True(t, broken.closed)

	msgs := healthy.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.NotifyPassUpdated, msgs[1].event)

	var notification domain.Notification
	require.NoError(t, json.Unmarshal([]byte(msgs[1].data), &notification))
	assert.Equal(t, uint(42), notification.PassID)
}

func TestHubRunPingsAndDropsDeadClients(t *testing.T) {
	hub := NewHub()
	alive := &fakeConn{}
	dead := &fakeConn{pingErr: errors.New("gone")}
	require.NoError(t, hub.Register(alive))
	require.NoError(t, hub.Register(dead))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.True(t, dead.closed)
	assert.False(t, alive.closed)
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	require.NoError(t, hub.Register(a))
	require.NoError(t, hub.Register(b))

	hub.Close()
	assert.Equal(t, 0, hub.Count())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestNotificationServiceLocal(t *testing.T) {
	hub := NewHub()
	conn := &fakeConn{}
	require.NoError(t, hub.Register(conn))

	notifier := NewNotificationService(hub, nil)
	notifier.Notify(context.Background(), domain.NotifyNewPass, domain.Notification{Message: "New pass created", PassID: 3})

	msgs := conn.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.NotifyNewPass, msgs[1].event)
	assert.JSONEq(t, `{"message":"New pass created","passId":3}`, msgs[1].data)
}

func TestAuthJwt(t *testing.T) {
	auth := NewAuthService("secret")

	token, err := jwt.Create(jwt.Claims{ID: 9, Role: "security"}, "secret", time.Hour)
	require.NoError(t, err)
	requester, err := auth.AuthJwt(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, domain.Requester{ID: 9, Role: domain.RoleSecurity}, *requester)

	token, err = jwt.Create(jwt.Claims{ID: 9, Role: "root"}, "secret", time.Hour)
	require.NoError(t, err)
	_, err = auth.AuthJwt(context.Background(), token)
	assert.Error(t, err)

	token, err = jwt.Create(jwt.Claims{Role: "admin"}, "secret", time.Hour)
	require.NoError(t, err)
	_, err = auth.AuthJwt(context.Background(), token)
	assert.Error(t, err)
}
