package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	connected    bool
	token        *fakeToken
	published    []published
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return c.connected }
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic, qos, retained, payload.([]byte)})
	return c.token
}
func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
	c.connected = false
}

func TestNewChainRepaired(t *testing.T) {
	ev := NewChainRepaired("mamba-1", OpDelete, "abc", nil)
	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)
	assert.Equal(t, "mamba-1", ev.VehicleID)
	assert.Equal(t, OpDelete, ev.Operation)
	assert.NotNil(t, ev.Rewritten)
	assert.WithinDuration(t, time.Now(), ev.At, time.Minute)

	other := NewChainRepaired("mamba-1", OpDelete, "abc", nil)
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestMQTTPublisher_Publish(t *testing.T) {
	c := &fakeClient{connected: true, token: newFakeToken(nil, true)}
	p := newMQTTPublisher(c, "logbook/chains")

	ev := NewChainRepaired("kmar-1", OpUpsert, "d1", []string{"d1", "d2"})
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, c.published, 1)
	msg := c.published[0]
	assert.Equal(t, "logbook/chains/kmar-1", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.False(t, msg.retained)

	var got ChainRepaired
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, []string{"d1", "d2"}, got.Rewritten)
}

func TestMQTTPublisher_Errors(t *testing.T) {
	ev := NewChainRepaired("kmar-1", OpUpsert, "d1", nil)

	t.Run("not connected", func(t *testing.T) {
		p := newMQTTPublisher(&fakeClient{}, "x")
		assert.ErrorIs(t, p.Publish(context.Background(), ev), ErrNotConnected)
	})

	t.Run("broker error", func(t *testing.T) {
		boom := errors.New("boom")
		p := newMQTTPublisher(&fakeClient{connected: true, token: newFakeToken(boom, true)}, "x")
		assert.ErrorIs(t, p.Publish(context.Background(), ev), boom)
	})

	t.Run("context cancelled", func(t *testing.T) {
		p := newMQTTPublisher(&fakeClient{connected: true, token: newFakeToken(nil, false)}, "x")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, p.Publish(ctx, ev), context.Canceled)
	})
}

func TestMQTTPublisher_Close(t *testing.T) {
	c := &fakeClient{connected: true}
	newMQTTPublisher(c, "x").Close()
	assert.True(t, c.disconnected)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), ChainRepaired{}))
	p.Close()
}
