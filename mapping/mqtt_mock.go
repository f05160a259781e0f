package mapping

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MockToken implements mqtt.Token for testing
type MockToken struct {
	err error
}

func NewMockToken(err error) *MockToken {
	return &MockToken{err: err}
}

func (t *MockToken) Wait() bool {
	return true
}

func (t *MockToken) WaitTimeout(time.Duration) bool {
	return true
}

func (t *MockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *MockToken) Error() error {
	return t.err
}

// MockMessage is a message captured by MockClient.Publish
type MockMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// MockClient implements mqtt.Client in memory. Publishes are recorded
// instead of sent.
type MockClient struct {
	connected    bool
	connectError error
	publishError error
	published    []MockMessage
	routes       map[string]mqtt.MessageHandler
	mu           sync.RWMutex
}

// NewMockClient creates a disconnected mock client
func NewMockClient() *MockClient {
	return &MockClient{routes: make(map[string]mqtt.MessageHandler)}
}

// SetConnected sets the connection state
func (c *MockClient) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// SetConnectError sets the error returned on Connect
func (c *MockClient) SetConnectError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectError = err
}

// SetPublishError sets the error returned on Publish
func (c *MockClient) SetPublishError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishError = err
}

// GetPublishedMessages returns a copy of every recorded publish
func (c *MockClient) GetPublishedMessages() []MockMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MockMessage, len(c.published))
	copy(out, c.published)
	return out
}

// MessagesOn returns the recorded publishes for one topic
func (c *MockClient) MessagesOn(topic string) []MockMessage {
	var out []MockMessage
	for _, m := range c.GetPublishedMessages() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func (c *MockClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *MockClient) IsConnectionOpen() bool {
	return c.IsConnected()
}

func (c *MockClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectError == nil {
		c.connected = true
	}
	return NewMockToken(c.connectError)
}

func (c *MockClient) Disconnect(quiesce uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *MockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return NewMockToken(mqtt.ErrNotConnected)
	}
	if c.publishError != nil {
		return NewMockToken(c.publishError)
	}

	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	c.published = append(c.published, MockMessage{Topic: topic, Payload: data, QoS: qos, Retain: retained})
	return NewMockToken(nil)
}

func (c *MockClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.AddRoute(topic, callback)
	return NewMockToken(nil)
}

func (c *MockClient) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	for topic := range filters {
		c.AddRoute(topic, callback)
	}
	return NewMockToken(nil)
}

func (c *MockClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range topics {
		delete(c.routes, topic)
	}
	return NewMockToken(nil)
}

func (c *MockClient) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[topic] = callback
}

func (c *MockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}
