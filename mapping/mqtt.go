package mapping

import (
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient manages the broker connection used to publish robot positions
// and similarity scores.
type MQTTClient struct {
	client      mqtt.Client
	isConnected bool
	stop        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
}

// InitMQTT creates and connects an MQTT client.
// If neither MQTT_BROKER nor mqtt.broker is set, MQTT is disabled and this
// returns nil.
func InitMQTT(config *Config) *MQTTClient {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil {
		broker = config.MQTT.Broker
	}

	if broker == "" {
		log.Println("MQTT disabled: no broker configured")
		return nil
	}

	var settings MQTTConfig
	if config != nil {
		settings = config.MQTT
	}

	client := &MQTTClient{stop: make(chan struct{})}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" {
		clientID = settings.ClientID
	}
	if clientID == "" {
		clientID = "gridmesh"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" {
		username = settings.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" {
			password = settings.Password
		}
		opts.SetPassword(password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client
}

// newMQTTClientWithMock wraps an existing mqtt.Client, for tests
func newMQTTClientWithMock(client mqtt.Client) *MQTTClient {
	return &MQTTClient{client: client, stop: make(chan struct{})}
}

// connectWithRetry attempts to connect to the MQTT broker with exponential
// backoff until it succeeds or the client is disconnected.
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		select {
		case <-c.stop:
			return
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

func (c *MQTTClient) onConnect(client mqtt.Client) {
	log.Println("MQTT connected")
	c.setConnected(true)
}

// onConnectionLost is called when the MQTT connection is lost.
// Auto-reconnect is enabled, so this is typically a transient event.
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// WaitForConnection polls until the client is connected or timeout elapses
func (c *MQTTClient) WaitForConnection(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if c.IsConnected() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Disconnect stops reconnect attempts and closes the connection
func (c *MQTTClient) Disconnect() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250) // 250ms quiesce time
	}
	c.setConnected(false)
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}
