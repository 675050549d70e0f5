package mqtt

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
)

// conn is the part of the paho client the feed needs
type conn interface {
	Connect() mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ReconnectDelay time.Duration // fixed, no backoff growth
	Clock          clockwork.Clock
}

type subscription struct {
	topic   string
	handler mqtt.MessageHandler
}

// Client owns one broker connection. Paho's own reconnect is disabled so
// the feed keeps the same fixed-delay policy as the SSE listener.
type Client struct {
	conn   conn
	broker string
	delay  time.Duration
	clock  clockwork.Clock

	mu   sync.Mutex
	subs []subscription

	lost chan error
}

// NewClient creates a client. It does not connect until Run.
func NewClient(config ClientConfig) *Client {
	return newClient(config, func(opts *mqtt.ClientOptions) conn {
		return mqtt.NewClient(opts)
	})
}

func newClient(config ClientConfig, dial func(*mqtt.ClientOptions) conn) *Client {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	c := &Client{
		broker: config.Broker,
		delay:  config.ReconnectDelay,
		clock:  config.Clock,
		lost:   make(chan error, 1),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.connectionLost(err)
	})

	c.conn = dial(opts)
	return c
}

// Subscribe registers a handler. Subscriptions are (re)applied after every connect.
func (c *Client) Subscribe(topic string, handler mqtt.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, subscription{topic: topic, handler: handler})
}

// Run connects and reconnects until ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.connect(); err != nil {
			log.Printf("MQTT: %v", err)
		} else {
			select {
			case <-ctx.Done():
				c.conn.Disconnect(250)
				log.Println("MQTT: client disconnected")
				return ctx.Err()
			case err := <-c.lost:
				log.Printf("MQTT: connection lost: %v", err)
			}
		}

		log.Printf("MQTT: reconnecting in %v", c.delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.delay):
		}
	}
}

func (c *Client) connect() error {
	// Drop a stale loss signal from the previous connection
	select {
	case <-c.lost:
	default:
	}

	if token := c.conn.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	log.Println("MQTT: connected to broker:", c.broker)

	c.mu.Lock()
	subs := append([]subscription(nil), c.subs...)
	c.mu.Unlock()

	for _, sub := range subs {
		token := c.conn.Subscribe(sub.topic, 1, sub.handler)
		if token.Wait() && token.Error() != nil {
			c.conn.Disconnect(250)
			return fmt.Errorf("failed to subscribe to %s: %w", sub.topic, token.Error())
		}
		log.Printf("MQTT: subscribed to topic: %s", sub.topic)
	}

	return nil
}

func (c *Client) connectionLost(err error) {
	select {
	case c.lost <- err:
	default:
	}
}
