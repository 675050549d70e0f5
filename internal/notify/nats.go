package notify

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher forwards notifications to a NATS subject
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(5*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Notify: connected to NATS at %s", natsURL)

	return &Publisher{conn: conn, subject: subject}, nil
}

// Notify publishes n as JSON. Failures are logged.
func (p *Publisher) Notify(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		log.Printf("Notify: failed to marshal notification: %v", err)
		return
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		log.Printf("Notify: failed to publish to %s: %v", p.subject, err)
	}
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Printf("Notify: disconnected from NATS")
	}
}

// IsConnected reports the NATS connection state
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
