package mqtt

import (
	"errors"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ry4ntr1/ppe-violation-detection/internal/feed"
)

// SubscriberConfig holds the topic filters of the push channel
type SubscriberConfig struct {
	DetectionTopic    string // e.g., "ppe/+/detection"
	SourceUpdateTopic string // e.g., "ppe/+/source_update"
	StatsTopic        string // e.g., "ppe/stats"
}

// Subscriber decodes push-channel topics into feed messages
type Subscriber struct {
	config  SubscriberConfig
	handler feed.Handler
}

// NewSubscriber creates a subscriber delivering to handler
func NewSubscriber(config SubscriberConfig, handler feed.Handler) *Subscriber {
	return &Subscriber{config: config, handler: handler}
}

// Register adds the configured topics to the client
func (s *Subscriber) Register(client *Client) {
	if s.config.DetectionTopic != "" {
		client.Subscribe(s.config.DetectionTopic, s.handle(feed.KindDetection))
	}
	if s.config.SourceUpdateTopic != "" {
		client.Subscribe(s.config.SourceUpdateTopic, s.handle(feed.KindSourceUpdate))
	}
	if s.config.StatsTopic != "" {
		client.Subscribe(s.config.StatsTopic, s.handle(feed.KindStats))
	}
}

func (s *Subscriber) handle(kind feed.Kind) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		decoded, err := feed.Decode(string(kind), msg.Payload(), extractSourceID(msg.Topic()))
		if err != nil {
			var unknown *feed.ErrUnknownKind
			if !errors.As(err, &unknown) {
				log.Printf("MQTT: skipping malformed message on %s: %v", msg.Topic(), err)
			}
			return
		}

		if s.handler != nil {
			s.handler(decoded)
		}
	}
}

// extractSourceID extracts the source id from a topic
// Example: "ppe/cam-1/detection" -> "cam-1"
func extractSourceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[1]
	}
	return ""
}
