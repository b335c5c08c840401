package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	connectTimeout = 30 * time.Second
	publishTimeout = 10 * time.Second
)

var ErrNotConnected = errors.New("not connected to MQTT broker")

var _ Publisher = (*MQTTPublisher)(nil)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix; events go to Topic/<vehicle id>.
	Topic string
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes ChainRepaired events as JSON, QoS 1, not retained.
type MQTTPublisher struct {
	client client
	topic  string
}

// NewMQTTPublisher connects to the broker and returns a publisher.
func NewMQTTPublisher(ctx context.Context, cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.WithField("broker", cfg.Broker).Info("connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).WithField("broker", cfg.Broker).Warn("MQTT connection lost")
	})

	c := mqtt.NewClient(opts)
	token := c.Connect()
	timeout := connectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		c.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect to %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(c, cfg.Topic), nil
}

func newMQTTPublisher(c client, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: c, topic: topic}
}

// Topic returns the topic events of vehicleID are published to.
func (p *MQTTPublisher) Topic(vehicleID string) string {
	return p.topic + "/" + vehicleID
}

// Publish sends ev and waits for the broker to acknowledge it.
func (p *MQTTPublisher) Publish(ctx context.Context, ev ChainRepaired) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	topic := p.Topic(ev.VehicleID)
	token := p.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	log.WithFields(log.Fields{"topic": topic, "event_id": ev.ID}).Debug("chain event published")
	return nil
}

// Close disconnects, giving in-flight messages 250ms.
func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
