package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// MQTTPublisher publishes each event to <prefix>/<event type>.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	qos    byte
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(client, cfg.TopicPrefix, cfg.QoS), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, qos byte) *MQTTPublisher {
	if qos > 2 {
		qos = 1
	}
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

// Topic returns the topic an event of type t is published on.
func (p *MQTTPublisher) Topic(t Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "/" + string(t)
}

// Publish sends e and waits for the broker acknowledgement or ctx.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := e.encode()
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(e.Type), p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
