// Package publisher forwards new readings to an MQTT broker.
package publisher

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/NotCoffee418/european_smart_meter/pkg/types"
)

type Options struct {
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
}

// MQTT publishes every reading as JSON to <prefix>/<tariff>, retained so
// late subscribers see the current counter.
type MQTT struct {
	client      mqtt.Client
	topicPrefix string
	logger      logrus.FieldLogger
}

func New(opts Options, logger logrus.FieldLogger) (*MQTT, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(fmt.Sprintf("tcp://%s", opts.Broker))
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetry(true)
	clientOpts.SetConnectTimeout(10 * time.Second)
	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	client := mqtt.NewClient(clientOpts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}
	return NewWithClient(client, opts.TopicPrefix, logger), nil
}

// NewWithClient wraps an already configured client.
func NewWithClient(client mqtt.Client, topicPrefix string, logger logrus.FieldLogger) *MQTT {
	if topicPrefix == "" {
		topicPrefix = "european_smart_meter"
	}
	return &MQTT{client: client, topicPrefix: topicPrefix, logger: logger}
}

func (p *MQTT) Topic(tariff types.Tariff) string {
	return p.topicPrefix + "/" + tariff.String()
}

// Notify publishes without waiting for the broker; failures are logged.
func (p *MQTT) Notify(r types.Reading) {
	topic := p.Topic(r.Tariff)
	token := p.client.Publish(topic, 1, true, r.ToJsonBytes())
	go func() {
		if token.WaitTimeout(10*time.Second) && token.Error() != nil {
			p.logger.WithError(token.Error()).WithField("topic", topic).Warn("mqtt publish failed")
		}
	}()
}

// Close disconnects from the MQTT broker
func (p *MQTT) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
