// Package mqttpub publishes live tick snapshots and final reports over MQTT
// so lab dashboards and line supervisors can follow a run remotely.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

const publishTimeout = 5 * time.Second

// Config holds the broker settings.
type Config struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "mwtest-rig"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "mwtest"
	}
}

func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	return nil
}

// Publisher implements ports.Presenter over an MQTT broker. Ticks go out
// at QoS 0 (the next tick supersedes a lost one); reports at QoS 1.
type Publisher struct {
	cfg    Config
	client mqtt.Client
	logger *zap.Logger
}

var _ ports.Presenter = (*Publisher)(nil)

// Connect dials the broker with automatic reconnection enabled.
func Connect(cfg Config, logger *zap.Logger) (*Publisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return &Publisher{cfg: cfg, client: client, logger: logger}, nil
}

// PublishTick sends the latest snapshot. Losses are tolerated.
func (p *Publisher) PublishTick(snap domain.TickSnapshot) {
	p.publish(p.cfg.TopicPrefix+"/ticks", 0, snap)
}

// PublishReport sends the final report at QoS 1.
func (p *Publisher) PublishReport(r *domain.Report) {
	p.publish(p.cfg.TopicPrefix+"/reports", 1, r)
}

func (p *Publisher) publish(topic string, qos byte, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("mqtt marshal failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	token := p.client.Publish(topic, qos, false, b)
	if !token.WaitTimeout(publishTimeout) {
		p.logger.Warn("mqtt publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		p.logger.Warn("mqtt publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

// Close disconnects from the broker, flushing in-flight messages.
func (p *Publisher) Close() error {
	p.client.Disconnect(uint(publishTimeout / time.Millisecond))
	return nil
}
