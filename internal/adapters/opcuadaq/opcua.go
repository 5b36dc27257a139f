// Package opcuadaq reads channel voltages from a PLC-backed measurement
// head over OPC UA. Each acceptance channel maps to one node ID; every
// sampling tick issues a single batched Read for all nodes.
package opcuadaq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

// Config captures the runtime details required to open an OPC UA session.
type Config struct {
	Endpoint        string            `yaml:"endpoint"`
	Username        string            `yaml:"username"`
	Password        string            `yaml:"password"`
	SecurityMode    string            `yaml:"security_mode"`
	SecurityPolicy  string            `yaml:"security_policy"`
	ApplicationName string            `yaml:"application_name"`
	// Nodes maps a channel name to the node ID holding its voltage.
	Nodes map[string]string `yaml:"nodes"`
}

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "Microwave Test Rig"
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	for _, ch := range domain.Channels() {
		if c.Nodes[string(ch)] == "" {
			return fmt.Errorf("node id for channel %q is required", ch)
		}
	}
	return nil
}

// Driver implements ports.Driver with per-tick batched node reads.
type Driver struct {
	cfg      Config
	client   *opcua.Client
	channels []domain.Channel
	request  *ua.ReadRequest
}

var _ ports.Driver = (*Driver)(nil)

// Connect dials the endpoint and prepares the read request.
func Connect(ctx context.Context, cfg Config) (*Driver, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := opcua.NewClient(cfg.Endpoint, clientOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("opcua connect %s: %w", cfg.Endpoint, err)
	}

	channels := domain.Channels()
	nodes := make([]*ua.ReadValueID, 0, len(channels))
	for _, ch := range channels {
		id, err := ua.ParseNodeID(cfg.Nodes[string(ch)])
		if err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("parse node id for %s: %w", ch, err)
		}
		nodes = append(nodes, &ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue})
	}

	return &Driver{
		cfg:      cfg,
		client:   client,
		channels: channels,
		request: &ua.ReadRequest{
			MaxAge:             0,
			TimestampsToReturn: ua.TimestampsToReturnNeither,
			NodesToRead:        nodes,
		},
	}, nil
}

// ReadChannels performs one batched read of all channel nodes.
func (d *Driver) ReadChannels(ctx context.Context) (map[domain.Channel]float64, error) {
	resp, err := d.client.Read(ctx, d.request)
	if err != nil {
		return nil, fmt.Errorf("opcua read: %w", err)
	}
	if len(resp.Results) != len(d.channels) {
		return nil, fmt.Errorf("opcua read: expected %d results, got %d", len(d.channels), len(resp.Results))
	}

	out := make(map[domain.Channel]float64, len(d.channels))
	for i, ch := range d.channels {
		res := resp.Results[i]
		if res.Status != ua.StatusOK {
			return nil, fmt.Errorf("opcua read %s: %s", ch, res.Status)
		}
		v, ok := variantToFloat(res.Value)
		if !ok {
			return nil, fmt.Errorf("opcua read %s: unsupported value type %T", ch, res.Value.Value())
		}
		out[ch] = v
	}
	return out, nil
}

func (d *Driver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Close(ctx)
}

func clientOptions(cfg Config) []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(cfg.SecurityMode)),
		opcua.SecurityPolicy(cfg.SecurityPolicy),
		opcua.ApplicationName(cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(cfg.Username, cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int8:
		return float64(val), true
	case uint8:
		return float64(val), true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}
