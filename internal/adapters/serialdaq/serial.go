// Package serialdaq reads channel voltages from a USB measurement board.
// The board streams one frame per line over the serial port; the driver
// keeps the latest frame and hands it out on demand.
package serialdaq

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
	"github.com/ziademad02153/local-automation-Microwave-app/internal/ports"
)

const (
	// DefaultBaudRate matches the measurement board's firmware.
	DefaultBaudRate = 115200

	frameFields = 6
)

// Config holds the serial connection settings.
type Config struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
	// StaleAfter bounds how old the latest frame may be before reads fail.
	StaleAfter time.Duration `yaml:"stale_after"`
}

func (c *Config) ApplyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.StaleAfter == 0 {
		c.StaleAfter = 3 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("serial port is required")
	}
	if c.BaudRate < 0 {
		return fmt.Errorf("baud rate must be positive, got %d", c.BaudRate)
	}
	return nil
}

// frame is one decoded line from the board.
type frame struct {
	receivedAt time.Time
	voltages   map[domain.Channel]float64
}

// Driver implements ports.Driver over a line-oriented serial stream.
type Driver struct {
	cfg    Config
	conn   serial.Port
	cancel context.CancelFunc

	mu      sync.RWMutex
	latest  *frame
	readErr error
}

var _ ports.Driver = (*Driver)(nil)

// Open connects to the board and starts the background reader.
func Open(cfg Config) (*Driver, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Driver{cfg: cfg, conn: conn, cancel: cancel}
	go d.readLoop(ctx, conn)
	return d, nil
}

// ReadChannels returns the most recent frame. It fails when the stream has
// gone quiet for longer than StaleAfter or the reader hit a terminal error.
func (d *Driver) ReadChannels(ctx context.Context) (map[domain.Channel]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.readErr != nil {
		return nil, d.readErr
	}
	if d.latest == nil {
		return nil, fmt.Errorf("no frame received yet on %s", d.cfg.Port)
	}
	if age := time.Since(d.latest.receivedAt); age > d.cfg.StaleAfter {
		return nil, fmt.Errorf("serial stream stale: last frame %s ago", age.Round(time.Millisecond))
	}

	out := make(map[domain.Channel]float64, len(d.latest.voltages))
	for ch, v := range d.latest.voltages {
		out[ch] = v
	}
	return out, nil
}

func (d *Driver) Close() error {
	d.cancel()
	return d.conn.Close()
}

func (d *Driver) readLoop(ctx context.Context, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		voltages, err := parseFrame(line)
		if err != nil {
			// Partial lines occur right after opening the port; skip them.
			continue
		}
		d.mu.Lock()
		d.latest = &frame{receivedAt: time.Now(), voltages: voltages}
		d.mu.Unlock()
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	d.mu.Lock()
	d.readErr = fmt.Errorf("serial stream ended: %w", err)
	d.mu.Unlock()
}

// parseFrame decodes a board line into per-channel voltages.
// Format: unix_millis,mw,grill,lamp,door,buzzer
// Example: 1719820154321,4.98,0.12,4.97,0.08,0.11
func parseFrame(line string) (map[domain.Channel]float64, error) {
	parts := strings.Split(line, ",")
	if len(parts) != frameFields {
		return nil, fmt.Errorf("expected %d fields, got %d", frameFields, len(parts))
	}

	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", parts[0], err)
	}

	order := []domain.Channel{
		domain.ChannelMicrowave,
		domain.ChannelGrill,
		domain.ChannelLamp,
		domain.ChannelDoorSwitch,
		domain.ChannelBuzzer,
	}
	voltages := make(map[domain.Channel]float64, len(order))
	for i, ch := range order {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid voltage for %s: %w", ch, err)
		}
		voltages[ch] = v
	}
	return voltages, nil
}
