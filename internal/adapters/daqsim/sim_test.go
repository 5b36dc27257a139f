package daqsim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ziademad02153/local-automation-Microwave-app/internal/domain"
)

func TestDriverFollowsDutyProfile(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	d := NewWithClock(DutyProfiles(map[domain.Channel]float64{
		domain.ChannelMicrowave: 20, // on for 6s of every 30s
	}), clock)

	onSeconds := 0
	for sec := 0; sec < 30; sec++ {
		now = time.Unix(1700000000+int64(sec), 0)
		voltages, err := d.ReadChannels(context.Background())
		if err != nil {
			t.Fatalf("read at %ds: %v", sec, err)
		}
		if voltages[domain.ChannelMicrowave] >= 4.6 {
			onSeconds++
		}
	}
	if onSeconds != 6 {
		t.Fatalf("20%% duty over 30s: got %d on-seconds, want 6", onSeconds)
	}
}

func TestDriverDoorScripting(t *testing.T) {
	d := New(nil)

	voltages, err := d.ReadChannels(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if voltages[domain.ChannelDoorSwitch] >= 4.6 {
		t.Fatal("door reads open by default")
	}

	d.SetDoorOpen(true)
	voltages, err = d.ReadChannels(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if voltages[domain.ChannelDoorSwitch] < 4.6 {
		t.Fatal("scripted door open not reflected")
	}
}

func TestDriverFaultInjection(t *testing.T) {
	d := New(nil)
	boom := errors.New("adc gone")

	d.Fail(boom)
	if _, err := d.ReadChannels(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected injected fault, got %v", err)
	}

	d.Fail(nil)
	if _, err := d.ReadChannels(context.Background()); err != nil {
		t.Fatalf("cleared fault still failing: %v", err)
	}
}

func TestDriverHonoursContext(t *testing.T) {
	d := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.ReadChannels(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestReadReturnsAllChannels(t *testing.T) {
	d := New(nil)
	voltages, err := d.ReadChannels(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, ch := range domain.Channels() {
		if _, ok := voltages[ch]; !ok {
			t.Fatalf("channel %s missing from reading", ch)
		}
	}
}
