package main

import (
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/wattline/cp-pilot/internal/adc"
	"github.com/wattline/cp-pilot/internal/contactor"
	"github.com/wattline/cp-pilot/internal/cp"
	"github.com/wattline/cp-pilot/internal/periph"
	"github.com/wattline/cp-pilot/internal/pilot"
	"github.com/wattline/cp-pilot/internal/pwm"
	"github.com/wattline/cp-pilot/internal/status"
	"github.com/wattline/cp-pilot/internal/transport"
)

func newLoopController(t *testing.T, pwmDrv *pwm.FakeDriver, contDrv *contactor.FakeDriver) *pilot.Controller {
	t.Helper()
	start := time.Now()
	src := &adc.FakeReader{Samples: []int{cp.NominalV12}}
	cfg := pilot.DefaultConfig()
	cfg.Burst = cp.BurstConfig{Samples: 8, TopK: 4, Trim: 1}

	per := periph.NewController(periph.DefaultConfig(), contDrv, func(time.Duration) {}, start)
	tracker := status.NewTracker(start, status.Config{})
	ctl, err := pilot.New(cfg, src, pwmDrv, per, tracker, func(time.Duration) {}, start)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return ctl
}

func waitForWritten(t *testing.T, port *transport.MockPort, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(string(port.Written()), substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("never saw %q on the port; written: %s", substr, port.Written())
}

func TestRunLoopRepliesAndBroadcasts(t *testing.T) {
	pwmDrv := pwm.NewFakeDriver()
	contDrv := contactor.NewFakeDriver()
	ctl := newLoopController(t, pwmDrv, contDrv)

	hostPort := &transport.MockPort{ReadData: []byte("{\"cmd\":\"ping\"}\n")}
	diagPort := &transport.MockPort{}
	host := transport.NewLink("host", hostPort)
	diag := transport.NewLink("diag", diagPort)
	host.Start()
	diag.Start()

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- runLoop(ctl, []*transport.Link{host, diag}, tick, sig)
	}()

	// Let the reader deliver the inbound line, then run one iteration.
	time.Sleep(20 * time.Millisecond)
	tick <- time.Now()

	// The ping reply goes back on the host link only; the periodic status
	// goes to both.
	waitForWritten(t, hostPort, `"type":"pong"`)
	waitForWritten(t, hostPort, `"type":"status"`)
	waitForWritten(t, diagPort, `"type":"status"`)
	if strings.Contains(string(diagPort.Written()), `"type":"pong"`) {
		t.Error("reply leaked onto the diag link")
	}

	sig <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}
	if pwmDrv.DutyPct != 100 {
		t.Errorf("shutdown duty = %d%%, want 100", pwmDrv.DutyPct)
	}
	if contDrv.On {
		t.Error("contactor left closed on shutdown")
	}
}

func TestRunLoopBroadcastsAcceptedCommands(t *testing.T) {
	pwmDrv := pwm.NewFakeDriver()
	contDrv := contactor.NewFakeDriver()
	ctl := newLoopController(t, pwmDrv, contDrv)

	hostPort := &transport.MockPort{ReadData: []byte("{\"cmd\":\"set_mode\",\"mode\":\"manual\"}\n")}
	diagPort := &transport.MockPort{}
	host := transport.NewLink("host", hostPort)
	diag := transport.NewLink("diag", diagPort)
	host.Start()
	diag.Start()

	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- runLoop(ctl, []*transport.Link{host, diag}, tick, sig)
	}()

	time.Sleep(20 * time.Millisecond)
	tick <- time.Now()

	// A state-changing command is reflected to every listener.
	waitForWritten(t, hostPort, `"mode":"manual"`)
	waitForWritten(t, diagPort, `"mode":"manual"`)

	sig <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Fatalf("runLoop: %v", err)
	}
}
