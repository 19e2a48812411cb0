// Command cp-pilot is the control-pilot signal front-end of an EV charging
// station. It samples the CP line, classifies it into logical charging
// states, drives the CP PWM output, and serves two newline-delimited JSON
// command links (host controller + local diagnostics) with a contactor/meter/
// temperature peripheral surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
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

// tickPeriod is the control loop granularity; each phase runs when its own
// period has elapsed.
const tickPeriod = 50 * time.Millisecond

func main() {
	hostPath := flag.String("host-port", "/dev/ttyAMA0", "Host controller serial port")
	diagPath := flag.String("diag-port", "", "Diagnostic serial port (empty to disable)")
	adcDevice := flag.String("adc-device", adc.DefaultDevice, "IIO device name for the CP ADC")
	adcChannel := flag.Int("adc-channel", adc.DefaultChannel, "IIO voltage channel")
	pwmChip := flag.Int("pwm-chip", pwm.DefaultChip, "pwmchip index for the CP output")
	pwmChannel := flag.Int("pwm-channel", pwm.DefaultChannel, "pwmchip channel")
	coilPin := flag.Int("coil-pin", contactor.PinCoil, "BCM pin driving the contactor coil")
	auxPin := flag.Int("aux-pin", contactor.PinAux, "BCM pin reading the aux feedback")
	samples := flag.Int("samples", 256, "ADC readings per classification burst")
	statusPeriod := flag.Duration("status-period", 200*time.Millisecond, "Status broadcast period")
	sim := flag.Bool("sim", false, "Use simulated hardware (no ADC/PWM/GPIO)")
	printState := flag.Bool("print-state", false, "Sample once, print the CP state, and exit")

	flag.Parse()

	if err := run(*hostPath, *diagPath, *adcDevice, *adcChannel, *pwmChip, *pwmChannel,
		*coilPin, *auxPin, *samples, *statusPeriod, *sim, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(hostPath, diagPath, adcDevice string, adcChannel, pwmChip, pwmChannel,
	coilPin, auxPin, samples int, statusPeriod time.Duration, sim, printState bool) error {

	cfg := pilot.DefaultConfig()
	cfg.Burst.Samples = samples
	cfg.StatusPeriod = statusPeriod

	// Hardware
	var (
		src     cp.Source
		pwmDrv  pwm.Driver
		contDrv contactor.Driver
	)
	if sim {
		src = &adc.WaveReader{High: cp.NominalV12, Low: 80, DutyPct: 100, Period: 100, Noise: 8}
		pwmDrv = pwm.NewFakeDriver()
		contDrv = contactor.NewFakeDriver()
	} else {
		reader, err := adc.NewIIOReader(adcDevice, adcChannel)
		if err != nil {
			return fmt.Errorf("init adc: %w", err)
		}
		defer reader.Close()
		src = reader

		sys, err := pwm.NewSysfsDriver(pwmChip, pwmChannel)
		if err != nil {
			return fmt.Errorf("init pwm: %w", err)
		}
		defer sys.Close()
		pwmDrv = sys

		cont, err := contactor.NewRealDriver(coilPin, auxPin)
		if err != nil {
			return fmt.Errorf("init contactor: %w", err)
		}
		defer cont.Close()
		contDrv = cont
	}

	// Print state mode
	if printState {
		s := cp.NewSampler(cfg.Burst, src, time.Sleep)
		p := s.Burst()
		st := cfg.Thresholds.Band(p.Robust)
		fmt.Printf("state: %s (max=%d mV robust=%d mV avg=%d mV)\n", st, p.Max, p.Robust, p.Avg)
		return nil
	}

	start := time.Now()
	tracker := status.NewTracker(start, status.Config{
		StatusMs: statusPeriod.Milliseconds(),
		DiagMs:   cfg.DiagPeriod.Milliseconds(),
		Samples:  samples,
		HostPort: hostPath,
		DiagPort: diagPath,
	})

	per := periph.NewController(periph.DefaultConfig(), contDrv, time.Sleep, start)

	ctl, err := pilot.New(cfg, src, pwmDrv, per, tracker, time.Sleep, start)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	// Links
	var links []*transport.Link
	if sim {
		log.Printf("sim mode: links disabled, running control loop only")
	} else {
		hostPort, err := transport.Open(hostPath)
		if err != nil {
			return fmt.Errorf("open host port: %w", err)
		}
		host := transport.NewLink("host", hostPort)
		defer host.Close()
		host.Start()
		links = append(links, host)

		if diagPath != "" {
			diagPort, err := transport.Open(diagPath)
			if err != nil {
				return fmt.Errorf("open diag port: %w", err)
			}
			diag := transport.NewLink("diag", diagPort)
			defer diag.Close()
			diag.Start()
			links = append(links, diag)
		}
	}

	log.Printf("started: host=%s diag=%s samples=%d status=%v sim=%t",
		hostPath, diagPath, samples, statusPeriod, sim)

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctl, links, ticker.C, sigCh)
}

// runLoop is the cooperative control loop: every tick runs the periodic
// phases, then drains complete inbound lines from each link. Handlers run to
// completion before the next phase, so no lock discipline is needed.
func runLoop(ctl *pilot.Controller, links []*transport.Link, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			ctl.Shutdown(time.Now())
			return nil

		case <-tick:
			broadcastFrames(links, ctl.Tick(time.Now()))
			for _, l := range links {
				drainLink(ctl, l, links)
			}
		}
	}
}

// drainLink dispatches every already-complete line from one link without
// blocking for more input.
func drainLink(ctl *pilot.Controller, l *transport.Link, all []*transport.Link) {
	for {
		select {
		case line := <-l.Lines():
			out := ctl.HandleLine([]byte(line), time.Now())
			for _, f := range out.Reply {
				if err := l.WriteLine(f); err != nil {
					log.Printf("reply: %v", err)
				}
			}
			broadcastFrames(all, out.Broadcast)
		default:
			return
		}
	}
}

func broadcastFrames(links []*transport.Link, frames [][]byte) {
	for _, f := range frames {
		for _, l := range links {
			if err := l.WriteLine(f); err != nil {
				log.Printf("broadcast: %v", err)
			}
		}
	}
}
