package pilot

import (
	"errors"
	"log"
	"time"

	"github.com/wattline/cp-pilot/internal/periph"
	"github.com/wattline/cp-pilot/internal/proto"
)

// Outbound is the result of handling one inbound line. Reply frames go back
// on the link the line arrived on; Broadcast frames go to every link, so all
// listeners converge on current truth without polling.
type Outbound struct {
	Reply     [][]byte
	Broadcast [][]byte
}

func reply(frames ...[]byte) Outbound { return Outbound{Reply: frames} }

func (o *Outbound) broadcast(frame []byte) { o.Broadcast = append(o.Broadcast, frame) }

// HandleLine decodes and dispatches one inbound frame. It is a pure function
// of (line, controller state): both links share it.
func (c *Controller) HandleLine(line []byte, now time.Time) Outbound {
	msg, err := proto.DecodeLine(line)
	if err != nil {
		var derr *proto.DecodeError
		if errors.As(err, &derr) {
			return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: derr.Msg}))
		}
		return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: "bad_json"}))
	}
	if msg.Req != nil {
		return c.handleRequest(msg.Req, now)
	}
	return c.handleCommand(msg.Cmd, now)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c *Controller) handleCommand(cmd *proto.Command, now time.Time) Outbound {
	switch cmd.Kind {
	case proto.CmdSetPWM:
		if c.mode != ModeManual {
			log.Printf("set_pwm rejected in dc mode")
			return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: "mode_dc_auto"}))
		}
		if cmd.Duty != nil {
			c.pwmDuty = clamp(*cmd.Duty, 0, 100)
		}
		if cmd.Enable != nil {
			c.pwmEnabled = *cmd.Enable
		}
		c.applyOutput(false)
		log.Printf("pwm manual updated: enable=%t duty%%=%d hz=%d", c.pwmEnabled, c.pwmDuty, c.pwmHz)
		out := Outbound{}
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdEnablePWM:
		if c.mode != ModeManual {
			log.Printf("enable_pwm rejected in dc mode")
			return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: "mode_dc_auto"}))
		}
		if cmd.Enable != nil {
			c.pwmEnabled = *cmd.Enable
		}
		c.applyOutput(false)
		log.Printf("pwm enable set to %t", c.pwmEnabled)
		out := Outbound{}
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdSetFreq:
		hz := 0
		if cmd.Hz != nil {
			hz = *cmd.Hz
		}
		c.pwmHz = clamp(hz, minFreqHz, maxFreqHz)
		if err := c.drv.Configure(c.pwmHz); err != nil {
			log.Printf("pwm: reconfigure %d Hz: %v", c.pwmHz, err)
		}
		c.sampler.SetPWMFrequency(c.pwmHz)
		// Reconfiguring the generator resets its compare register; the
		// current duty policy must be pushed again.
		c.applyOutput(true)
		log.Printf("pwm freq set to %d Hz", c.pwmHz)
		out := Outbound{}
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdSetMode:
		switch cmd.Mode {
		case "dc":
			c.mode = ModeDCAuto
		case "manual":
			c.mode = ModeManual
		default:
			log.Printf("set_mode invalid value: %q", cmd.Mode)
			return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: "bad_mode"}))
		}
		c.applyOutput(false)
		log.Printf("mode set to %s", c.mode)
		out := Outbound{}
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdGetStatus:
		return reply(c.statusFrame())

	case proto.CmdPing:
		return reply(proto.Marshal(proto.Pong{Type: "pong"}))

	case proto.CmdSetThresholds:
		for k, v := range cmd.Thresholds {
			switch k {
			case "t12":
				c.thr.T12 = v
			case "t9":
				c.thr.T9 = v
			case "t6":
				c.thr.T6 = v
			case "t3":
				c.thr.T3 = v
			case "t0":
				c.thr.T0 = v
			case "hys":
				c.thr.Hys = v
			case "hys_ab":
				c.thr.HysAB = v
			}
		}
		log.Printf("thresholds set: t12=%d t9=%d t6=%d t3=%d t0=%d hys=%d hys_ab=%d",
			c.thr.T12, c.thr.T9, c.thr.T6, c.thr.T3, c.thr.T0, c.thr.Hys, c.thr.HysAB)
		out := reply(proto.Marshal(proto.OK{Type: "ok", Cmd: cmd.Name}))
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdAutoCal:
		v12, ok := c.calibrate()
		if !ok {
			return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: "cal_low_v12"}))
		}
		out := reply(proto.Marshal(proto.OK{Type: "ok", Cmd: cmd.Name, V12: v12}))
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdScan:
		bursts := make([]proto.BurstStats, 0, c.cfg.ScanBursts)
		for i := 0; i < c.cfg.ScanBursts; i++ {
			p := c.sampler.Burst()
			bursts = append(bursts, proto.BurstStats{Min: p.Min, Max: p.Max, Robust: p.Robust, Avg: p.Avg})
		}
		return reply(proto.Marshal(proto.ScanReply{Type: "scan", Bursts: bursts}))

	case proto.CmdRestartHint:
		ms := defaultHintMS
		if cmd.MS != nil {
			ms = clamp(*cmd.MS, minHintMS, maxHintMS)
		}
		prevMode, prevDuty, prevEnabled := c.mode, c.pwmDuty, c.pwmEnabled
		// Hold the line solid-high for the pulse so the downstream modem
		// sees an idle gap, then restore the previous output policy.
		c.mode = ModeManual
		c.pwmEnabled = true
		c.pwmDuty = 100
		c.applyOutput(true)
		c.sleep(time.Duration(ms) * time.Millisecond)
		c.mode, c.pwmDuty, c.pwmEnabled = prevMode, prevDuty, prevEnabled
		c.applyOutput(true)
		log.Printf("restart hint pulsed for %d ms", ms)
		out := reply(proto.Marshal(proto.OK{Type: "ok", Cmd: cmd.Name}))
		out.broadcast(c.statusFrame())
		return out

	case proto.CmdReset:
		c.reset(now)
		log.Printf("reset to boot defaults")
		out := reply(proto.Marshal(proto.OK{Type: "ok", Cmd: cmd.Name}))
		out.broadcast(c.statusFrame())
		return out

	default:
		log.Printf("unknown cmd: %q", cmd.Name)
		return reply(proto.Marshal(proto.ErrorMsg{Type: "error", Msg: "unknown_cmd"}))
	}
}

func (c *Controller) respond(id int64, now time.Time, result any) []byte {
	return proto.Marshal(proto.Response{Type: "res", ID: id, TS: c.uptimeMS(now), Result: result})
}

func (c *Controller) respondErr(id int64, now time.Time, code int, msg string) []byte {
	return proto.Marshal(proto.Response{
		Type: "res", ID: id, TS: c.uptimeMS(now),
		Error: &proto.RespError{Code: code, Message: msg},
	})
}

func (c *Controller) handleRequest(req *proto.Request, now time.Time) Outbound {
	if req.RawMethod == "" {
		return reply(c.respondErr(req.ID, now, proto.CodeInvalidRequest, "invalid_request"))
	}

	switch req.Method {
	case proto.MethodSysPing:
		c.periph.Ping(now)
		return reply(c.respond(req.ID, now, proto.PingResult{
			UpMS: c.uptimeMS(now),
			Mode: string(c.periph.Mode()),
		}))

	case proto.MethodSysInfo:
		return reply(c.respond(req.ID, now, proto.InfoResult{
			FW:           c.cfg.Firmware,
			Proto:        1,
			Mode:         string(c.periph.Mode()),
			Capabilities: []string{"cp", "contactor", "temps.gun_a", "temps.gun_b", "meter"},
		}))

	case proto.MethodSysArm:
		until := c.periph.Arm(now)
		return reply(c.respond(req.ID, now, proto.ArmResult{
			ArmedUntilMS: until.Sub(c.start).Milliseconds(),
		}))

	case proto.MethodSysSetMode:
		m := periph.ModeSim
		if req.Params.Mode == "hw" {
			m = periph.ModeHW
		}
		return reply(c.respond(req.ID, now, proto.ModeResult{Mode: string(c.periph.SetMode(m))}))

	case proto.MethodContactorCheck:
		r := c.periph.Check()
		return reply(c.respond(req.ID, now, proto.ContactorCheckResult{
			Commanded: r.Commanded,
			AuxOK:     r.AuxOK,
			CoilMA:    r.CoilMA,
			Reason:    r.Reason,
			State:     string(r.State),
		}))

	case proto.MethodContactorSet:
		on := req.Params.On != nil && *req.Params.On
		if err := c.periph.Commit(on, now); err != nil {
			switch {
			case errors.Is(err, periph.ErrNotArmed):
				return reply(c.respondErr(req.ID, now, proto.CodeNotArmed, "not_armed"))
			case errors.Is(err, periph.ErrAuxMismatch):
				log.Printf("contactor aux mismatch: rolled back to open")
				return reply(c.respondErr(req.ID, now, proto.CodeAuxMismatch, "aux_mismatch"))
			default:
				log.Printf("contactor io: %v", err)
				return reply(c.respondErr(req.ID, now, proto.CodeContactorIO, "contactor_io"))
			}
		}
		return reply(c.respond(req.ID, now, proto.ContactorSetResult{
			OK:     true,
			AuxOK:  true,
			TookMS: c.periph.CommitSettle().Milliseconds(),
		}))

	case proto.MethodTempsRead:
		tr := c.periph.ReadTemps()
		return reply(c.respond(req.ID, now, proto.TempsResult{
			GunA: proto.Temp{C: tr.GunA},
			GunB: proto.Temp{C: tr.GunB},
		}))

	case proto.MethodMeterRead:
		m := c.periph.ReadMeter()
		return reply(c.respond(req.ID, now, proto.MeterResult{V: m.V, I: m.I, P: m.P, E: m.E}))

	case proto.MethodMeterStreamStart:
		c.periph.SetMeterStream(true)
		return reply(c.respond(req.ID, now, struct{}{}))

	case proto.MethodMeterStreamStop:
		c.periph.SetMeterStream(false)
		return reply(c.respond(req.ID, now, struct{}{}))

	case proto.MethodTempsStreamStart:
		c.periph.SetTempsStream(true)
		return reply(c.respond(req.ID, now, struct{}{}))

	case proto.MethodTempsStreamStop:
		c.periph.SetTempsStream(false)
		return reply(c.respond(req.ID, now, struct{}{}))

	default:
		return reply(c.respondErr(req.ID, now, proto.CodeUnknownMethod, "unknown_method"))
	}
}
