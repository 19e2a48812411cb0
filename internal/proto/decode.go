package proto

import (
	"encoding/json"
	"fmt"
)

// CommandKind tags a decoded legacy field-command.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdSetPWM
	CmdEnablePWM
	CmdSetFreq
	CmdSetMode
	CmdGetStatus
	CmdPing
	CmdSetThresholds
	CmdAutoCal
	CmdScan
	CmdRestartHint
	CmdReset
)

var commandNames = map[string]CommandKind{
	"set_pwm":           CmdSetPWM,
	"enable_pwm":        CmdEnablePWM,
	"set_freq":          CmdSetFreq,
	"set_mode":          CmdSetMode,
	"get_status":        CmdGetStatus,
	"ping":              CmdPing,
	"cp.set_thresholds": CmdSetThresholds,
	"cp.auto_cal":       CmdAutoCal,
	"cp.scan":           CmdScan,
	"restart_slac_hint": CmdRestartHint,
	"reset":             CmdReset,
}

// Command is a legacy command decoded once at parse time. Pointer fields are
// nil when the key was absent on the wire.
type Command struct {
	Kind CommandKind
	Name string // raw cmd string, kept for unknown_cmd diagnostics

	Duty   *int
	Enable *bool
	Hz     *int
	Mode   string
	MS     *int

	// Thresholds holds only the keys present on the wire
	// (t12/t9/t6/t3/t0/hys/hys_ab).
	Thresholds map[string]int
}

// Method tags a decoded structured request method.
type Method int

const (
	MethodUnknown Method = iota
	MethodSysPing
	MethodSysInfo
	MethodSysArm
	MethodSysSetMode
	MethodContactorCheck
	MethodContactorSet
	MethodTempsRead
	MethodMeterRead
	MethodMeterStreamStart
	MethodMeterStreamStop
	MethodTempsStreamStart
	MethodTempsStreamStop
)

var methodNames = map[string]Method{
	"sys.ping":           MethodSysPing,
	"sys.info":           MethodSysInfo,
	"sys.arm":            MethodSysArm,
	"sys.set_mode":       MethodSysSetMode,
	"contactor.check":    MethodContactorCheck,
	"contactor.set":      MethodContactorSet,
	"temps.read":         MethodTempsRead,
	"meter.read":         MethodMeterRead,
	"meter.stream_start": MethodMeterStreamStart,
	"meter.stream_stop":  MethodMeterStreamStop,
	"temps.stream_start": MethodTempsStreamStart,
	"temps.stream_stop":  MethodTempsStreamStop,
}

// Params carries the recognized request parameters.
type Params struct {
	Mode string `json:"mode"`
	On   *bool  `json:"on"`
}

// Request is a structured req message. Method is MethodUnknown for names not
// in the surface; an empty RawMethod marks an invalid request.
type Request struct {
	ID        int64
	Method    Method
	RawMethod string
	Params    Params
}

// Message is one decoded inbound line: exactly one of Cmd or Req is set.
type Message struct {
	Cmd *Command
	Req *Request
}

// DecodeError describes a line that could not be decoded. Msg is the exact
// text for the error envelope reply.
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string { return e.Msg }

// wireIn is the superset of all inbound fields; decoding reads each line
// exactly once.
type wireIn struct {
	Type   string `json:"type"`
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params Params `json:"params"`

	Cmd    string `json:"cmd"`
	Duty   *int   `json:"duty"`
	Enable *bool  `json:"enable"`
	Hz     *int   `json:"hz"`
	Mode   string `json:"mode"`
	MS     *int   `json:"ms"`

	T12   *int `json:"t12"`
	T9    *int `json:"t9"`
	T6    *int `json:"t6"`
	T3    *int `json:"t3"`
	T0    *int `json:"t0"`
	Hys   *int `json:"hys"`
	HysAB *int `json:"hys_ab"`
}

// DecodeLine parses one inbound frame. Unparseable JSON and legacy messages
// without a cmd field yield a *DecodeError whose Msg is the reply text;
// structured requests always decode (invalid ones are answered with a
// structured error so the id can be echoed).
func DecodeLine(line []byte) (Message, error) {
	var w wireIn
	if err := json.Unmarshal(line, &w); err != nil {
		return Message{}, &DecodeError{Msg: fmt.Sprintf("bad_json:%v", err)}
	}

	if w.Type == "req" {
		return Message{Req: &Request{
			ID:        w.ID,
			Method:    methodNames[w.Method],
			RawMethod: w.Method,
			Params:    w.Params,
		}}, nil
	}

	if w.Cmd == "" {
		return Message{}, &DecodeError{Msg: "missing_cmd"}
	}

	cmd := &Command{
		Kind:   commandNames[w.Cmd],
		Name:   w.Cmd,
		Duty:   w.Duty,
		Enable: w.Enable,
		Hz:     w.Hz,
		Mode:   w.Mode,
		MS:     w.MS,
	}

	thr := map[string]int{}
	for k, v := range map[string]*int{
		"t12": w.T12, "t9": w.T9, "t6": w.T6, "t3": w.T3, "t0": w.T0,
		"hys": w.Hys, "hys_ab": w.HysAB,
	} {
		if v != nil {
			thr[k] = *v
		}
	}
	if len(thr) > 0 {
		cmd.Thresholds = thr
	}

	return Message{Cmd: cmd}, nil
}

// Marshal encodes an outbound envelope. Marshaling our own fixed types
// cannot fail; a failure here is a programming error and panics.
func Marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("proto: marshal %T: %v", v, err))
	}
	return b
}
