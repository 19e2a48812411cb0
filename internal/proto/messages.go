// Package proto defines the newline-delimited JSON wire surface shared by
// both command links, and decodes inbound lines into tagged commands so
// dispatch never works on raw strings.
package proto

// Stable error codes carried on structured responses.
const (
	CodeInvalidRequest = -32600
	CodeUnknownMethod  = -32601
	CodeNotArmed       = 1001
	CodeAuxMismatch    = 1002
	CodeContactorIO    = 1003
)

// PWMStatus reports the PWM generator inside a status frame. Out is the
// effective duty on the line, which differs from Duty when the manual enable
// flag or the automatic policy overrides it.
type PWMStatus struct {
	Enabled bool `json:"enabled"`
	Duty    int  `json:"duty"`
	Hz      int  `json:"hz"`
	Out     int  `json:"out"`
}

// ThresholdStatus reports the active classification thresholds.
type ThresholdStatus struct {
	T12   int `json:"t12"`
	T9    int `json:"t9"`
	T6    int `json:"t6"`
	T3    int `json:"t3"`
	T0    int `json:"t0"`
	Hys   int `json:"hys"`
	HysAB int `json:"hys_ab"`
}

// Status is the periodic unsolicited state snapshot.
type Status struct {
	Type       string          `json:"type"` // "status"
	CPMV       int             `json:"cp_mv"`
	CPMVRobust int             `json:"cp_mv_robust"`
	State      string          `json:"state"`
	Mode       string          `json:"mode"`
	PWM        PWMStatus       `json:"pwm"`
	Thresh     ThresholdStatus `json:"thresh"`
}

// ErrorMsg is the reply to malformed or rejected legacy input.
type ErrorMsg struct {
	Type string `json:"type"` // "error"
	Msg  string `json:"msg"`
}

// OK acknowledges a legacy command that has no richer reply.
type OK struct {
	Type string `json:"type"` // "ok"
	Cmd  string `json:"cmd"`
	V12  int    `json:"v12,omitempty"`
}

// Pong replies to a legacy ping.
type Pong struct {
	Type string `json:"type"` // "pong"
}

// BurstStats is one burst of a diagnostic scan.
type BurstStats struct {
	Min    int `json:"min"`
	Max    int `json:"max"`
	Robust int `json:"robust"`
	Avg    int `json:"avg"`
}

// ScanReply carries the diagnostic burst sweep.
type ScanReply struct {
	Type   string       `json:"type"` // "scan"
	Bursts []BurstStats `json:"bursts"`
}

// RespError is the structured error inside a response.
type RespError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response answers exactly one structured request, echoing its id.
type Response struct {
	Type   string     `json:"type"` // "res"
	ID     int64      `json:"id"`
	TS     int64      `json:"ts"` // milliseconds since boot
	Result any        `json:"result,omitempty"`
	Error  *RespError `json:"error,omitempty"`
}

// Event is an unsolicited notification (telemetry tick, failsafe, CP state
// transition). ID is always 0 to distinguish events from responses.
type Event struct {
	Type   string `json:"type"` // "evt"
	TS     int64  `json:"ts"`
	ID     int    `json:"id"`
	Method string `json:"method"` // "evt:<name>"
	Result any    `json:"result"`
}

// Structured request results.

type PingResult struct {
	UpMS int64  `json:"up_ms"`
	Mode string `json:"mode"`
}

type InfoResult struct {
	FW           string   `json:"fw"`
	Proto        int      `json:"proto"`
	Mode         string   `json:"mode"`
	Capabilities []string `json:"capabilities"`
}

type ArmResult struct {
	ArmedUntilMS int64 `json:"armed_until_ms"`
}

type ModeResult struct {
	Mode string `json:"mode"`
}

type ContactorCheckResult struct {
	Commanded bool    `json:"commanded"`
	AuxOK     bool    `json:"aux_ok"`
	CoilMA    float64 `json:"coil_ma"`
	Reason    string  `json:"reason"`
	State     string  `json:"state"`
}

type ContactorSetResult struct {
	OK     bool  `json:"ok"`
	AuxOK  bool  `json:"aux_ok"`
	TookMS int64 `json:"took_ms"`
}

type MeterResult struct {
	V float64 `json:"v"`
	I float64 `json:"i"`
	P float64 `json:"p"`
	E float64 `json:"e"`
}

// Temp wraps a single Celsius reading.
type Temp struct {
	C float64 `json:"c"`
}

type TempsResult struct {
	GunA Temp `json:"gun_a"`
	GunB Temp `json:"gun_b"`
}

// FailsafeResult reports a watchdog-forced actuation.
type FailsafeResult struct {
	Forced string `json:"forced"`
}

// StateChangeResult reports a committed CP state transition.
type StateChangeResult struct {
	From     string `json:"from"`
	To       string `json:"to"`
	MV       int    `json:"mv"`
	RobustMV int    `json:"robust_mv"`
}
