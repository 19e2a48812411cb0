package pwm

import (
	"errors"
	"testing"
)

func TestFakeDriverRecordsCommands(t *testing.T) {
	d := NewFakeDriver()

	if err := d.Configure(1500); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := d.SetDutyPercent(5); err != nil {
		t.Fatalf("duty: %v", err)
	}
	if err := d.SetDutyPercent(100); err != nil {
		t.Fatalf("duty: %v", err)
	}

	if d.Hz != 1500 || d.ConfigureCalls != 1 {
		t.Errorf("configure state: hz=%d calls=%d", d.Hz, d.ConfigureCalls)
	}
	if d.DutyPct != 100 {
		t.Errorf("duty = %d, want 100", d.DutyPct)
	}
	want := []int{5, 100}
	if len(d.DutyHistory) != len(want) {
		t.Fatalf("history = %v, want %v", d.DutyHistory, want)
	}
	for i := range want {
		if d.DutyHistory[i] != want[i] {
			t.Errorf("history[%d] = %d, want %d", i, d.DutyHistory[i], want[i])
		}
	}
}

func TestFakeDriverErrors(t *testing.T) {
	d := NewFakeDriver()
	d.DutyError = errors.New("injected")

	if err := d.SetDutyPercent(5); err == nil {
		t.Error("expected injected duty error")
	}
	if len(d.DutyHistory) != 0 {
		t.Errorf("errored call recorded: %v", d.DutyHistory)
	}
}
