package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/napolitain/factory-env/internal/models"
)

func TestStepMsgChoice(t *testing.T) {
	tests := []struct {
		raw     string
		want    models.Choice
		wantErr bool
	}{
		{`{"type":"STEP","action":"build_a"}`, models.BuildA, false},
		{`{"type":"STEP","action":"wait"}`, models.Wait, false},
		{`{"type":"STEP","action":0}`, models.BuildA, false},
		{`{"type":"STEP","action":2}`, models.BuildPower, false},
		{`{"type":"STEP","action":3}`, models.Wait, false},
		{`{"type":"STEP","action":4}`, 0, true},
		{`{"type":"STEP","action":-1}`, 0, true},
		{`{"type":"STEP","action":1.5}`, 0, true},
		{`{"type":"STEP","action":"teleport"}`, 0, true},
		{`{"type":"STEP","action":null}`, 0, true},
		{`{"type":"STEP"}`, 0, true},
	}

	for _, tt := range tests {
		var m StepMsg
		if err := json.Unmarshal([]byte(tt.raw), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		got, err := m.Choice()
		if tt.wantErr {
			if !errors.Is(err, models.ErrUnknownChoice) {
				t.Errorf("%s: expected ErrUnknownChoice, got %v (%v)", tt.raw, err, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("%s: got %v, %v; want %v", tt.raw, got, err, tt.want)
		}
	}
}

func TestNewWelcomeListsActionsInIndexOrder(t *testing.T) {
	w := NewWelcome("S1", 60)
	want := []string{"build_a", "build_b", "build_power", "wait"}
	for i, a := range want {
		if w.Actions[i] != a {
			t.Errorf("action %d: expected %s, got %s", i, a, w.Actions[i])
		}
	}
	if len(w.ObservationFields) != models.ObservationSize {
		t.Errorf("Expected %d observation fields, got %d", models.ObservationSize, len(w.ObservationFields))
	}
}

func TestNewObsAlwaysHasInfo(t *testing.T) {
	b, err := json.Marshal(NewObs("E1", 1, models.StepResult{}))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if info, ok := m["info"].(map[string]any); !ok || len(info) != 0 {
		t.Errorf("Expected empty info object, got %v", m["info"])
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := DecodeBase([]byte(`{"type":"HELLO","protocol_version":"1.0"}`))
	if err != nil || m.Type != TypeHello || m.ProtocolVersion != Version {
		t.Errorf("unexpected %+v, %v", m, err)
	}
	if _, err := DecodeBase([]byte(`not json`)); err == nil {
		t.Error("expected decode error")
	}
}
