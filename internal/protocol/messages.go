package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/napolitain/factory-env/internal/models"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SessionID         string   `json:"session_id"`
	Horizon           float64  `json:"horizon"`
	ObservationFields []string `json:"observation_fields"`
	Actions           []string `json:"actions"`
}

// NewWelcome describes the environment a session will step
func NewWelcome(sessionID string, horizon float64) WelcomeMsg {
	choices := models.AllChoices()
	actions := make([]string, len(choices))
	for _, c := range choices {
		actions[c.Index()] = c.String()
	}
	fields := make([]string, len(models.ObservationFields))
	copy(fields, models.ObservationFields[:])

	return WelcomeMsg{
		Type:              TypeWelcome,
		ProtocolVersion:   Version,
		SessionID:         sessionID,
		Horizon:           horizon,
		ObservationFields: fields,
		Actions:           actions,
	}
}

// RESET (client -> server)
type ResetMsg struct {
	Type string `json:"type"`
}

// STEP (client -> server). Action is a choice name or a learner index.
type StepMsg struct {
	Type   string          `json:"type"`
	Action json.RawMessage `json:"action"`
}

// Choice decodes the action field
func (m StepMsg) Choice() (models.Choice, error) {
	raw := bytes.TrimSpace(m.Action)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing action", models.ErrUnknownChoice)
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return 0, fmt.Errorf("%w: %v", models.ErrUnknownChoice, err)
		}
		return models.ParseChoice(name)
	}

	var idx int
	if err := json.Unmarshal(raw, &idx); err != nil {
		return 0, fmt.Errorf("%w: action must be a name or integer index", models.ErrUnknownChoice)
	}
	return models.ChoiceFromIndex(idx)
}

// OBS (server -> client)
type ObsMsg struct {
	Type        string         `json:"type"`
	EpisodeID   string         `json:"episode_id"`
	Step        int            `json:"step"`
	Observation []float64      `json:"observation"`
	Reward      float64        `json:"reward"`
	Done        bool           `json:"done"`
	Info        map[string]any `json:"info"`
}

// NewObs wraps a step result; reset observations carry zero reward
func NewObs(episodeID string, step int, res models.StepResult) ObsMsg {
	info := res.Info
	if info == nil {
		info = map[string]any{}
	}
	return ObsMsg{
		Type:        TypeObs,
		EpisodeID:   episodeID,
		Step:        step,
		Observation: res.Observation.Slice(),
		Reward:      res.Reward,
		Done:        res.Done,
		Info:        info,
	}
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds an error reply. Codes outside the catalogue are reported
// as E_INTERNAL.
func NewError(code, format string, args ...any) ErrorMsg {
	if code == "" || !IsKnownCode(code) {
		code = ErrInternal
	}
	return ErrorMsg{Type: TypeError, Code: code, Message: fmt.Sprintf(format, args...)}
}
