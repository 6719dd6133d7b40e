package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/napolitain/factory-env/internal/models"
	"github.com/napolitain/factory-env/internal/protocol"
	"github.com/napolitain/factory-env/internal/resolver"
)

// session owns one environment for the lifetime of a connection.
// Messages are handled strictly in order, so no locking is needed.
type session struct {
	id  string
	env *resolver.Env
	log *slog.Logger

	episodeID string
	step      int
}

func newSession(env *resolver.Env, logger *slog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:  id,
		env: env,
		log: logger.With("session_id", id),
	}
}

// handle routes one client message and returns the reply
func (s *session) handle(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.NewError(protocol.ErrProtoBadRequest, "invalid JSON: %v", err)
	}

	switch base.Type {
	case protocol.TypeReset:
		return s.reset()
	case protocol.TypeStep:
		var m protocol.StepMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return protocol.NewError(protocol.ErrProtoBadRequest, "invalid STEP: %v", err)
		}
		return s.stepMsg(m)
	case protocol.TypeHello:
		return protocol.NewError(protocol.ErrProtoBadRequest, "session already started")
	default:
		return protocol.NewError(protocol.ErrProtoBadRequest, "unexpected message type %q", base.Type)
	}
}

func (s *session) reset() protocol.ObsMsg {
	obs := s.env.Reset()
	s.episodeID = uuid.NewString()
	s.step = 0
	s.log.Info("episode reset", "episode_id", s.episodeID)

	return protocol.NewObs(s.episodeID, 0, models.StepResult{Observation: obs})
}

func (s *session) stepMsg(m protocol.StepMsg) any {
	if s.episodeID == "" {
		return protocol.NewError(protocol.ErrNoEpisode, "send RESET before STEP")
	}
	if s.env.Done() {
		return protocol.NewError(protocol.ErrEpisodeDone, "episode %s reached its horizon; send RESET", s.episodeID)
	}

	c, err := m.Choice()
	if err != nil {
		return protocol.NewError(protocol.ErrBadAction, "%v", err)
	}

	res := s.env.Step(c)
	s.step++
	if res.Done {
		s.log.Info("episode done",
			"episode_id", s.episodeID,
			"steps", s.step,
			"net_worth", s.env.NetWorth(),
		)
	}
	return protocol.NewObs(s.episodeID, s.step, res)
}
