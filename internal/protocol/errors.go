package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session state.
	ErrServerBusy  = "E_SERVER_BUSY"
	ErrNoEpisode   = "E_NO_EPISODE"
	ErrEpisodeDone = "E_EPISODE_DONE"
	ErrBadAction   = "E_BAD_ACTION"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrServerBusy:      {},
	ErrNoEpisode:       {},
	ErrEpisodeDone:     {},
	ErrBadAction:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
