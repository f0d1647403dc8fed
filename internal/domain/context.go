package domain

// ContextKind names one of the three places a message can live.
type ContextKind string

const (
	ContextRoom    ContextKind = "ROOM"
	ContextDM      ContextKind = "DM_THREAD"
	ContextChannel ContextKind = "CHANNEL"
)
