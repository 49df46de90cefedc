package schemas

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// -- Command Schemas --

// CommandType identifies an operation routed through the coordinator.
type CommandType string

const (
	CommandCollectFriends    CommandType = "COLLECT_FRIENDS"
	CommandCollectEngagement CommandType = "COLLECT_ENGAGEMENT"
	CommandStartAutomation   CommandType = "START_AUTOMATION"
	CommandPauseAutomation   CommandType = "PAUSE_AUTOMATION"
	CommandResumeAutomation  CommandType = "RESUME_AUTOMATION"
	CommandStopAutomation    CommandType = "STOP_AUTOMATION"
	CommandCancelOutgoing    CommandType = "CANCEL_OUTGOING"
	CommandUnfriend          CommandType = "UNFRIEND"
	CommandGetValue          CommandType = "GET_VALUE"
	CommandSetValue          CommandType = "SET_VALUE"
	CommandGetState          CommandType = "GET_STATE"
)

// Command is a tagged request routed to whichever handler is registered for
// its type. Unrecognized types receive an error reply rather than silence.
type Command struct {
	ID      string      `json:"id"`
	Type    CommandType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DecodePayload unpacks the command payload into target. Payloads arrive as
// decoded JSON (maps) or as the typed params structs, so they round-trip
// through the codec either way.
func (c Command) DecodePayload(target interface{}) error {
	if c.Payload == nil {
		return nil
	}
	raw, err := json.Marshal(c.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// Reply is the synchronous answer to a single Command.
type Reply struct {
	CommandID string      `json:"command_id"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
	Result    interface{} `json:"result,omitempty"`
}

// -- Command Payloads --

// AutomationParams configures a friend-request automation run.
type AutomationParams struct {
	MaxActions       int      `json:"max_actions"`
	Keywords         []string `json:"keywords,omitempty"`
	UseKeywordFilter bool     `json:"use_keyword_filter"`
}

// UnfriendParams identifies the friend edge to remove.
type UnfriendParams struct {
	FriendID string `json:"friend_id"`
}

// KVParams addresses a single key in the shared store.
type KVParams struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// -- Event Schemas --

// EventType identifies a broadcast notification from the coordinator.
type EventType string

const (
	EventProgress     EventType = "PROGRESS"
	EventStateChanged EventType = "STATE_CHANGED"
	EventRunFinished  EventType = "RUN_FINISHED"
	EventRunFailed    EventType = "RUN_FAILED"
)

// Event is a one-to-many notification fanned out to every subscriber.
type Event struct {
	Type     EventType       `json:"type"`
	RunID    string          `json:"run_id,omitempty"`
	Progress *ProgressUpdate `json:"progress,omitempty"`
	State    *StateSnapshot  `json:"state,omitempty"`
	Error    string          `json:"error,omitempty"`
	At       time.Time       `json:"at"`
}

// StateSnapshot is the coordinator's replicated view of the active run.
// Consumers treat it as advisory: it can lag the worker that produced it.
type StateSnapshot struct {
	RunID     string    `json:"run_id"`
	Phase     RunPhase  `json:"phase"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stale reports whether the snapshot is older than the given horizon, which
// consumers use to detect a worker that went away without a final event.
func (s StateSnapshot) Stale(horizon time.Duration, now time.Time) bool {
	if s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) > horizon
}
