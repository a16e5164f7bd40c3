package room

import (
	"github.com/LFronza/CineLink-sub000/internal/repository/room"
	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

// Kind classifies why a mutation was rejected.
type Kind string

const (
	KindNone             Kind = ""
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindInvalidArgument  Kind = "invalid_argument"
	KindUpstreamFailure  Kind = "upstream_failure"
	KindTimeout          Kind = "timeout"
)

// Result is the outcome of any room operation. A rejected result still
// carries the best-known state so the caller can resynchronize.
type Result struct {
	Accepted bool       `json:"accepted"`
	Kind     Kind       `json:"kind,omitempty"`
	Message  string     `json:"message"`
	State    room.State `json:"state"`

	// Update is set on accepted mutations that must reach the room's
	// broadcast boundary; nil otherwise.
	Update *Update `json:"-"`
}

// Update is one accepted state change addressed to every connection in
// the room.
type Update struct {
	Action  string         `json:"action"`
	ActorId string         `json:"actor_id"`
	State   room.State     `json:"state"`
	Conns   []*wsconn.Conn `json:"-"`
}
