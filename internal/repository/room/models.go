package room

type SyncMode string

const (
	SyncModeNone    SyncMode = "none"
	SyncModeYouTube SyncMode = "youtube"
	SyncModeGeneric SyncMode = "generic"
)

type PipelineStatus string

const (
	PipelineStatusNone    PipelineStatus = ""
	PipelineStatusPending PipelineStatus = "pending"
	PipelineStatusReady   PipelineStatus = "ready"
	PipelineStatusFailed  PipelineStatus = "failed"
)

// State is the authoritative per-room state. It is stored as one value
// so the repository surface stays narrow: get, upsert, delete, list.
type State struct {
	Id   string `json:"id"`
	Name string `json:"name"`

	// ParticipantIds has no duplicates and keeps insertion order.
	ParticipantIds []string `json:"participant_ids"`
	HostId         string   `json:"host_id"`
	PendingHostId  string   `json:"pending_host_id"`

	// ViewerQueueAllowed lets non-hosts append to the queue tail.
	ViewerQueueAllowed bool `json:"viewer_queue_allowed"`

	MediaUrl              string `json:"media_url"`
	CurrentMediaAddedById string `json:"current_media_added_by_id"`

	// PlaylistUrls is paired 1:1 with PlaylistAddedByIds, likewise the
	// history pair.
	PlaylistUrls       []string `json:"playlist_urls"`
	PlaylistAddedByIds []string `json:"playlist_added_by_ids"`
	HistoryUrls        []string `json:"history_urls"`
	HistoryAddedByIds  []string `json:"history_added_by_ids"`

	IsPlaying    bool    `json:"is_playing"`
	CurrentTime  float64 `json:"current_time"`
	PlaybackRate float64 `json:"playback_rate"`
	Duration     float64 `json:"duration"`
	UpdatedAt    int64   `json:"updated_at"`
	Version      int     `json:"version"`

	SyncMode     SyncMode `json:"sync_mode"`
	SyncTarget   float64  `json:"sync_target"`
	SyncLaunchAt int64    `json:"sync_launch_at"`
	SyncReadyIds []string `json:"sync_ready_ids"`

	// SyncReportedTime keeps the latest locally observed time reported
	// by each participant.
	SyncReportedTime map[string]float64 `json:"sync_reported_time"`

	MediaSourceType  string         `json:"media_source_type"`
	ResolvedMediaUrl string         `json:"resolved_media_url"`
	PipelineStatus   PipelineStatus `json:"pipeline_status"`
	PipelineMessage  string         `json:"pipeline_message"`
}

// NewState returns the default state for a room seen for the first time.
func NewState(roomId string) State {
	return State{
		Id:                 roomId,
		ViewerQueueAllowed: true,
		PlaybackRate:       1.0,
		SyncMode:           SyncModeNone,
	}
}

// Clone returns a deep copy so callers never share slices or maps with
// a stored state.
func (s State) Clone() State {
	c := s
	c.ParticipantIds = append([]string(nil), s.ParticipantIds...)
	c.PlaylistUrls = append([]string(nil), s.PlaylistUrls...)
	c.PlaylistAddedByIds = append([]string(nil), s.PlaylistAddedByIds...)
	c.HistoryUrls = append([]string(nil), s.HistoryUrls...)
	c.HistoryAddedByIds = append([]string(nil), s.HistoryAddedByIds...)
	c.SyncReadyIds = append([]string(nil), s.SyncReadyIds...)

	if s.SyncReportedTime != nil {
		c.SyncReportedTime = make(map[string]float64, len(s.SyncReportedTime))
		for k, v := range s.SyncReportedTime {
			c.SyncReportedTime[k] = v
		}
	}

	return c
}

// HasParticipant reports whether userId is in the participant list.
func (s State) HasParticipant(userId string) bool {
	for _, id := range s.ParticipantIds {
		if id == userId {
			return true
		}
	}

	return false
}
