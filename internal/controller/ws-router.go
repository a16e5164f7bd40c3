package controller

import (
	"github.com/LFronza/CineLink-sub000/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsMessageMw)

	mux.Handle("alive", handle(c, c.handleAlive))

	// room
	mux.Handle("get_room_state", handle(c, c.handleGetRoomState))
	mux.Handle("leave_room", handle(c, c.handleLeaveRoom))
	mux.Handle("set_room_name", handle(c, c.handleSetRoomName))
	mux.Handle("set_viewer_queue_policy", handle(c, c.handleSetViewerQueuePolicy))

	// host authority
	mux.Handle("set_host", handle(c, c.handleSetHost))
	mux.Handle("request_host_claim", handle(c, c.handleRequestHostClaim))
	mux.Handle("decide_host_claim", handle(c, c.handleDecideHostClaim))

	// queue
	mux.Handle("set_media", handle(c, c.handleSetMedia))
	mux.Handle("add_queue_next", handle(c, c.handleAddQueueNext))
	mux.Handle("add_queue_last", handle(c, c.handleAddQueueLast))
	mux.Handle("advance_queue", handle(c, c.handleAdvanceQueue))
	mux.Handle("previous_queue", handle(c, c.handlePreviousQueue))
	mux.Handle("remove_queue_item", handle(c, c.handleRemoveQueueItem))
	mux.Handle("move_queue_item", handle(c, c.handleMoveQueueItem))

	// playback
	mux.Handle("play", handle(c, c.handlePlay))
	mux.Handle("pause", handle(c, c.handlePause))
	mux.Handle("seek", handle(c, c.handleSeek))
	mux.Handle("set_rate", handle(c, c.handleSetRate))
	mux.Handle("set_duration", handle(c, c.handleSetDuration))

	// launch handshake
	mux.Handle("report_sync_status", handle(c, c.handleReportSyncStatus))
	mux.Handle("host_start_sync", handle(c, c.handleHostStartSync))
	mux.Handle("host_launch_sync", handle(c, c.handleHostLaunchSync))

	return mux
}
