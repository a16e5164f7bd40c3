package room

import (
	"context"

	"github.com/LFronza/CineLink-sub000/pkg/wsconn"
)

type ConnectParticipantParams struct {
	Conn     *wsconn.Conn
	SenderId string
	RoomId   string
}

func (s *Service) ConnectParticipant(ctx context.Context, params *ConnectParticipantParams) error {
	if err := s.connRepo.Add(params.Conn, params.SenderId, params.RoomId); err != nil {
		s.logger.InfoContext(ctx, "failed to connect participant", "error", err)
		return err
	}

	return nil
}

// DisconnectParticipant drops the connection mapping and detaches the
// participant from the room, with the same departure semantics as an
// explicit leave.
func (s *Service) DisconnectParticipant(ctx context.Context, params *ConnectParticipantParams) (Result, error) {
	if err := s.connRepo.RemoveByConn(params.Conn); err != nil {
		s.logger.InfoContext(ctx, "failed to remove connection", "error", err)
	}

	return s.LeaveRoom(ctx, &LeaveRoomParams{
		SenderId: params.SenderId,
		RoomId:   params.RoomId,
	})
}
