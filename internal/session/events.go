package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Divy1030/duelcore/internal/apperr"
	"github.com/Divy1030/duelcore/internal/domain"
	"github.com/Divy1030/duelcore/internal/matchmaking"
	"github.com/Divy1030/duelcore/internal/room"
)

// dispatch routes one inbound envelope to its handler. Every branch calls
// c.ack exactly once: acknowledgement callbacks must fire exactly once per
// event.
func (c *Client) dispatch(env envelope) {
	ctx := context.Background()
	switch env.Event {
	case "findMatch":
		c.handleFindMatch(ctx, env.AckID)
	case "cancelMatchmaking":
		c.handleCancelMatchmaking(env.AckID)
	case "getMatchmakingStatus":
		c.handleGetMatchmakingStatus(env.AckID)
	case "submitSolution":
		c.handleSubmitSolution(ctx, env.AckID, env.Data)
	case "leaveMatch":
		c.handleLeaveMatch(ctx, env.AckID, env.Data)
	case "getRoomStatus":
		c.handleGetRoomStatus(ctx, env.AckID, env.Data)
	case "getActiveMatches":
		c.handleGetActiveMatches(env.AckID)
	case "rejoinMatch":
		c.handleRejoinMatch(ctx, env.AckID, env.Data)
	case "sendMessage":
		c.handleSendMessage(ctx, env.AckID, env.Data)
	default:
		c.ack(env.AckID, map[string]any{"success": false, "message": "unknown event"})
	}
}

func (c *Client) handleFindMatch(ctx context.Context, ackID string) {
	if c.queue.Has(c.userID) {
		c.ack(ackID, map[string]any{"success": false, "message": apperr.ErrConflict.Error() + ": already queued"})
		return
	}
	if len(c.rooms.ActiveRoomsFor(c.userID)) > 0 {
		c.ack(ackID, map[string]any{"success": false, "message": apperr.ErrConflict.Error() + ": already in an active match"})
		return
	}

	self := matchmaking.QueuedPlayer{
		UserID:   c.userID,
		Username: c.username,
		Rating:   c.rating,
		Session:  c,
		JoinedAt: time.Now(),
	}

	opponent, found := c.queue.Pair(self)
	if !found {
		c.queue.Add(self)
		queuePosition := c.queue.Size()
		c.ack(ackID, map[string]any{
			"success":       true,
			"message":       "searching for an opponent",
			"status":        "searching",
			"queuePosition": queuePosition,
		})
		c.pushEvent("matchmakingStatus", map[string]any{"status": "searching", "queuePosition": queuePosition})
		return
	}

	var opponentClient *Client
	if oc, ok := c.hub.Get(opponent.UserID); ok {
		opponentClient = oc
	}

	p1 := domain.RoomUser{UserID: c.userID, Username: c.username, Rating: c.rating}
	p2 := domain.RoomUser{UserID: opponent.UserID, Username: opponent.Username, Rating: opponent.Rating}

	// Subscribe both connections to the room's broadcast channel before
	// Create runs, so its internal matchFound publish (and every
	// subsequent scoreUpdate/submissionUpdate/matchFinished) actually
	// reaches them instead of firing into an empty channel.
	roomID := room.NewRoomID()
	c.joinRoom(ctx, roomID)
	if opponentClient != nil {
		opponentClient.joinRoom(ctx, roomID)
	}

	r, _, err := c.rooms.CreateWithID(ctx, roomID, p1, p2)
	if err != nil {
		c.queue.Add(self)
		c.ack(ackID, map[string]any{"success": false, "message": err.Error()})
		c.pushEvent("matchmakingError", map[string]any{"message": err.Error()})
		c.pushEvent("matchmakingStatus", map[string]any{"status": "searching", "queuePosition": c.queue.Size()})
		if opponentClient != nil {
			c.queue.Add(opponent)
			opponentClient.pushEvent("matchmakingError", map[string]any{
				"message": "match could not be created, you have been returned to the queue",
			})
			opponentClient.pushEvent("matchmakingStatus", map[string]any{
				"status": "searching", "queuePosition": c.queue.Size(),
			})
		}
		return
	}

	c.ack(ackID, map[string]any{
		"success": true,
		"message": "matched",
		"status":  "matched",
		"roomId":  r.ID(),
	})
}

func (c *Client) handleCancelMatchmaking(ackID string) {
	_, ok := c.queue.Remove(c.userID)
	c.ack(ackID, map[string]any{"success": ok, "message": "removed from matchmaking queue"})
	if ok {
		c.pushEvent("matchmakingStatus", map[string]any{"status": "cancelled", "queuePosition": 0})
	}
}

func (c *Client) handleGetMatchmakingStatus(ackID string) {
	p, inQueue := c.queue.Get(c.userID)
	waitTime := time.Duration(0)
	if inQueue {
		waitTime = time.Since(p.JoinedAt)
	}
	c.ack(ackID, map[string]any{
		"success":   true,
		"inQueue":   inQueue,
		"queueSize": c.queue.Size(),
		"waitTime":  waitTime.Milliseconds(),
	})
}

type submitSolutionRequest struct {
	RoomID   string                   `json:"roomId"`
	Code     string                   `json:"code"`
	Language domain.SupportedLanguage `json:"language"`
}

func (c *Client) handleSubmitSolution(ctx context.Context, ackID string, data json.RawMessage) {
	var req submitSolutionRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": "malformed request"})
		return
	}

	if err := c.rooms.Submit(ctx, req.RoomID, c.userID, req.Code, req.Language); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": err.Error()})
		return
	}
	c.ack(ackID, map[string]any{"success": true})
}

type roomRequest struct {
	RoomID string `json:"roomId"`
}

func (c *Client) handleLeaveMatch(ctx context.Context, ackID string, data json.RawMessage) {
	var req roomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": "malformed request"})
		return
	}
	if err := c.rooms.Forfeit(ctx, req.RoomID, c.userID); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": err.Error()})
		return
	}
	c.ack(ackID, map[string]any{"success": true, "message": "left match"})
}

func (c *Client) handleGetRoomStatus(ctx context.Context, ackID string, data json.RawMessage) {
	var req roomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": "malformed request"})
		return
	}
	snap, err := c.rooms.Status(ctx, req.RoomID)
	if err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": err.Error()})
		return
	}
	c.ack(ackID, map[string]any{
		"success":       true,
		"roomId":        snap.RoomID,
		"problemId":     snap.ProblemID,
		"roomStatus":    snap.RoomStatus,
		"users":         snap.Users,
		"isActive":      snap.IsActive,
		"remainingTime": snap.RemainingTime.Milliseconds(),
	})
}

func (c *Client) handleGetActiveMatches(ackID string) {
	matches := c.rooms.ActiveRoomsFor(c.userID)
	c.ack(ackID, map[string]any{"success": true, "matches": matches})
}

func (c *Client) handleRejoinMatch(ctx context.Context, ackID string, data json.RawMessage) {
	var req roomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": "malformed request"})
		return
	}
	snap, err := c.rooms.Rejoin(ctx, req.RoomID, c.userID)
	if err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": err.Error()})
		return
	}
	c.joinRoom(ctx, req.RoomID)
	c.ack(ackID, map[string]any{
		"success":       true,
		"roomId":        snap.RoomID,
		"problemId":     snap.ProblemID,
		"roomStatus":    snap.RoomStatus,
		"users":         snap.Users,
		"isActive":      snap.IsActive,
		"remainingTime": snap.RemainingTime.Milliseconds(),
	})
	c.rooms.Broadcast(ctx, req.RoomID, "opponentReconnected", map[string]any{
		"userId": c.userID,
	})
}

type sendMessageRequest struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

func (c *Client) handleSendMessage(ctx context.Context, ackID string, data json.RawMessage) {
	var req sendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.ack(ackID, map[string]any{"success": false, "message": "malformed request"})
		return
	}

	snap, err := c.rooms.Status(ctx, req.RoomID)
	if err != nil || !snap.IsMember(c.userID) {
		c.ack(ackID, map[string]any{"success": false, "message": "not a member of this room"})
		return
	}

	msg := req.Message
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}

	c.rooms.Broadcast(ctx, req.RoomID, "newMessage", map[string]any{
		"userId":    c.userID,
		"username":  c.username,
		"message":   strings.TrimSpace(msg),
		"timestamp": time.Now(),
	})
	c.ack(ackID, map[string]any{"success": true})
}
