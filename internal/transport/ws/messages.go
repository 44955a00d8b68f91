package ws

import "encoding/json"

// MessageType represents the type of an inbound WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgVotingReadiness MessageType = "votingReadiness"
	MsgVote            MessageType = "vote"
	MsgRoleProposition MessageType = "role_proposition"
)

// ClientMessage represents a message from client to server. Payload fields
// sit next to the type tag.
type ClientMessage struct {
	Type        MessageType `json:"type"`
	Value       *bool       `json:"value,omitempty"`
	Target      string      `json:"target,omitempty"`
	Proposition *string     `json:"proposition,omitempty"`
}

// parseClientMessage decodes a frame. ok is false for anything that is not a
// well-formed known message.
func parseClientMessage(data []byte) (msg ClientMessage, ok bool) {
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, false
	}

	switch msg.Type {
	case MsgVotingReadiness:
		return msg, msg.Value != nil
	case MsgVote:
		return msg, msg.Target != ""
	case MsgRoleProposition:
		return msg, msg.Proposition != nil
	}
	return msg, false
}
