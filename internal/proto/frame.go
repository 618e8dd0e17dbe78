// Package proto defines the frames exchanged on the broadcast channel.
package proto

import "github.com/yuichat/yuichat/internal/chat"

// Frame types.
const (
	TypeChat        = "chat"
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeReqPresence = "req-presence"
	TypeClear       = "clear"
)

// Frame is the envelope for everything published on the channel. Exactly
// one of Chat/User is set, per Type; req-presence and clear carry no
// payload. Sender is the publishing session's id: the transport is not
// assumed to exclude the origin, so receivers drop frames carrying their
// own id instead of relying on it.
type Frame struct {
	Type   string            `json:"type"`
	Sender string            `json:"sender,omitempty"`
	Chat   *chat.Entry       `json:"chat,omitempty"`
	User   *chat.Participant `json:"user,omitempty"`
}
