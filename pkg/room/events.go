package room

import (
	"fmt"

	"github.com/voicehub/roomcall/pkg/api"
)

type EventType uint8

const (
	Registered EventType = iota
	OnlineUsersChanged
	InvitationReceived
	UserNotAvailable
	RoomJoined
	RoomLeft
	ParticipantsChanged
	PeerConnected
	PeerFailed
	RemoteTrack
	MediaChanged
	MediaUnavailable
)

func (e EventType) String() string {
	switch e {
	case Registered:
		return "registered"
	case OnlineUsersChanged:
		return "online-users"
	case InvitationReceived:
		return "invitation"
	case UserNotAvailable:
		return "user-not-available"
	case RoomJoined:
		return "room-joined"
	case RoomLeft:
		return "room-left"
	case ParticipantsChanged:
		return "participants"
	case PeerConnected:
		return "peer-connected"
	case PeerFailed:
		return "peer-failed"
	case RemoteTrack:
		return "remote-track"
	case MediaChanged:
		return "media"
	case MediaUnavailable:
		return "media-unavailable"
	}
	return "unknown"
}

// MediaState is the state of the local tracks.
type MediaState struct {
	Mic    bool
	Camera bool
	Screen bool
}

// Event is a notification for the UI.
// Only the fields of the event type are set.
type Event struct {
	Type   EventType
	Peer   api.Address
	RoomId string
	// From is the username of an inviter.
	From         string
	Username     string
	Users        []string
	Participants []api.Participant
	Kind         string
	Media        MediaState
	Err          error
}

func (e Event) String() string {
	switch e.Type {
	case InvitationReceived:
		return fmt.Sprintf("%v %v from %v", e.Type, e.RoomId, e.From)
	case PeerFailed, MediaUnavailable:
		return fmt.Sprintf("%v %v: %v", e.Type, e.Peer.Short(), e.Err)
	}
	return fmt.Sprintf("%v %v", e.Type, e.Peer.Short())
}
