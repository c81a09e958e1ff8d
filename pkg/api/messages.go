package api

import (
	"errors"

	"github.com/pion/webrtc/v3"
)

// Message is one of the signaling messages below.
// Handlers dispatch on the concrete type with a type switch.
type Message interface {
	Type() PT
}

type validator interface {
	validate() error
}

type Participant struct {
	Address  Address `json:"socketId"`
	Username string  `json:"username"`
}

type (
	Offer struct {
		Sdp string `json:"sdp"`
	}
	Answer struct {
		Sdp string `json:"sdp"`
	}
	Candidate struct {
		Candidate webrtc.ICECandidateInit `json:"candidate"`
	}

	RegisterRequest struct {
		Username string `json:"username"`
	}
	RegisteredResponse struct {
		Address  Address `json:"socketId"`
		Username string  `json:"username"`
	}

	Room struct {
		RoomId   string `json:"roomId"`
		Username string `json:"username"`
	}
	CreateRoomRequest struct{ Room }
	JoinRoomRequest   struct{ Room }
	LeaveRoomRequest  struct{ Room }

	InviteUsersRequest struct {
		RoomId  string   `json:"roomId"`
		Invited []string `json:"invited"`
		From    string   `json:"from"`
	}
	InvitationNotice struct {
		RoomId string `json:"roomId"`
		From   string `json:"from"`
	}
	UserNotAvailableNotice struct {
		Username string `json:"username"`
	}
	OnlineUsersNotice struct {
		Users []string `json:"users"`
	}

	AllUsersNotice struct {
		Users []Participant `json:"users"`
	}
	UserJoinedNotice struct {
		Participant
	}
	UserLeftNotice struct {
		Participant
	}
)

func (Offer) Type() PT                  { return WebrtcOffer }
func (Answer) Type() PT                 { return WebrtcAnswer }
func (Candidate) Type() PT              { return WebrtcIce }
func (RegisterRequest) Type() PT        { return Register }
func (RegisteredResponse) Type() PT     { return Registered }
func (CreateRoomRequest) Type() PT      { return CreateRoom }
func (JoinRoomRequest) Type() PT        { return JoinRoom }
func (LeaveRoomRequest) Type() PT       { return LeaveRoom }
func (InviteUsersRequest) Type() PT     { return InviteUsers }
func (InvitationNotice) Type() PT       { return Invitation }
func (UserNotAvailableNotice) Type() PT { return UserNotAvailable }
func (OnlineUsersNotice) Type() PT      { return OnlineUsers }
func (AllUsersNotice) Type() PT         { return AllUsers }
func (UserJoinedNotice) Type() PT       { return UserJoined }
func (UserLeftNotice) Type() PT         { return UserLeft }

var (
	errNoSdp       = errors.New("no sdp")
	errNoCandidate = errors.New("no candidate")
	errNoUsername  = errors.New("no username")
	errNoRoom      = errors.New("no room id")
	errNoAddress   = errors.New("no socket id")
)

func (o *Offer) validate() error {
	if o.Sdp == "" {
		return errNoSdp
	}
	return nil
}

func (a *Answer) validate() error {
	if a.Sdp == "" {
		return errNoSdp
	}
	return nil
}

func (c *Candidate) validate() error {
	if c.Candidate.Candidate == "" {
		return errNoCandidate
	}
	return nil
}

func (r *RegisterRequest) validate() error {
	if r.Username == "" {
		return errNoUsername
	}
	return nil
}

func (r *Room) validate() error {
	if r.RoomId == "" {
		return errNoRoom
	}
	return nil
}

func (r *InviteUsersRequest) validate() error {
	if r.RoomId == "" {
		return errNoRoom
	}
	return nil
}

func (i *InvitationNotice) validate() error {
	if i.RoomId == "" {
		return errNoRoom
	}
	return nil
}

func (a *AllUsersNotice) validate() error {
	for _, u := range a.Users {
		if u.Address.IsEmpty() {
			return errNoAddress
		}
	}
	return nil
}

func (p *Participant) validate() error {
	if p.Address.IsEmpty() {
		return errNoAddress
	}
	return nil
}

func newMessage(t PT) Message {
	switch t {
	case WebrtcOffer:
		return &Offer{}
	case WebrtcAnswer:
		return &Answer{}
	case WebrtcIce:
		return &Candidate{}
	case Register:
		return &RegisterRequest{}
	case Registered:
		return &RegisteredResponse{}
	case CreateRoom:
		return &CreateRoomRequest{}
	case JoinRoom:
		return &JoinRoomRequest{}
	case LeaveRoom:
		return &LeaveRoomRequest{}
	case InviteUsers:
		return &InviteUsersRequest{}
	case Invitation:
		return &InvitationNotice{}
	case UserNotAvailable:
		return &UserNotAvailableNotice{}
	case OnlineUsers:
		return &OnlineUsersNotice{}
	case AllUsers:
		return &AllUsersNotice{}
	case UserJoined:
		return &UserJoinedNotice{}
	case UserLeft:
		return &UserLeftNotice{}
	}
	return nil
}

func deref(m Message) Message {
	switch v := m.(type) {
	case *Offer:
		return *v
	case *Answer:
		return *v
	case *Candidate:
		return *v
	case *RegisterRequest:
		return *v
	case *RegisteredResponse:
		return *v
	case *CreateRoomRequest:
		return *v
	case *JoinRoomRequest:
		return *v
	case *LeaveRoomRequest:
		return *v
	case *InviteUsersRequest:
		return *v
	case *InvitationNotice:
		return *v
	case *UserNotAvailableNotice:
		return *v
	case *OnlineUsersNotice:
		return *v
	case *AllUsersNotice:
		return *v
	case *UserJoinedNotice:
		return *v
	case *UserLeftNotice:
		return *v
	}
	return m
}
