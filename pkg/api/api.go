// Package api defines the signaling contract shared by peer apps and the relay.
//
// Each signal is a JSON-encoded "packet" of the following structure:
//
//	   t - (required) one of the predefined packet types, e.g. "offer" or "join-room";
//	  to - (optional) the address of a recipient peer, set for peer-to-peer signals;
//	from - (optional) the address of a sender, always stamped by the relay;
//	   p - (optional) packet payload with arbitrary data.
//
// The packets differentiate by their types with which it is possible to unwrap
// the payload into distinct message structures. Peer-to-peer signals (offer, answer,
// candidate) are forwarded by the relay untouched except for the from field.
//
// Example:
//
//	{"t":"candidate","to":"cfv68irdrc3ifu3jn6bg","p":{"candidate":{"candidate":"candidate:1 1 udp 2130706431 ..."}}}
package api

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Address is an opaque participant address issued by the relay.
// Addresses are totally ordered by their string value.
type Address string

func (a Address) String() string { return string(a) }

// Short returns a shorter version of the address for logs.
func (a Address) Short() string {
	if len(a) < 4 {
		return string(a)
	}
	return string(a[len(a)-4:])
}

func (a Address) IsEmpty() bool { return a == "" }

// Less reports whether a sorts before b.
func (a Address) Less(b Address) bool { return a < b }

type PT uint8

// Packet types.
const (
	Unknown PT = iota
	WebrtcOffer
	WebrtcAnswer
	WebrtcIce
	Register
	Registered
	CreateRoom
	JoinRoom
	LeaveRoom
	InviteUsers
	Invitation
	UserNotAvailable
	OnlineUsers
	AllUsers
	UserJoined
	UserLeft
)

var names = [...]string{
	Unknown:          "unknown",
	WebrtcOffer:      "offer",
	WebrtcAnswer:     "answer",
	WebrtcIce:        "candidate",
	Register:         "register",
	Registered:       "registered",
	CreateRoom:       "create-room",
	JoinRoom:         "join-room",
	LeaveRoom:        "leave-room",
	InviteUsers:      "invite-users",
	Invitation:       "invitation",
	UserNotAvailable: "user-not-available",
	OnlineUsers:      "online-users",
	AllUsers:         "all-users",
	UserJoined:       "user-joined",
	UserLeft:         "user-left",
}

func (p PT) String() string {
	if int(p) < len(names) {
		return names[p]
	}
	return names[Unknown]
}

func ParsePT(s string) PT {
	for i, n := range names {
		if n == s {
			return PT(i)
		}
	}
	return Unknown
}

func (p PT) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PT) UnmarshalText(b []byte) error {
	*p = ParsePT(string(b))
	return nil
}

// IsPeerSignal tells if a packet goes to a peer rather than to the relay itself.
func (p PT) IsPeerSignal() bool { return p == WebrtcOffer || p == WebrtcAnswer || p == WebrtcIce }

var ErrMalformed = errors.New("malformed packet")

type In struct {
	T       PT              `json:"t"`
	To      Address         `json:"to,omitempty"`
	From    Address         `json:"from,omitempty"`
	Payload json.RawMessage `json:"p,omitempty"` // should be json.RawMessage for 2-pass unmarshal
}

type Out struct {
	T       PT      `json:"t"`
	To      Address `json:"to,omitempty"`
	From    Address `json:"from,omitempty"`
	Payload any     `json:"p,omitempty"`
}

// Envelope is a decoded packet.
type Envelope struct {
	From    Address
	To      Address
	Message Message
}

func (e Envelope) String() string {
	return fmt.Sprintf("%v [%v -> %v]", e.Message.Type(), e.From.Short(), e.To.Short())
}

// Encode packs a message addressed to the given peer,
// an empty address means the relay itself.
func Encode(to, from Address, m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: no message", ErrMalformed)
	}
	return json.Marshal(Out{T: m.Type(), To: to, From: from, Payload: m})
}

// Decode unpacks a packet into its typed message.
// Unknown types and payloads that fail validation are reported
// as ErrMalformed.
func Decode(data []byte) (Envelope, error) {
	var in In
	if err := json.Unmarshal(data, &in); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	m := newMessage(in.T)
	if m == nil {
		return Envelope{}, fmt.Errorf("%w: unknown type", ErrMalformed)
	}
	if len(in.Payload) > 0 {
		if err := json.Unmarshal(in.Payload, m); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v payload: %v", ErrMalformed, in.T, err)
		}
	}
	if v, ok := m.(validator); ok {
		if err := v.validate(); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v: %v", ErrMalformed, in.T, err)
		}
	}
	return Envelope{From: in.From, To: in.To, Message: deref(m)}, nil
}
