package main

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/room"
)

type fakeCall struct {
	calls []string
	args  []any
}

func (f *fakeCall) did(name string, arg any) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, arg)
	return nil
}

func (f *fakeCall) Register(u string) error { return f.did("register", u) }
func (f *fakeCall) CreateRoom(invited []string) (string, error) {
	return "r1", f.did("create", invited)
}
func (f *fakeCall) Join(id string) error              { return f.did("join", id) }
func (f *fakeCall) Leave() error                      { return f.did("leave", nil) }
func (f *fakeCall) Invite(u []string) error           { return f.did("invite", u) }
func (f *fakeCall) AcceptInvitation(id string) error  { return f.did("accept", id) }
func (f *fakeCall) DeclineInvitation(id string) error { return f.did("decline", id) }
func (f *fakeCall) ToggleMic() error                  { return f.did("mic", nil) }
func (f *fakeCall) ToggleCam() error                  { return f.did("cam", nil) }
func (f *fakeCall) ToggleScreenShare() error          { return f.did("screen", nil) }
func (f *fakeCall) ToggleRemoteMute(p api.Address) error {
	return f.did("mute", p)
}
func (f *fakeCall) Participants() []api.Participant {
	return []api.Participant{{Address: "x1", Username: "bob"}}
}
func (f *fakeCall) OnlineUsers() []string     { return []string{"alice", "bob"} }
func (f *fakeCall) Events() <-chan room.Event { return nil }

func TestExecute(t *testing.T) {
	tests := []struct {
		line string
		call string
		arg  any
		err  error
	}{
		{line: "register alice", call: "register", arg: "alice"},
		{line: "create bob eve", call: "create", arg: []string{"bob", "eve"}},
		{line: "join r1", call: "join", arg: "r1"},
		{line: "  leave ", call: "leave"},
		{line: "invite bob", call: "invite", arg: []string{"bob"}},
		{line: "accept r2", call: "accept", arg: "r2"},
		{line: "decline r2", call: "decline", arg: "r2"},
		{line: "mic", call: "mic"},
		{line: "cam", call: "cam"},
		{line: "screen", call: "screen"},
		{line: "mute bob", call: "mute", arg: api.Address("x1")},
		{line: "mute x1", call: "mute", arg: api.Address("x1")},
		{line: ""},
		{line: "users"},
		{line: "join", err: errUsage},
		{line: "invite", err: errUsage},
		{line: "dance", err: errUsage},
		{line: "quit", err: errQuit},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			f := &fakeCall{}
			c := NewConsole(f, io.Discard)
			err := c.Execute(tt.line)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Execute(%q) = %v, want %v", tt.line, err, tt.err)
			}
			if tt.call == "" {
				if len(f.calls) != 0 {
					t.Errorf("unexpected %v", f.calls)
				}
				return
			}
			if len(f.calls) != 1 || f.calls[0] != tt.call {
				t.Fatalf("calls %v", f.calls)
			}
			if tt.arg != nil && !reflect.DeepEqual(f.args[0], tt.arg) {
				t.Errorf("arg %#v, want %#v", f.args[0], tt.arg)
			}
		})
	}
}

func TestMuteStranger(t *testing.T) {
	f := &fakeCall{}
	if err := NewConsole(f, io.Discard).Execute("mute eve"); err == nil || len(f.calls) != 0 {
		t.Errorf("muted a stranger: %v", err)
	}
}
