package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/room"
)

var (
	errQuit  = errors.New("quit")
	errUsage = errors.New("usage")
)

// Call is what the console drives.
type Call interface {
	Register(username string) error
	CreateRoom(invited []string) (string, error)
	Join(roomId string) error
	Leave() error
	Invite(usernames []string) error
	AcceptInvitation(roomId string) error
	DeclineInvitation(roomId string) error
	ToggleMic() error
	ToggleCam() error
	ToggleScreenShare() error
	ToggleRemoteMute(peer api.Address) error
	Participants() []api.Participant
	OnlineUsers() []string
	Events() <-chan room.Event
}

type Console struct {
	call Call
	out  io.Writer
}

func NewConsole(call Call, out io.Writer) *Console { return &Console{call: call, out: out} }

const help = `register <name>     change the username
create [user...]    open a room and invite users
join <room>         join a room
leave               leave the room
invite <user...>    invite users into the room
accept <room>       accept an invitation
decline <room>      decline an invitation
mic | cam           toggle the microphone or the camera
screen              toggle the screen sharing
mute <user>         toggle the playback of a participant
users | online      list the room or the online users
quit`

// Read executes commands line by line until the input ends or quit.
func (c *Console) Read(ctx context.Context, in io.Reader, quit func()) {
	defer quit()
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		err := c.Execute(scanner.Text())
		switch {
		case errors.Is(err, errQuit):
			return
		case errors.Is(err, errUsage):
			pterm.Fprintln(c.out, help)
		case err != nil:
			pterm.Error.Println(err)
		}
	}
}

func (c *Console) Execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	arg := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: %v takes one argument", errUsage, cmd)
		}
		return args[0], nil
	}

	switch cmd {
	case "register":
		name, err := arg()
		if err != nil {
			return err
		}
		return c.call.Register(name)
	case "create":
		id, err := c.call.CreateRoom(args)
		if err == nil {
			pterm.Info.Printfln("Room %v", id)
		}
		return err
	case "join":
		id, err := arg()
		if err != nil {
			return err
		}
		return c.call.Join(id)
	case "leave":
		return c.call.Leave()
	case "invite":
		if len(args) == 0 {
			return fmt.Errorf("%w: invite whom", errUsage)
		}
		return c.call.Invite(args)
	case "accept", "decline":
		id, err := arg()
		if err != nil {
			return err
		}
		if cmd == "accept" {
			return c.call.AcceptInvitation(id)
		}
		return c.call.DeclineInvitation(id)
	case "mic":
		return c.call.ToggleMic()
	case "cam":
		return c.call.ToggleCam()
	case "screen":
		return c.call.ToggleScreenShare()
	case "mute":
		who, err := arg()
		if err != nil {
			return err
		}
		peer, err := c.resolve(who)
		if err != nil {
			return err
		}
		return c.call.ToggleRemoteMute(peer)
	case "users":
		c.printParticipants()
		return nil
	case "online":
		pterm.Fprintln(c.out, strings.Join(c.call.OnlineUsers(), ", "))
		return nil
	case "quit", "exit":
		return errQuit
	case "help":
		return errUsage
	}
	return fmt.Errorf("%w: unknown command %v", errUsage, cmd)
}

// resolve finds a participant by the username or the address.
func (c *Console) resolve(who string) (api.Address, error) {
	for _, p := range c.call.Participants() {
		if p.Username == who || string(p.Address) == who {
			return p.Address, nil
		}
	}
	return "", fmt.Errorf("%v is not in the room", who)
}

func (c *Console) printParticipants() {
	data := pterm.TableData{{"User", "Address"}}
	for _, p := range c.call.Participants() {
		data = append(data, []string{p.Username, p.Address.String()})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithWriter(c.out).WithData(data).Render()
}

// Events prints what happens in the call.
func (c *Console) Events(ctx context.Context) {
	for {
		select {
		case e := <-c.call.Events():
			c.print(e)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) print(e room.Event) {
	switch e.Type {
	case room.InvitationReceived:
		pterm.Info.Printfln("%v invites you to %v, accept %v", e.From, e.RoomId, e.RoomId)
	case room.PeerFailed, room.MediaUnavailable:
		pterm.Warning.Println(e.String())
	case room.MediaChanged:
		pterm.Info.Printfln("mic %v cam %v screen %v", e.Media.Mic, e.Media.Camera, e.Media.Screen)
	case room.ParticipantsChanged:
		c.printParticipants()
	case room.OnlineUsersChanged:
		pterm.Info.Printfln("online: %v", strings.Join(e.Users, ", "))
	case room.Registered:
		pterm.Success.Printfln("Registered as %v (%v)", e.Username, e.Peer)
	default:
		pterm.Info.Println(e.String())
	}
}
