package room

import (
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/voicehub/roomcall/pkg/api"
	"github.com/voicehub/roomcall/pkg/call"
	"github.com/voicehub/roomcall/pkg/logger"
	"github.com/voicehub/roomcall/pkg/media"
)

// UI intents. They are queued into the loop and return right away,
// the outcome comes back as events.

// Register introduces us to the relay under a username.
func (c *Coordinator) Register(username string) error {
	return c.do(func() {
		c.username = username
		c.send(api.RegisterRequest{Username: username})
	})
}

// CreateRoom opens a new room and invites the users into it.
// Returns the id of the room.
func (c *Coordinator) CreateRoom(invited []string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	roomId := id.String()
	return roomId, c.do(func() {
		c.withUserMedia(func() {
			c.enter(roomId)
			c.send(api.CreateRoomRequest{Room: api.Room{RoomId: roomId, Username: c.username}})
			if len(invited) > 0 {
				c.send(api.InviteUsersRequest{RoomId: roomId, Invited: invited, From: c.username})
			}
		})
	})
}

// Join enters an existing room once the camera and the microphone are on.
func (c *Coordinator) Join(roomId string) error {
	return c.do(func() { c.join(roomId) })
}

func (c *Coordinator) join(roomId string) {
	c.withUserMedia(func() {
		if c.roomId == roomId {
			return
		}
		if c.roomId != "" {
			c.leave()
		}
		c.enter(roomId)
		c.send(api.JoinRoomRequest{Room: api.Room{RoomId: roomId, Username: c.username}})
	})
}

func (c *Coordinator) enter(roomId string) {
	c.roomId = roomId
	c.log.Info().Str(logger.RoomField, roomId).Msg("Entering the room")
	c.emit(Event{Type: RoomJoined, RoomId: roomId})
	c.emit(Event{Type: MediaChanged, Media: c.mediaState()})
}

// Leave closes every session and stops the local tracks.
func (c *Coordinator) Leave() error { return c.do(c.leave) }

func (c *Coordinator) leave() {
	if c.roomId == "" {
		return
	}
	roomId := c.roomId
	c.send(api.LeaveRoomRequest{Room: api.Room{RoomId: roomId, Username: c.username}})
	c.registry.Clear()
	c.media.Release()
	c.roomId = ""
	c.participants = make(map[api.Address]api.Participant)
	c.roles = make(map[api.Address]call.Role)
	c.retries = make(map[api.Address]int)
	c.remoteMuted = make(map[api.Address]bool)
	c.log.Info().Str(logger.RoomField, roomId).Msg("Left the room")
	c.emit(Event{Type: RoomLeft, RoomId: roomId})
}

// Invite asks the relay to invite users into the current room.
func (c *Coordinator) Invite(usernames []string) error {
	var err error
	if e := c.do(func() {
		if c.roomId == "" {
			err = ErrNoRoom
			return
		}
		c.send(api.InviteUsersRequest{RoomId: c.roomId, Invited: usernames, From: c.username})
	}); e != nil {
		return e
	}
	return err
}

// AcceptInvitation joins the room of a received invitation.
func (c *Coordinator) AcceptInvitation(roomId string) error {
	var err error
	if e := c.do(func() {
		if _, ok := c.invitations[roomId]; !ok {
			err = fmt.Errorf("no invitation to %v", roomId)
			return
		}
		delete(c.invitations, roomId)
		c.join(roomId)
	}); e != nil {
		return e
	}
	return err
}

func (c *Coordinator) DeclineInvitation(roomId string) error {
	return c.do(func() { delete(c.invitations, roomId) })
}

func (c *Coordinator) ToggleMic() error {
	return c.toggle(c.media.ToggleMic)
}

func (c *Coordinator) ToggleCam() error {
	return c.toggle(c.media.ToggleCam)
}

func (c *Coordinator) toggle(fn func() (bool, error)) error {
	var err error
	if e := c.do(func() {
		if _, err = fn(); err == nil {
			c.emit(Event{Type: MediaChanged, Media: c.mediaState()})
		}
	}); e != nil {
		return e
	}
	return err
}

// ToggleScreenShare starts or stops the screen sharing.
// The screen capture runs off the loop, sessions are updated
// when it is done.
func (c *Coordinator) ToggleScreenShare() error {
	return c.do(func() {
		if c.media.IsSharing() {
			c.media.StopScreenShare()
			c.emit(Event{Type: MediaChanged, Media: c.mediaState()})
			return
		}
		capturer, ctx := c.media.Capturer(), c.ctx
		go func() {
			screen, err := capturer.DisplayMedia(ctx)
			if !c.post(func() { c.screenCaptured(screen, err) }) && screen != nil {
				screen.Stop()
			}
		}()
	})
}

func (c *Coordinator) screenCaptured(screen *media.Track, err error) {
	if err == nil {
		err = c.media.UseScreen(screen)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("screen sharing")
		c.emit(Event{Type: MediaUnavailable, Err: err})
		return
	}
	c.emit(Event{Type: MediaChanged, Media: c.mediaState()})
}

// ToggleRemoteMute mutes or unmutes the playback of one participant.
func (c *Coordinator) ToggleRemoteMute(peer api.Address) error {
	return c.do(func() {
		muted := !c.remoteMuted[peer]
		c.remoteMuted[peer] = muted
		if s, ok := c.registry.Get(peer); ok {
			s.Transport().MuteRemote(muted)
		}
	})
}

// Participants returns the remote participants of the room in order.
func (c *Coordinator) Participants() []api.Participant {
	var list []api.Participant
	_ = c.do(func() { list = c.participantList() })
	return list
}

func (c *Coordinator) OnlineUsers() []string {
	var users []string
	_ = c.do(func() { users = append(users, c.online...) })
	return users
}

func (c *Coordinator) Self() api.Address {
	var self api.Address
	_ = c.do(func() { self = c.self })
	return self
}

func (c *Coordinator) RoomId() string {
	var id string
	_ = c.do(func() { id = c.roomId })
	return id
}

// withUserMedia runs fn once the camera and the microphone are on.
// The capture runs off the loop, a failure drops fn.
func (c *Coordinator) withUserMedia(fn func()) {
	if c.media.HasUserMedia() {
		fn()
		return
	}
	c.afterAcquire = append(c.afterAcquire, fn)
	if c.acquiring {
		return
	}
	c.acquiring = true
	capturer, ctx := c.media.Capturer(), c.ctx
	go func() {
		video, audio, err := capturer.UserMedia(ctx)
		if !c.post(func() { c.userMediaCaptured(video, audio, err) }) && err == nil {
			video.Stop()
			audio.Stop()
		}
	}()
}

func (c *Coordinator) userMediaCaptured(video, audio *media.Track, err error) {
	c.acquiring = false
	then := c.afterAcquire
	c.afterAcquire = nil
	if err != nil {
		c.log.Error().Err(err).Msg("camera and microphone")
		c.emit(Event{Type: MediaUnavailable, Err: err})
		return
	}
	c.media.UseUserMedia(video, audio)
	for _, fn := range then {
		fn()
	}
}

func (c *Coordinator) send(m api.Message) {
	if err := c.signal.Send("", m); err != nil {
		c.log.Error().Err(err).Msgf("%v was not sent", m.Type())
	}
}
