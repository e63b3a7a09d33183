package chat

import (
	"context"
	"fmt"

	"hivechat/config"
	"hivechat/internal/protocol"
	"hivechat/internal/receiver"
	"hivechat/util"
)

// host runs a server until the network is left or the context ends.
func (s *Session) host(ctx context.Context, args []string) {
	spec := args[0]
	if s.Networked() {
		s.println(StyleError, "You are already part of a network.")
		return
	}
	port, err := config.ResolvePort(spec)
	if err != nil {
		s.println(StyleError, "Unable to bind server %s: %v", spec, err)
		return
	}

	addr := util.FormatAddr(s.bind, port)
	ln, err := s.listener.Listen(ctx, "tcp4", addr)
	if err != nil {
		s.setupFailed(err, "Unable to bind server %s", spec)
		return
	}

	rcv := receiver.New(s.log, s.metrics)
	if err := rcv.Listen(ln); err != nil {
		ln.Close()
		s.println(StyleError, "Unable to create server: %v", err)
		return
	}
	if err := s.attach(rcv); err != nil {
		rcv.Close()
		s.println(StyleError, "You are already part of a network.")
		return
	}
	go s.watch(ctx, rcv)

	s.println(StyleInfo, "Now hosting server '%s' at %d!", spec, port)
	s.log.Info("hosting on %s", rcv.Addr())

	h := &hostLoop{s: s, rcv: rcv, log: s.log.Named("host")}
	h.run()

	s.detach(rcv)
	rcv.Close()
	s.println(StyleInfo, "Server closed.")
}

// ── Request handling ─────────────────────────────────────────────────

type hostLoop struct {
	s     *Session
	rcv   *receiver.Receiver
	log   *util.Logger
	slots challengeSlots
}

func (h *hostLoop) run() {
	defer h.slots.reset()
	for {
		e, req, ok := h.rcv.NextRequest()
		if !ok {
			return
		}
		h.handle(e, req)
	}
}

func (h *hostLoop) handle(e receiver.Entry, req protocol.Request) {
	s := h.s
	switch req.Type {
	case protocol.Join:
		h.announce(e.ID, "User '%s' has joined!", e.Name)
		err := s.game.ReplayMoves(func(move string) error {
			return h.rcv.SendAny(e.ID, protocol.GameMove, move)
		})
		if err != nil {
			h.log.Warn("replaying moves to connection %d: %v", e.ID, err)
		}

	case protocol.Leave:
		h.announce(e.ID, "User '%s' has left!", req.Name)

	case protocol.Kick:
		h.rcv.Remove(e.ID) //nolint:errcheck
		h.announce(e.ID, "User '%s' was kicked!", e.Name)

	case protocol.Msg:
		relay, err := protocol.New(protocol.Msg, e.Name, req.Extra)
		if err != nil {
			h.log.Verbose("connection %d: %v", e.ID, err)
			return
		}
		if err := h.rcv.SendExcept(relay, e.ID); err != nil {
			h.log.Warn("relaying message: %v", err)
		}
		s.chatLine(e.Name, req.Extra)

	case protocol.Sun:
		if !protocol.IsValidName(req.Name) || req.Name == e.Name {
			return
		}
		if err := h.rcv.Rename(e.ID, req.Name); err != nil {
			h.log.Verbose("renaming connection %d: %v", e.ID, err)
			return
		}
		h.announce(e.ID, "User '%s' set their name to: '%s'", e.Name, req.Name)

	case protocol.GameChallenge:
		h.challenge(e)

	case protocol.GameMove:
		if !h.slots.isPlayer(e.ID) {
			h.log.Verbose("ignoring move from non-player %s", e.Name)
			return
		}
		if err := s.game.ApplyMove(req.Extra); err != nil {
			h.log.Warn("move from %s: %v", e.Name, err)
			return
		}
		if err := h.rcv.SendAny(receiver.Broadcast, protocol.GameMove, req.Extra); err != nil {
			h.log.Warn("relaying move: %v", err)
		}

	default:
		h.log.Debug("ignoring %s from connection %d", req, e.ID)
	}
}

// announce prints a notice locally and sends it to every peer except
// the one it is about.
func (h *hostLoop) announce(about receiver.ID, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	h.s.println(StyleInfo, "%s", text)
	req, err := protocol.New(protocol.Srv, text)
	if err != nil {
		return
	}
	if err := h.rcv.SendExcept(req, about); err != nil {
		h.log.Verbose("announcing: %v", err)
	}
}

func (h *hostLoop) challenge(e receiver.Entry) {
	s := h.s
	connected := func(id receiver.ID) bool { return h.rcv.IndexOf(id) >= 0 }

	switch h.slots.claim(e.ID, e.Name, connected) {
	case claimFirst:
		text := fmt.Sprintf("User '%s' has issued a challenge.\nType '/challenge' to accept!", e.Name)
		s.println(StyleInfo, "%s", text)
		h.rcv.SendAny(receiver.Broadcast, protocol.Srv, text) //nolint:errcheck

	case claimSecond:
		h.rcv.SendAny(receiver.Broadcast, protocol.GameReset) //nolint:errcheck
		s.game.NotifyGameStart()
		text := fmt.Sprintf("User '%s' has accepted the challenge.", e.Name)
		s.println(StyleInfo, "%s", text)
		h.rcv.SendAny(receiver.Broadcast, protocol.Srv, text) //nolint:errcheck

	case claimOwn:
		h.rcv.SendAny(e.ID, protocol.Srv, "You already issued a challenge.") //nolint:errcheck

	case claimBusy:
		p := h.slots.players
		h.rcv.SendFormatted(e.ID, protocol.Srv, //nolint:errcheck
			"There already is an active game. Players: '%s' and '%s'.", p[0].name, p[1].name)
	}
	h.log.Verbose("challenge from %s, players %v", e.Name, h.slots.players)
}

// ── Challenge slots ──────────────────────────────────────────────────

type claimResult int

const (
	claimFirst  claimResult = iota // issued a challenge
	claimSecond                    // accepted a pending challenge
	claimOwn                       // challenged again while pending
	claimBusy                      // a game is already on
)

type player struct {
	id   receiver.ID
	name string
}

// challengeSlots are the two player seats.  Seat 0 is filled before
// seat 1.  Owned by the hosting goroutine.
type challengeSlots struct {
	players [2]player
}

// claim seats id.  A seat whose holder is no longer connected counts as
// free; reclaiming seat 0 also frees seat 1.
func (c *challengeSlots) claim(id receiver.ID, name string, connected func(receiver.ID) bool) claimResult {
	free := func(p player) bool { return p.id == receiver.Broadcast || !connected(p.id) }

	if free(c.players[0]) {
		c.players[0] = player{id: id, name: name}
		c.players[1] = player{}
		return claimFirst
	}
	if c.players[0].id == id {
		switch {
		case c.players[1].id == receiver.Broadcast:
			return claimOwn
		case free(c.players[1]):
			c.players[1] = player{}
			return claimFirst
		}
		return claimBusy
	}
	if free(c.players[1]) {
		c.players[1] = player{id: id, name: name}
		return claimSecond
	}
	return claimBusy
}

func (c *challengeSlots) isPlayer(id receiver.ID) bool {
	return id != receiver.Broadcast && (c.players[0].id == id || c.players[1].id == id)
}

func (c *challengeSlots) reset() { c.players = [2]player{} }
