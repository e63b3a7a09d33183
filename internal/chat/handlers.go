package chat

import (
	"context"
	"strings"

	ncerr "hivechat/internal/errors"
	"hivechat/internal/protocol"
	"hivechat/internal/receiver"
)

// registerCommands installs the default command table.
func (s *Session) registerCommands() {
	for _, c := range []Command{
		{Name: "help", Description: "show this help", Run: s.help},
		{Name: "clear", Description: "clear the chat window", Run: s.clear},
		{Name: "stats", Description: "show connection and job statistics", Run: s.stats},
		{
			Name:        "setname",
			Args:        []Arg{{"[name]", ArgName}},
			Description: "set your user name or the server name",
			Async:       true,
			Run:         s.setname,
		},
		{
			Name:        "host",
			Args:        []Arg{{"[port]", ArgPort}},
			Description: "start a server",
			Async:       true,
			Run:         s.host,
		},
		{
			Name:        "join",
			Args:        []Arg{{"[ip/domain]", ArgText}, {"[port]", ArgPort}},
			Description: "join a server",
			Async:       true,
			Run:         s.join,
		},
		{Name: "leave", Description: "leave the current network", Async: true, Run: s.leave},
		{Name: "challenge", Description: "make a challenge or accept a challenge", Async: true, Run: s.challenge},
		{
			Name:        "move",
			Args:        []Arg{{"[move]", ArgRest}},
			Description: "play a move in the current game",
			Async:       true,
			Run:         s.move,
		},
	} {
		s.cmds.Register(c)
	}
}

// ── Local commands ───────────────────────────────────────────────────

func (s *Session) help(ctx context.Context, args []string) {
	s.println(StyleNormal, "This is a chat service with a two player board game on the side.")
	s.println(StyleNormal, "Use commands by typing '/[command name] [arguments]'. All commands:")
	for _, c := range s.cmds.Commands() {
		s.sink.Append("\t", StyleNormal)
		s.sink.Append(c.Name, StyleCommand)
		if len(c.Args) > 0 {
			s.sink.Append(" "+c.ArgString(), StyleArgument)
		}
		s.sink.Append(" - "+c.Description+"\n", StyleNormal)
	}
	s.println(StyleNormal, "A [port] is a number, or a name that both host and joiners use.")
}

func (s *Session) clear(ctx context.Context, args []string) {
	if c, ok := s.sink.(interface{ Clear() }); ok {
		c.Clear()
	}
}

func (s *Session) stats(ctx context.Context, args []string) {
	s.println(StyleNormal, "%s", s.metrics.JSON())
	s.println(StyleNormal, "jobs: %d/%d running", s.pool.Running(), s.pool.Size())
	if g, ok := s.game.(interface{ Games() int }); ok {
		s.println(StyleNormal, "games started: %d", g.Games())
	}
	if rcv := s.receiver(); rcv != nil {
		entries := rcv.Entries()
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name
		}
		s.println(StyleNormal, "peers (%d): %s", len(names), strings.Join(names, ", "))
	}
}

// ── Network commands ─────────────────────────────────────────────────

func (s *Session) setname(ctx context.Context, args []string) {
	name := args[0]
	if rcv := s.receiver(); rcv != nil {
		if err := rcv.SendAny(receiver.Broadcast, protocol.Sun, name); err != nil {
			s.log.Warn("announcing name: %v", err)
		}
	}
	s.setName(name)
	s.println(StyleInfo, "Your name is now '%s'.", name)
}

func (s *Session) leave(ctx context.Context, args []string) {
	rcv := s.detachAny()
	if rcv == nil {
		return
	}
	rcv.Close()
	s.println(StyleInfo, "You left the network.")
}

func (s *Session) challenge(ctx context.Context, args []string) {
	if err := s.broadcast(protocol.GameChallenge); err != nil {
		s.reportSendError("challenge", err)
	}
}

func (s *Session) move(ctx context.Context, args []string) {
	if rcv := s.receiver(); rcv != nil && rcv.Addr() != nil {
		s.println(StyleError, "The host referees games and cannot move.")
		return
	}
	// The server applies the move and relays it back to every player,
	// this session included.
	if err := s.broadcast(protocol.GameMove, args[0]); err != nil {
		s.reportSendError("move", err)
	}
}

// broadcast sends a request to the whole network.
func (s *Session) broadcast(t protocol.Type, fields ...string) error {
	rcv := s.receiver()
	if rcv == nil {
		return ncerr.ErrNotNetworked
	}
	return rcv.SendAny(receiver.Broadcast, t, fields...)
}

func (s *Session) reportSendError(what string, err error) {
	switch {
	case ncerr.Is(err, ncerr.ErrNotNetworked):
		s.println(StyleError, "You are not part of a network.")
	case ncerr.IsProtocol(err):
		s.println(StyleError, "Unable to send %s: %v", what, ncerr.Cause(err))
	default:
		s.log.Warn("sending %s: %v", what, err)
	}
}
