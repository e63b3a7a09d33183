package chat

import (
	"context"

	"hivechat/config"
	"hivechat/internal/protocol"
	"hivechat/internal/receiver"
	"hivechat/util"
)

// join connects to a server and shows what it sends until the
// connection ends, the network is left or the context ends.
func (s *Session) join(ctx context.Context, args []string) {
	host, spec := args[0], args[1]
	if s.Networked() {
		s.println(StyleError, "You are already part of a network.")
		return
	}
	port, err := config.ResolvePort(spec)
	if err != nil {
		s.println(StyleError, "Unable to read port '%s': %v", spec, err)
		return
	}

	s.println(StyleInfo, "Trying to connect to %s:%d...", host, port)
	ip, err := util.ResolveIPv4(ctx, host)
	if err != nil {
		s.println(StyleError, "Unable to read address '%s': %v", host, err)
		return
	}
	conn, err := s.dialer.Dial(ctx, "tcp4", util.FormatAddr(ip.String(), port))
	if err != nil {
		s.setupFailed(err, "Unable to connect to the server %s:%d", host, port)
		return
	}

	rcv := receiver.New(s.log, s.metrics)
	if err := rcv.Attach(conn); err != nil {
		conn.Close()
		s.println(StyleError, "Unable to connect to the server %s:%d: %v", host, port, err)
		return
	}
	if err := s.attach(rcv); err != nil {
		rcv.Close()
		s.println(StyleError, "You are already part of a network.")
		return
	}
	go s.watch(ctx, rcv)

	s.println(StyleInfo, "Joined server %s:%d!", host, port)
	if err := rcv.SendAny(receiver.Broadcast, protocol.Sun, s.Name()); err != nil {
		s.log.Warn("announcing name: %v", err)
	}

	s.clientLoop(rcv)

	s.detach(rcv)
	rcv.Close()
}

func (s *Session) clientLoop(rcv *receiver.Receiver) {
	for {
		_, req, ok := rcv.NextRequest()
		if !ok {
			return
		}
		switch req.Type {
		case protocol.Msg:
			s.chatLine(req.Name, req.Extra)
		case protocol.Srv:
			s.sink.Append("Server> ", StyleInfo)
			s.sink.Append(req.Extra+"\n", StyleInfo)
		case protocol.GameMove:
			if err := s.game.ApplyMove(req.Extra); err != nil {
				s.log.Warn("move from server: %v", err)
			}
		case protocol.GameReset:
			s.game.NotifyGameStart()
		case protocol.Leave:
			s.println(StyleInfo, "Disconnected from server.")
		default:
			s.log.Debug("ignoring %s from server", req)
		}
	}
}
