package chat

import (
	"fmt"
	"strings"
	"sync"
)

// Game is the board game collaborator.  The chat never interprets
// moves; it only feeds them in and replays them out.
type Game interface {
	// ApplyMove applies an encoded move received from the network.
	ApplyMove(move string) error
	// ReplayMoves emits every move of the current game in order, so a
	// newcomer can rebuild the board.  Replay stops at the first emit
	// error, which is returned.
	ReplayMoves(emit func(move string) error) error
	// NotifyGameStart resets the board for a new game.
	NotifyGameStart()
}

// MoveLog is the default Game: it records moves without validating
// them and reports them to a sink.
type MoveLog struct {
	mu    sync.Mutex
	moves []string
	games int
	sink  Sink
}

// NewMoveLog returns an empty log.  sink may be nil.
func NewMoveLog(sink Sink) *MoveLog { return &MoveLog{sink: sink} }

func (g *MoveLog) ApplyMove(move string) error {
	move = strings.TrimSpace(move)
	g.mu.Lock()
	g.moves = append(g.moves, move)
	n := len(g.moves)
	g.mu.Unlock()

	if g.sink != nil {
		g.sink.Append(formatMove(n, move), StyleInfo)
	}
	return nil
}

func (g *MoveLog) ReplayMoves(emit func(move string) error) error {
	for _, m := range g.Moves() {
		if err := emit(m); err != nil {
			return err
		}
	}
	return nil
}

func (g *MoveLog) NotifyGameStart() {
	g.mu.Lock()
	g.moves = nil
	g.games++
	g.mu.Unlock()

	if g.sink != nil {
		g.sink.Append("A new game has started!\n", StyleInfo)
	}
}

// Moves returns the moves of the current game.
func (g *MoveLog) Moves() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.moves...)
}

// Games returns how many games were started.
func (g *MoveLog) Games() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.games
}

func formatMove(n int, move string) string {
	return fmt.Sprintf("Move %d: %s\n", n, move)
}
