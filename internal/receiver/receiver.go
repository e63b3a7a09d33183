// Package receiver multiplexes the sockets of a chat network into one
// ordered stream of decoded requests.
//
// A Receiver runs either as a server (it owns a listener and accepts
// any number of peers) or as a client (it owns exactly one connection
// to a server).  Every socket gets a reader goroutine that forwards raw
// bytes to a single owner goroutine, the loop.  The loop is the only
// code that touches the peer table, the line buffers and the queue of
// decoded requests; every other goroutine talks to it over channels.
package receiver

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	ncerr "hivechat/internal/errors"
	"hivechat/internal/metrics"
	"hivechat/internal/protocol"
	"hivechat/util"
)

// ID identifies a connection within one Receiver.  IDs start at 1.
type ID uint64

// Broadcast addresses every connected peer.
const Broadcast ID = 0

// AnonName is the name a peer carries until it sends SUN.
const AnonName = "Anon"

// ── State ────────────────────────────────────────────────────────────

// State is the lifecycle stage of a Receiver.
type State int32

const (
	Uninitialized State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ── Entries ──────────────────────────────────────────────────────────

// Entry is a snapshot of one connected peer.
type Entry struct {
	ID   ID
	Name string
	Addr string
}

type peer struct {
	Entry
	conn net.Conn
	buf  lineBuffer
}

type eventKind int

const (
	evAccept eventKind = iota
	evData
	evEnd
)

// event is what the accept and reader goroutines hand to the loop.
type event struct {
	kind eventKind
	id   ID
	conn net.Conn
	data []byte
	err  error
}

type delivery struct {
	entry Entry
	req   protocol.Request
}

// ── Receiver ─────────────────────────────────────────────────────────

// Receiver owns a set of sockets and yields the requests read from
// them.  The zero value is not usable; call New.
type Receiver struct {
	log     *util.Logger
	metrics *metrics.Collector

	mu    sync.Mutex // serialises Listen/Attach/Close
	state atomic.Int32

	events chan event
	calls  chan func()
	out    chan delivery
	quit   chan struct{}
	done   chan struct{}
	stop   sync.Once
	wg     sync.WaitGroup // accept and reader goroutines

	// Owned by the loop.
	ln      net.Listener
	server  bool
	peers   map[ID]*peer
	order   []ID
	lastID  ID
	pending []delivery
}

// New returns an uninitialised Receiver.  Both arguments may be nil.
func New(log *util.Logger, m *metrics.Collector) *Receiver {
	return &Receiver{
		log:     util.OrDiscard(log).Named("receiver"),
		metrics: m,
		events:  make(chan event),
		calls:   make(chan func()),
		out:     make(chan delivery),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		peers:   make(map[ID]*peer),
	}
}

// State returns the current lifecycle stage.
func (r *Receiver) State() State { return State(r.state.Load()) }

// Done is closed once the receiver is torn down.
func (r *Receiver) Done() <-chan struct{} { return r.done }

// Listen starts server mode on ln.  The receiver takes ownership of
// the listener and closes it on teardown.
func (r *Receiver) Listen(ln net.Listener) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStartable(); err != nil {
		return err
	}

	r.ln = ln
	r.server = true
	r.state.Store(int32(Active))
	r.log.Verbose("listening on %s", ln.Addr())

	r.wg.Add(1)
	go r.acceptLoop(ln)
	go r.loop()
	return nil
}

// Attach starts client mode with conn as the only peer.  The stream
// ends after that peer disconnects.
func (r *Receiver) Attach(conn net.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkStartable(); err != nil {
		return err
	}

	r.addPeer(conn)
	r.state.Store(int32(Active))
	r.log.Verbose("attached to %s", conn.RemoteAddr())

	go r.loop()
	return nil
}

func (r *Receiver) checkStartable() error {
	switch r.State() {
	case Active:
		return ncerr.ErrAlreadyActive
	case Closed:
		return ncerr.ErrReceiverClosed
	}
	return nil
}

// Addr returns the listening address in server mode, nil otherwise.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ln == nil {
		return nil
	}
	return r.ln.Addr()
}

// Close tears the receiver down: the listener and every socket are
// closed and queued requests are discarded.  Close on a closed
// receiver is a no-op.
func (r *Receiver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.State() {
	case Uninitialized:
		r.state.Store(int32(Closed))
		r.stop.Do(func() { close(r.quit) })
		close(r.done)
	case Active:
		r.stop.Do(func() { close(r.quit) })
		<-r.done
	}
	return nil
}

// NextRequest blocks until a request is available.  It reports false
// once the receiver is torn down (or was never started).
//
// Besides decoded requests it yields a synthetic JOIN named AnonName
// for every accepted connection and a synthetic LEAVE, carrying the
// peer's last name, for every connection that ends.
func (r *Receiver) NextRequest() (Entry, protocol.Request, bool) {
	if r.State() == Uninitialized {
		return Entry{}, protocol.Request{}, false
	}
	select {
	case d := <-r.out:
		return d.entry, d.req, true
	case <-r.done:
		return Entry{}, protocol.Request{}, false
	}
}

// ── Sending ──────────────────────────────────────────────────────────

// Send serialises req once and writes it to the peer to, or to every
// peer when to is Broadcast.  Broadcast write failures are logged per
// peer and not returned.
func (r *Receiver) Send(to ID, req protocol.Request) error {
	line, err := protocol.Serialize(req)
	if err != nil {
		return err
	}
	var werr error
	if err := r.call(func() { werr = r.write(to, Broadcast, line) }); err != nil {
		return err
	}
	return werr
}

// SendExcept broadcasts req to every peer but exclude.
func (r *Receiver) SendExcept(req protocol.Request, exclude ID) error {
	line, err := protocol.Serialize(req)
	if err != nil {
		return err
	}
	return r.call(func() { r.write(Broadcast, exclude, line) }) //nolint:errcheck
}

// SendAny builds a request of type t from fields and sends it.
func (r *Receiver) SendAny(to ID, t protocol.Type, fields ...string) error {
	req, err := protocol.New(t, fields...)
	if err != nil {
		return err
	}
	return r.Send(to, req)
}

// SendFormatted sends a single-field request whose field is formatted
// like fmt.Sprintf.
func (r *Receiver) SendFormatted(to ID, t protocol.Type, format string, args ...interface{}) error {
	return r.SendAny(to, t, fmt.Sprintf(format, args...))
}

// ── Entry bookkeeping ────────────────────────────────────────────────

// IndexOf returns the position of id in the current entry order, or -1
// when it is not connected.
func (r *Receiver) IndexOf(id ID) int {
	idx := -1
	r.call(func() { //nolint:errcheck
		for i, e := range r.order {
			if e == id {
				idx = i
				return
			}
		}
	})
	return idx
}

// Rename sets the display name of id.
func (r *Receiver) Rename(id ID, name string) error {
	if !protocol.IsValidName(name) {
		return ncerr.Protocol(name, ncerr.ErrInvalidName)
	}
	var found bool
	if err := r.call(func() {
		if p, ok := r.peers[id]; ok {
			p.Name = name
			found = true
		}
	}); err != nil {
		return err
	}
	if !found {
		return ncerr.ErrUnknownEntry
	}
	return nil
}

// Remove disconnects id.  No LEAVE is synthesised for it.
func (r *Receiver) Remove(id ID) error {
	var found bool
	if err := r.call(func() {
		if p, ok := r.peers[id]; ok {
			r.dropPeer(p)
			found = true
		}
	}); err != nil {
		return err
	}
	if !found {
		return ncerr.ErrUnknownEntry
	}
	return nil
}

// Entries returns the connected peers in connection order.
func (r *Receiver) Entries() []Entry {
	var out []Entry
	r.call(func() { //nolint:errcheck
		out = make([]Entry, 0, len(r.order))
		for _, id := range r.order {
			out = append(out, r.peers[id].Entry)
		}
	})
	return out
}

// call runs fn on the loop and waits for it to finish.
func (r *Receiver) call(fn func()) error {
	if r.State() == Uninitialized {
		return ncerr.ErrNotActive
	}
	finished := make(chan struct{})
	select {
	case r.calls <- func() { fn(); close(finished) }:
	case <-r.done:
		return ncerr.ErrReceiverClosed
	}
	<-finished
	return nil
}

// ── Loop ─────────────────────────────────────────────────────────────

func (r *Receiver) loop() {
	defer r.teardown()

	for {
		var out chan delivery
		var next delivery
		if len(r.pending) > 0 {
			out, next = r.out, r.pending[0]
			// Deliver under the peer's current name, not the one it
			// had when the line was decoded.
			if p, ok := r.peers[next.entry.ID]; ok {
				next.entry.Name = p.Name
			}
		} else if !r.server && len(r.order) == 0 {
			r.log.Verbose("server connection gone, ending stream")
			return
		}

		select {
		case ev := <-r.events:
			r.handle(ev)
		case fn := <-r.calls:
			fn()
		case out <- next:
			r.pending[0] = delivery{}
			r.pending = r.pending[1:]
		case <-r.quit:
			return
		}
	}
}

func (r *Receiver) handle(ev event) {
	switch ev.kind {
	case evAccept:
		p := r.addPeer(ev.conn)
		r.log.Info("connection %d from %s", p.ID, p.Addr)
		r.enqueue(p.Entry, protocol.Request{Time: time.Now(), Type: protocol.Join, Name: AnonName})

	case evData:
		p, ok := r.peers[ev.id]
		if !ok {
			return
		}
		r.metrics.BytesReceived(int64(len(ev.data)))
		p.buf.feed(ev.data,
			func(line []byte) { r.decode(p, line) },
			func() {
				r.metrics.RequestDropped()
				r.log.Verbose("connection %d: %v", p.ID, ncerr.ErrLineTooLong)
			})

	case evEnd:
		p, ok := r.peers[ev.id]
		if !ok {
			return
		}
		if ev.err != nil {
			r.log.Verbose("connection %d: %v", p.ID, ev.err)
		}
		r.log.Info("connection %d (%s) closed", p.ID, p.Name)
		r.dropPeer(p)
		r.enqueue(p.Entry, protocol.Request{Time: time.Now(), Type: protocol.Leave, Name: p.Name})
	}
}

func (r *Receiver) decode(p *peer, line []byte) {
	if len(line) == 0 || (len(line) == 1 && line[0] == '\n') {
		return
	}
	req, err := protocol.Deserialize(line)
	if err != nil {
		r.metrics.RequestDropped()
		r.log.Verbose("connection %d: dropping line: %v", p.ID, err)
		return
	}
	r.metrics.RequestReceived()
	r.log.Debug("connection %d: %s", p.ID, req)
	r.enqueue(p.Entry, req)
}

func (r *Receiver) enqueue(e Entry, req protocol.Request) {
	r.pending = append(r.pending, delivery{entry: e, req: req})
}

// write sends line to one peer, or to all peers but exclude when to is
// Broadcast.  Only unicast failures are returned.
func (r *Receiver) write(to, exclude ID, line []byte) error {
	if to != Broadcast {
		p, ok := r.peers[to]
		if !ok {
			return ncerr.ErrUnknownEntry
		}
		return r.writePeer(p, line)
	}
	for _, id := range r.order {
		if id == exclude {
			continue
		}
		if err := r.writePeer(r.peers[id], line); err != nil {
			r.metrics.RecordError(err.Error())
			r.log.Warn("%v", err)
		}
	}
	return nil
}

func (r *Receiver) writePeer(p *peer, line []byte) error {
	n, err := p.conn.Write(line)
	r.metrics.BytesSent(int64(n))
	if err != nil {
		return ncerr.Wrap("write", p.Addr, err)
	}
	r.metrics.RequestSent()
	return nil
}

// ── Peer lifecycle ───────────────────────────────────────────────────

// addPeer registers conn and starts its reader.  Called by the loop, or
// by Attach before the loop exists.
func (r *Receiver) addPeer(conn net.Conn) *peer {
	r.lastID++
	p := &peer{
		Entry: Entry{ID: r.lastID, Name: AnonName, Addr: conn.RemoteAddr().String()},
		conn:  conn,
	}
	r.peers[p.ID] = p
	r.order = append(r.order, p.ID)
	r.metrics.ConnectionOpened()

	r.wg.Add(1)
	go r.readLoop(p.ID, conn)
	return p
}

func (r *Receiver) dropPeer(p *peer) {
	delete(r.peers, p.ID)
	for i, id := range r.order {
		if id == p.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if n := p.buf.pending(); n > 0 {
		r.log.Debug("connection %d: discarding %d unterminated bytes", p.ID, n)
	}
	p.conn.Close()
	r.metrics.ConnectionClosed()
}

func (r *Receiver) teardown() {
	r.stop.Do(func() { close(r.quit) })
	r.state.Store(int32(Closed))

	if r.ln != nil {
		r.ln.Close()
	}
	for _, id := range r.order {
		p := r.peers[id]
		p.conn.Close()
		r.metrics.ConnectionClosed()
	}
	r.peers = nil
	r.order = nil
	r.pending = nil

	r.wg.Wait()
	r.log.Verbose("closed")
	close(r.done)
}

// ── Socket goroutines ────────────────────────────────────────────────

func (r *Receiver) acceptLoop(ln net.Listener) {
	defer r.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !ncerr.IsClosed(err) {
				r.metrics.RecordError(err.Error())
				r.log.Error("%v", ncerr.Wrap("accept", ln.Addr().String(), err))
			}
			return
		}
		select {
		case r.events <- event{kind: evAccept, conn: conn}:
		case <-r.quit:
			conn.Close()
			return
		}
	}
}

func (r *Receiver) readLoop(id ID, conn net.Conn) {
	defer r.wg.Done()
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	for {
		n, err := conn.Read(*buf)
		if n > 0 {
			data := append([]byte(nil), (*buf)[:n]...)
			select {
			case r.events <- event{kind: evData, id: id, data: data}:
			case <-r.quit:
				return
			}
		}
		if err != nil {
			if ncerr.IsClosed(err) || ncerr.Is(err, io.EOF) {
				err = nil
			}
			select {
			case r.events <- event{kind: evEnd, id: id, err: err}:
			case <-r.quit:
			}
			return
		}
	}
}
