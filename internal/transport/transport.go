// Package transport is canopy-vox's message bus: a TCP-based byte-tagged
// send/receive of messages between peer ranks, implementing the wire
// contract of spec §4.2 exactly (tag 0 control codes, tag 1 packed bulk
// point triples). Real MPI bindings have no Go equivalent in this corpus,
// so the bus is a from-scratch implementation of the contract the spec
// already pins down byte-for-byte; see SPEC_FULL.md §1.
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"time"

	"github.com/mattj23/canopy-vox/internal/geom"
)

// Tag distinguishes message classes (spec §4.2).
type Tag uint8

const (
	TagControl Tag = 0
	TagBulk    Tag = 1
)

// ControlCode is the tag-0 payload (spec §4.2, §4.3).
type ControlCode int32

const (
	ReaderDone ControlCode = iota
	WorkerDone
	StartWorking
)

func (c ControlCode) String() string {
	switch c {
	case ReaderDone:
		return "ReaderDone"
	case WorkerDone:
		return "WorkerDone"
	case StartWorking:
		return "StartWorking"
	default:
		return fmt.Sprintf("ControlCode(%d)", int32(c))
	}
}

// Message is one received frame, tagged with the rank it arrived from.
type Message struct {
	Source int
	Tag    Tag
	// Control is set for tag-0 messages and Bulk for tag-1 messages; a
	// frame with any other tag is never delivered as a Message.
	Control ControlCode
	Bulk    []geom.Vector3d
}

// dialRetries/dialBackoff accommodate the startup race noted in spec §5:
// readers and workers may try to dial the director or each other before
// every peer's listener is up.
const (
	dialRetries = 20
	dialBackoff = 250 * time.Millisecond
)

// Bus is one peer's connection to every other peer, addressed by rank.
type Bus struct {
	rank  int
	peers []string

	mu    sync.Mutex
	conns map[int]net.Conn

	listener net.Listener
	inbox    chan Message
	errs     chan error
	done     chan struct{}
}

// NewBus starts listening on peers[rank] and returns a Bus ready to send
// to and receive from any other rank in peers.
func NewBus(rank int, peers []string) (*Bus, error) {
	if rank < 0 || rank >= len(peers) {
		return nil, fmt.Errorf("transport: rank %d out of range for %d peers", rank, len(peers))
	}

	ln, err := net.Listen("tcp", peers[rank])
	if err != nil {
		return nil, fmt.Errorf("transport: cannot listen on %q: %w", peers[rank], err)
	}

	b := &Bus{
		rank:     rank,
		peers:    append([]string(nil), peers...),
		conns:    make(map[int]net.Conn),
		listener: ln,
		inbox:    make(chan Message, 256),
		errs:     make(chan error, 8),
		done:     make(chan struct{}),
	}
	go b.acceptLoop()
	return b, nil
}

func (b *Bus) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.done:
			default:
				select {
				case b.errs <- fmt.Errorf("transport: accept failed: %w", err):
				default:
				}
			}
			return
		}
		go b.readConn(conn)
	}
}

func (b *Bus) readConn(conn net.Conn) {
	r := bufio.NewReader(conn)

	var rankBuf [4]byte
	if _, err := io.ReadFull(r, rankBuf[:]); err != nil {
		return
	}
	source := int(int32(binary.LittleEndian.Uint32(rankBuf[:])))

	for {
		msg, err := readFrame(r, source)
		if err != nil {
			return
		}
		select {
		case b.inbox <- msg:
		case <-b.done:
			return
		}
	}
}

func (b *Bus) getConn(peerRank int) (net.Conn, error) {
	b.mu.Lock()
	if conn, ok := b.conns[peerRank]; ok {
		b.mu.Unlock()
		return conn, nil
	}
	b.mu.Unlock()

	var conn net.Conn
	var err error
	for attempt := 0; attempt < dialRetries; attempt++ {
		conn, err = net.Dial("tcp", b.peers[peerRank])
		if err == nil {
			break
		}
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: cannot dial rank %d at %q: %w", peerRank, b.peers[peerRank], err)
	}

	var rankBuf [4]byte
	binary.LittleEndian.PutUint32(rankBuf[:], uint32(int32(b.rank)))
	if _, err := conn.Write(rankBuf[:]); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: handshake with rank %d failed: %w", peerRank, err)
	}

	b.mu.Lock()
	b.conns[peerRank] = conn
	b.mu.Unlock()
	return conn, nil
}

// SendControl sends a tag-0 control message to peerRank.
func (b *Bus) SendControl(peerRank int, code ControlCode) error {
	conn, err := b.getConn(peerRank)
	if err != nil {
		return err
	}
	var payload [4]byte
	binary.LittleEndian.PutUint32(payload[:], uint32(int32(code)))
	return writeFrame(conn, TagControl, payload[:])
}

// SendBulk sends a tag-1 bulk message carrying points to peerRank.
func (b *Bus) SendBulk(peerRank int, points []geom.Vector3d) error {
	conn, err := b.getConn(peerRank)
	if err != nil {
		return err
	}
	return writeFrame(conn, TagBulk, PackBulk(points))
}

// Probe blocks until a message arrives from any peer, or the bus is closed.
func (b *Bus) Probe() (Message, error) {
	select {
	case msg := <-b.inbox:
		return msg, nil
	case err := <-b.errs:
		return Message{}, err
	case <-b.done:
		return Message{}, fmt.Errorf("transport: bus closed")
	}
}

// Close releases the listener and every connection this bus dialed.
// Connections accepted from other peers are not tracked and are not
// closed here.
func (b *Bus) Close() error {
	close(b.done)
	b.listener.Close()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		c.Close()
	}
	return nil
}

// writeFrame writes [tag byte][uint32 length][payload], matching the
// little-endian convention spec §4.8 already mandates for scratch files.
func writeFrame(w io.Writer, tag Tag, payload []byte) error {
	header := make([]byte, 5)
	header[0] = byte(tag)
	binary.LittleEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("transport: write header: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("transport: write payload: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, source int) (Message, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return Message{}, err
	}
	tag := Tag(header[0])
	length := binary.LittleEndian.Uint32(header[1:])

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, err
		}
	}

	switch tag {
	case TagControl:
		if len(payload) != 4 {
			return Message{}, fmt.Errorf("transport: protocol error: control payload must be 4 bytes, got %d", len(payload))
		}
		code := ControlCode(int32(binary.LittleEndian.Uint32(payload)))
		return Message{Source: source, Tag: TagControl, Control: code}, nil
	case TagBulk:
		points, err := UnpackBulk(payload)
		if err != nil {
			return Message{}, err
		}
		return Message{Source: source, Tag: TagBulk, Bulk: points}, nil
	default:
		return Message{}, fmt.Errorf("transport: protocol error: unexpected tag %d", tag)
	}
}

// PackBulk packs points into the wire format spec §4.2 mandates: a
// sequence of float64 triples. This implementation packs each triple as
// (z, y, x) and UnpackBulk decodes the same order, so the convention is
// symmetric end-to-end as spec §9's open question requires.
func PackBulk(points []geom.Vector3d) []byte {
	buf := make([]byte, len(points)*24)
	for i, p := range points {
		off := i * 24
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(p.Z))
		binary.LittleEndian.PutUint64(buf[off+8:], math.Float64bits(p.Y))
		binary.LittleEndian.PutUint64(buf[off+16:], math.Float64bits(p.X))
	}
	return buf
}

// UnpackBulk decodes the wire format PackBulk produces. A payload whose
// length is not a multiple of 24 bytes is a Protocol error (spec §7).
func UnpackBulk(payload []byte) ([]geom.Vector3d, error) {
	if len(payload)%24 != 0 {
		return nil, fmt.Errorf("transport: protocol error: bulk payload length %d is not a multiple of 24", len(payload))
	}
	n := len(payload) / 24
	points := make([]geom.Vector3d, n)
	for i := 0; i < n; i++ {
		off := i * 24
		z := math.Float64frombits(binary.LittleEndian.Uint64(payload[off:]))
		y := math.Float64frombits(binary.LittleEndian.Uint64(payload[off+8:]))
		x := math.Float64frombits(binary.LittleEndian.Uint64(payload[off+16:]))
		points[i] = geom.Vector3d{X: x, Y: y, Z: z}
	}
	return points, nil
}
