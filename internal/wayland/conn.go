// Package wayland is a minimal wire-protocol client: just enough of the core
// protocol plus wlr-layer-shell to put a shared-memory surface on screen.
// Requests are only ever sent from the loop goroutine; a single reader
// goroutine decodes events into a channel, so no object state needs locking.
package wayland

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Event is one decoded protocol message, delivered in wire order.
type Event struct {
	Object uint32
	Opcode uint16
	Data   []byte
}

type handler interface {
	handle(opcode uint16, r *reader) error
}

// Conn is a connection to the compositor. The zero object id is never used;
// id 1 is the display.
type Conn struct {
	sock   *net.UnixConn
	events chan Event

	mu      sync.Mutex
	readErr error

	writeErr error

	nextID   uint32
	freeIDs  []uint32
	handlers map[uint32]handler

	Display *Display
}

// Connect dials $XDG_RUNTIME_DIR/$WAYLAND_DISPLAY and starts the event
// reader.
func Connect() (*Conn, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	path := display
	if !filepath.IsAbs(path) {
		if runtimeDir == "" {
			return nil, fmt.Errorf("XDG_RUNTIME_DIR is not set")
		}
		path = filepath.Join(runtimeDir, display)
	}

	raw, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("connect to compositor at %s: %w", path, err)
	}

	c := &Conn{
		sock:     raw.(*net.UnixConn),
		events:   make(chan Event, 64),
		nextID:   2,
		handlers: make(map[uint32]handler),
	}
	c.Display = &Display{}
	c.Display.Object = Object{c: c, id: 1}
	c.handlers[1] = c.Display

	go c.readLoop()
	return c, nil
}

// Events delivers decoded protocol events. The channel closes on a read
// error or when the compositor hangs up; Err() then reports the cause.
func (c *Conn) Events() <-chan Event { return c.events }

// Err reports the first connection failure, read or write side.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return c.readErr
	}
	return c.writeErr
}

func (c *Conn) Close() error {
	return c.sock.Close()
}

// Dispatch routes an event to its object's handler. Events for already
// deleted objects are dropped.
func (c *Conn) Dispatch(ev Event) error {
	h, ok := c.handlers[ev.Object]
	if !ok || h == nil {
		return nil
	}
	return h.handle(ev.Opcode, &reader{d: ev.Data})
}

func (c *Conn) newID() uint32 {
	if n := len(c.freeIDs); n > 0 {
		id := c.freeIDs[n-1]
		c.freeIDs = c.freeIDs[:n-1]
		return id
	}
	id := c.nextID
	c.nextID++
	return id
}

func (c *Conn) register(h handler) Object {
	id := c.newID()
	c.handlers[id] = h
	return Object{c: c, id: id}
}

// release frees an id after the server confirms deletion (wl_display
// delete_id).
func (c *Conn) release(id uint32) {
	if _, ok := c.handlers[id]; !ok {
		return
	}
	delete(c.handlers, id)
	c.freeIDs = append(c.freeIDs, id)
}

func (c *Conn) readLoop() {
	defer close(c.events)

	var acc []byte
	tmp := make([]byte, 4096)
	oob := make([]byte, 256)

	for {
		n, oobn, _, _, err := c.sock.ReadMsgUnix(tmp, oob)
		if err != nil {
			c.mu.Lock()
			c.readErr = fmt.Errorf("wayland socket read: %w", err)
			c.mu.Unlock()
			return
		}

		// None of the interfaces bound here have fd-carrying events, so any
		// ancillary fds are stray and must not leak.
		if oobn > 0 {
			if msgs, perr := unix.ParseSocketControlMessage(oob[:oobn]); perr == nil {
				for i := range msgs {
					if fds, ferr := unix.ParseUnixRights(&msgs[i]); ferr == nil {
						for _, fd := range fds {
							_ = unix.Close(fd)
						}
					}
				}
			}
		}

		acc = append(acc, tmp[:n]...)
		for len(acc) >= 8 {
			object := binary.LittleEndian.Uint32(acc[0:4])
			word := binary.LittleEndian.Uint32(acc[4:8])
			size := int(word >> 16)
			opcode := uint16(word & 0xffff)
			if size < 8 {
				c.mu.Lock()
				c.readErr = fmt.Errorf("wayland message with size %d", size)
				c.mu.Unlock()
				return
			}
			if len(acc) < size {
				break
			}
			data := make([]byte, size-8)
			copy(data, acc[8:size])
			acc = acc[size:]
			c.events <- Event{Object: object, Opcode: opcode, Data: data}
		}
	}
}

// request is an outgoing message under construction. Argument order follows
// the protocol XML; send patches the size into the header.
type request struct {
	c      *Conn
	opcode uint16
	buf    []byte
	fds    []int
}

func (c *Conn) request(object uint32, opcode uint16) *request {
	r := &request{c: c, opcode: opcode, buf: make([]byte, 8, 32)}
	binary.LittleEndian.PutUint32(r.buf[0:4], object)
	return r
}

func (r *request) putUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	r.buf = append(r.buf, b[:]...)
}

func (r *request) putInt32(v int32) {
	r.putUint32(uint32(v))
}

// putString writes a wayland string: 32-bit length including the NUL
// terminator, bytes, padding to 32-bit alignment.
func (r *request) putString(s string) {
	r.putUint32(uint32(len(s) + 1))
	r.buf = append(r.buf, s...)
	r.buf = append(r.buf, 0)
	for len(r.buf)%4 != 0 {
		r.buf = append(r.buf, 0)
	}
}

func (r *request) putFD(fd int) {
	r.fds = append(r.fds, fd)
}

// send records the first write failure on the connection instead of
// returning it; callers batch requests and check Conn.Err once per frame.
func (r *request) send() {
	c := r.c
	if c.writeErr != nil {
		return
	}
	binary.LittleEndian.PutUint32(r.buf[4:8], uint32(len(r.buf))<<16|uint32(r.opcode))

	var err error
	if len(r.fds) > 0 {
		_, _, err = c.sock.WriteMsgUnix(r.buf, unix.UnixRights(r.fds...), nil)
	} else {
		_, err = c.sock.Write(r.buf)
	}
	if err != nil {
		c.writeErr = fmt.Errorf("wayland socket write: %w", err)
	}
}

// reader decodes event arguments. The compositor is trusted to match the
// protocol signatures, so overruns simply yield zero values.
type reader struct {
	d   []byte
	off int
}

func (r *reader) u32() uint32 {
	if r.off+4 > len(r.d) {
		r.off = len(r.d)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.d[r.off:])
	r.off += 4
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

// fixed decodes a signed 24.8 fixed-point value.
func (r *reader) fixed() float64 {
	return float64(r.i32()) / 256.0
}

func (r *reader) str() string {
	n := int(r.u32())
	if n == 0 || r.off+n > len(r.d) {
		return ""
	}
	s := string(r.d[r.off : r.off+n-1])
	r.off += (n + 3) &^ 3
	return s
}
