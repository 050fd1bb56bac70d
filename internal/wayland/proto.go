package wayland

import "fmt"

// Object is the base of every protocol proxy.
type Object struct {
	c  *Conn
	id uint32
}

func (o Object) ID() uint32  { return o.id }
func (o Object) Conn() *Conn { return o.c }

// noEvents satisfies handler for interfaces whose events this client
// ignores.
type noEvents struct{}

func (noEvents) handle(uint16, *reader) error { return nil }

// --- wl_display ---

type Display struct {
	Object
}

func (d *Display) Sync() *Callback {
	cb := &Callback{}
	cb.Object = d.c.register(cb)
	r := d.c.request(d.id, 0)
	r.putUint32(cb.id)
	r.send()
	return cb
}

func (d *Display) GetRegistry() *Registry {
	reg := &Registry{}
	reg.Object = d.c.register(reg)
	r := d.c.request(d.id, 1)
	r.putUint32(reg.id)
	r.send()
	return reg
}

func (d *Display) handle(opcode uint16, r *reader) error {
	switch opcode {
	case 0: // error
		objectID := r.u32()
		code := r.u32()
		msg := r.str()
		return fmt.Errorf("wayland protocol error on object %d (code %d): %s", objectID, code, msg)
	case 1: // delete_id
		d.c.release(r.u32())
	}
	return nil
}

// --- wl_callback ---

type Callback struct {
	Object
	Done func(data uint32)
}

func (cb *Callback) handle(opcode uint16, r *reader) error {
	if opcode == 0 && cb.Done != nil {
		cb.Done(r.u32())
	}
	return nil
}

// --- wl_registry ---

type Registry struct {
	Object
	OnGlobal func(name uint32, iface string, version uint32)
}

func (reg *Registry) handle(opcode uint16, r *reader) error {
	if opcode == 0 && reg.OnGlobal != nil {
		name := r.u32()
		iface := r.str()
		version := r.u32()
		reg.OnGlobal(name, iface, version)
	}
	return nil
}

func (reg *Registry) bind(name uint32, iface string, version uint32, h handler) Object {
	obj := reg.c.register(h)
	r := reg.c.request(reg.id, 0)
	r.putUint32(name)
	r.putString(iface)
	r.putUint32(version)
	r.putUint32(obj.id)
	r.send()
	return obj
}

func (reg *Registry) BindCompositor(name, version uint32) *Compositor {
	c := &Compositor{}
	c.Object = reg.bind(name, "wl_compositor", version, c)
	return c
}

func (reg *Registry) BindShm(name, version uint32) *Shm {
	s := &Shm{}
	s.Object = reg.bind(name, "wl_shm", version, s)
	return s
}

func (reg *Registry) BindSeat(name, version uint32) *Seat {
	s := &Seat{}
	s.Object = reg.bind(name, "wl_seat", version, s)
	return s
}

func (reg *Registry) BindLayerShell(name, version uint32) *LayerShell {
	ls := &LayerShell{}
	ls.Object = reg.bind(name, "zwlr_layer_shell_v1", version, ls)
	return ls
}

// --- wl_compositor ---

type Compositor struct {
	Object
	noEvents
}

func (c *Compositor) CreateSurface() *Surface {
	s := &Surface{}
	s.Object = c.c.register(s)
	r := c.c.request(c.id, 0)
	r.putUint32(s.id)
	r.send()
	return s
}

// --- wl_surface ---

type Surface struct {
	Object
	noEvents
}

func (s *Surface) Destroy() {
	s.c.request(s.id, 0).send()
}

// Attach attaches a buffer (nil detaches) at offset 0,0.
func (s *Surface) Attach(b *Buffer) {
	r := s.c.request(s.id, 1)
	if b != nil {
		r.putUint32(b.id)
	} else {
		r.putUint32(0)
	}
	r.putInt32(0)
	r.putInt32(0)
	r.send()
}

// Frame requests a frame-completion callback for the next commit.
func (s *Surface) Frame() *Callback {
	cb := &Callback{}
	cb.Object = s.c.register(cb)
	r := s.c.request(s.id, 3)
	r.putUint32(cb.id)
	r.send()
	return cb
}

func (s *Surface) Commit() {
	s.c.request(s.id, 6).send()
}

// DamageBuffer marks a region in buffer coordinates (wl_surface version 4).
func (s *Surface) DamageBuffer(x, y, w, h int32) {
	r := s.c.request(s.id, 9)
	r.putInt32(x)
	r.putInt32(y)
	r.putInt32(w)
	r.putInt32(h)
	r.send()
}

// --- wl_shm ---

const FormatARGB8888 = 0

type Shm struct {
	Object
	noEvents // format advertisements are ignored; argb8888 support is mandatory
}

func (s *Shm) CreatePool(fd int, size int32) *ShmPool {
	p := &ShmPool{}
	p.Object = s.c.register(p)
	r := s.c.request(s.id, 0)
	r.putUint32(p.id)
	r.putFD(fd)
	r.putInt32(size)
	r.send()
	return p
}

// --- wl_shm_pool ---

type ShmPool struct {
	Object
	noEvents
}

func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) *Buffer {
	b := &Buffer{}
	b.Object = p.c.register(b)
	r := p.c.request(p.id, 0)
	r.putUint32(b.id)
	r.putInt32(offset)
	r.putInt32(width)
	r.putInt32(height)
	r.putInt32(stride)
	r.putUint32(format)
	r.send()
	return b
}

func (p *ShmPool) Destroy() {
	p.c.request(p.id, 1).send()
}

// --- wl_buffer ---

type Buffer struct {
	Object
	OnRelease func()
}

func (b *Buffer) Destroy() {
	b.c.request(b.id, 0).send()
}

func (b *Buffer) handle(opcode uint16, _ *reader) error {
	if opcode == 0 && b.OnRelease != nil {
		b.OnRelease()
	}
	return nil
}

// --- wl_seat ---

const CapabilityPointer = 1

type Seat struct {
	Object
	OnCapabilities func(caps uint32)
}

func (s *Seat) GetPointer() *Pointer {
	p := &Pointer{}
	p.Object = s.c.register(p)
	r := s.c.request(s.id, 0)
	r.putUint32(p.id)
	r.send()
	return p
}

func (s *Seat) handle(opcode uint16, r *reader) error {
	if opcode == 0 && s.OnCapabilities != nil {
		s.OnCapabilities(r.u32())
	}
	return nil
}

// --- wl_pointer ---

const AxisVertical = 0

type Pointer struct {
	Object
	// OnAxis reports scroll steps; value is in surface-coordinate units.
	OnAxis func(axis uint32, value float64)
}

func (p *Pointer) handle(opcode uint16, r *reader) error {
	if opcode == 4 && p.OnAxis != nil { // axis
		_ = r.u32() // time
		axis := r.u32()
		p.OnAxis(axis, r.fixed())
	}
	return nil
}
