package wayland

// wlr-layer-shell-unstable-v1: compositor-managed surfaces anchored to
// screen edges, outside normal window management.

const (
	LayerBackground uint32 = 0
	LayerBottom     uint32 = 1
	LayerTop        uint32 = 2
	LayerOverlay    uint32 = 3
)

const (
	AnchorTop    uint32 = 1
	AnchorBottom uint32 = 2
	AnchorLeft   uint32 = 4
	AnchorRight  uint32 = 8
)

type LayerShell struct {
	Object
	noEvents
}

// GetLayerSurface wraps a wl_surface; output 0 lets the compositor choose.
func (ls *LayerShell) GetLayerSurface(surface *Surface, layer uint32, namespace string) *LayerSurface {
	l := &LayerSurface{}
	l.Object = ls.c.register(l)
	r := ls.c.request(ls.id, 0)
	r.putUint32(l.id)
	r.putUint32(surface.id)
	r.putUint32(0) // output: compositor's choice
	r.putUint32(layer)
	r.putString(namespace)
	r.send()
	return l
}

type LayerSurface struct {
	Object
	OnConfigure func(serial, width, height uint32)
	OnClosed    func()
}

func (l *LayerSurface) SetSize(width, height uint32) {
	r := l.c.request(l.id, 0)
	r.putUint32(width)
	r.putUint32(height)
	r.send()
}

func (l *LayerSurface) SetAnchor(anchor uint32) {
	r := l.c.request(l.id, 1)
	r.putUint32(anchor)
	r.send()
}

// SetExclusiveZone with -1 keeps the surface from pushing others aside.
func (l *LayerSurface) SetExclusiveZone(zone int32) {
	r := l.c.request(l.id, 2)
	r.putInt32(zone)
	r.send()
}

func (l *LayerSurface) SetMargin(top, right, bottom, left int32) {
	r := l.c.request(l.id, 3)
	r.putInt32(top)
	r.putInt32(right)
	r.putInt32(bottom)
	r.putInt32(left)
	r.send()
}

func (l *LayerSurface) SetKeyboardInteractivity(mode uint32) {
	r := l.c.request(l.id, 4)
	r.putUint32(mode)
	r.send()
}

func (l *LayerSurface) AckConfigure(serial uint32) {
	r := l.c.request(l.id, 6)
	r.putUint32(serial)
	r.send()
}

func (l *LayerSurface) Destroy() {
	l.c.request(l.id, 7).send()
}

func (l *LayerSurface) handle(opcode uint16, r *reader) error {
	switch opcode {
	case 0: // configure
		serial := r.u32()
		width := r.u32()
		height := r.u32()
		if l.OnConfigure != nil {
			l.OnConfigure(serial, width, height)
		}
	case 1: // closed
		if l.OnClosed != nil {
			l.OnClosed()
		}
	}
	return nil
}
