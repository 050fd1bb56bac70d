package wayland

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PoolBuffer is one slot in a BufferPool. Ownership transfers to the
// compositor on commit and back on the wl_buffer release event; busy tracks
// whose turn it is.
type PoolBuffer struct {
	Buf  *Buffer
	Data []byte
	busy bool
}

func (pb *PoolBuffer) MarkBusy() { pb.busy = true }

// BufferPool is a double-buffered shared-memory pool backed by a memfd.
type BufferPool struct {
	pool    *ShmPool
	mapped  []byte
	buffers [2]*PoolBuffer

	Width  int32
	Height int32
	Stride int32

	// OnRelease fires after a wl_buffer.release returns a slot to the pool.
	OnRelease func()
}

// NewBufferPool allocates, maps, and shares width*height*4*2 bytes with the
// compositor, carved into two argb8888 buffers.
func NewBufferPool(shm *Shm, width, height int32) (*BufferPool, error) {
	stride := width * 4
	slot := int(stride * height)
	size := slot * 2

	fd, err := unix.MemfdCreate("waysky-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate shm to %d: %w", size, err)
	}
	mapped, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap shm: %w", err)
	}

	p := &BufferPool{
		pool:   shm.CreatePool(fd, int32(size)),
		mapped: mapped,
		Width:  width,
		Height: height,
		Stride: stride,
	}
	for i := range p.buffers {
		pb := &PoolBuffer{Data: mapped[i*slot : (i+1)*slot]}
		pb.Buf = p.pool.CreateBuffer(int32(i*slot), width, height, stride, FormatARGB8888)
		pb.Buf.OnRelease = func() {
			pb.busy = false
			if p.OnRelease != nil {
				p.OnRelease()
			}
		}
		p.buffers[i] = pb
	}

	// The compositor holds its own reference to the pool fd after
	// create_pool; ours is no longer needed once mapped.
	unix.Close(fd)
	return p, nil
}

// Next returns a buffer the compositor is not holding, or nil if both are
// still in flight.
func (p *BufferPool) Next() *PoolBuffer {
	for _, pb := range p.buffers {
		if !pb.busy {
			return pb
		}
	}
	return nil
}

// Destroy releases protocol objects and the shared mapping.
func (p *BufferPool) Destroy() {
	for _, pb := range p.buffers {
		if pb != nil && pb.Buf != nil {
			pb.Buf.Destroy()
		}
	}
	if p.pool != nil {
		p.pool.Destroy()
	}
	if p.mapped != nil {
		_ = unix.Munmap(p.mapped)
		p.mapped = nil
	}
}
