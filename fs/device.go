package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	"github.com/sharedcode/lss"
)

// Callback is the completion ABI of §6: errorCode is 0 on success, the low
// 16 bits of the OS error on an I/O failure, or 0xFFFFFFFF for any other
// failure; bytesTransferred is the count actually moved. Invoked exactly
// once per issued I/O, from a worker goroutine; the one exception is an I/O
// issued after Dispose, whose callback (0xFFFFFFFF, 0) runs on the issuing
// goroutine before ReadAsync/WriteAsync returns.
type Callback func(errorCode uint32, bytesTransferred uint32, userCtx any)

// DeviceOption configures a SegmentedDevice at construction time.
type DeviceOption func(*deviceConfig)

type deviceConfig struct {
	segmentSize      int64 // 0 means unbounded
	poolCapacity     int
	workers          int
	queueDepth       int
	recoverDevice    bool
	deleteOnClose    bool
	preallocateFile  bool
	osReadBuffering  bool
}

// WithSegmentSize fixes each segment's logical size; 0 leaves segments
// unbounded (§3 Segment).
func WithSegmentSize(size int64) DeviceOption {
	return func(c *deviceConfig) { c.segmentSize = size }
}

// WithPoolCapacity overrides the per-segment, per-direction handle throttle
// (default DefaultCapacity, §3 HandlePool).
func WithPoolCapacity(capacity int) DeviceOption {
	return func(c *deviceConfig) { c.poolCapacity = capacity }
}

// WithRecovery enables startup recovery: enumerate existing segment files
// and compute start_segment/end_segment (§4.3).
func WithRecovery(enabled bool) DeviceOption {
	return func(c *deviceConfig) { c.recoverDevice = enabled }
}

// WithDeleteOnClose causes Reset/Dispose to remove segment files from disk.
func WithDeleteOnClose(enabled bool) DeviceOption {
	return func(c *deviceConfig) { c.deleteOnClose = enabled }
}

// WithPreallocateFile causes newly opened write handles to be resized to
// the fixed segment size immediately (§4.3 Handle construction).
func WithPreallocateFile(enabled bool) DeviceOption {
	return func(c *deviceConfig) { c.preallocateFile = enabled }
}

// WithOSReadBuffering disables direct I/O on read handles, leaving page
// cache buffering in effect (§4.3 Handle construction).
func WithOSReadBuffering(enabled bool) DeviceOption {
	return func(c *deviceConfig) { c.osReadBuffering = enabled }
}

// WithWorkers sets the fixed worker pool size and its bounded queue depth
// (§9 "Task Pool").
func WithWorkers(workers, queueDepth int) DeviceOption {
	return func(c *deviceConfig) { c.workers = workers; c.queueDepth = queueDepth }
}

// SegmentedDevice is the log-structured device of §4.3: it maps a
// segment_id to a (ReadPool, WritePool) pair, serves async positioned I/O
// with completion callbacks, tracks in-flight counts, and handles segment
// removal and recovery.
type SegmentedDevice struct {
	base   string
	cfg    deviceConfig
	table  *SegmentTable
	pio    PositionedIO
	bufs   *BufferPool
	pool   *workerPool
	cancel context.CancelFunc

	inFlight     int64
	startSegment int64
	endSegment   int64
	disposed     int32
}

// NewSegmentedDevice constructs a device rooted at base ("<dir>/<name>";
// segment files are named "<base>.<segment_id>"). The base's directory is
// created if absent (§6).
func NewSegmentedDevice(base string, opts ...DeviceOption) (*SegmentedDevice, error) {
	cfg := deviceConfig{poolCapacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, lss.Error{Code: lss.IoError, Err: err}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &SegmentedDevice{
		base:   base,
		cfg:    cfg,
		table:  NewSegmentTable(),
		pio:    NewPositionedIO(),
		bufs:   NewBufferPool(),
		pool:   newWorkerPool(ctx, cfg.workers, cfg.queueDepth),
		cancel: cancel,
	}

	if cfg.recoverDevice {
		res, err := Recover(base)
		if err != nil {
			cancel()
			return nil, lss.Error{Code: lss.IoError, Err: err}
		}
		d.startSegment = res.StartSegment
		d.endSegment = res.EndSegment
	}

	return d, nil
}

// StartSegment returns the recovered (or last-set) start segment id.
func (d *SegmentedDevice) StartSegment() int64 { return atomic.LoadInt64(&d.startSegment) }

// EndSegment returns the recovered (or last-set) end segment id.
func (d *SegmentedDevice) EndSegment() int64 { return atomic.LoadInt64(&d.endSegment) }

// InFlightCount returns the number of I/Os currently issued but not yet
// completed.
func (d *SegmentedDevice) InFlightCount() int64 { return atomic.LoadInt64(&d.inFlight) }

// Throttle always reports false: the handle pool is the sole throttle, per
// §4.3.
func (d *SegmentedDevice) Throttle() bool { return false }

func (d *SegmentedDevice) segmentPath(segmentID int64) string {
	return segmentFilename(d.base, segmentID)
}

func (d *SegmentedDevice) getOrAddSegment(segmentID int64) (*segmentPools, error) {
	sp, ok := d.table.getOrAdd(segmentID, func() *segmentPools {
		return &segmentPools{
			read:  NewHandlePool(d.cfg.poolCapacity, func() (*os.File, error) { return d.openReadHandle(segmentID) }),
			write: NewHandlePool(d.cfg.poolCapacity, func() (*os.File, error) { return d.openWriteHandle(segmentID) }),
		}
	})
	if !ok {
		return nil, lss.Error{Code: lss.PoolDisposed, Err: errPoolDisposed}
	}
	return sp, nil
}

// openReadHandle opens segmentID for reading, enabling direct I/O unless
// os_read_buffering was requested (§4.3 Handle construction).
func (d *SegmentedDevice) openReadHandle(segmentID int64) (*os.File, error) {
	var f *os.File
	err := lss.Retry(context.Background(), func(context.Context) error {
		var e error
		f, e = os.OpenFile(d.segmentPath(segmentID), os.O_RDONLY|os.O_CREATE, 0644)
		return e
	}, nil)
	if err != nil {
		return nil, err
	}
	if !d.cfg.osReadBuffering {
		d.pio.EnableDirect(f)
	}
	return f, nil
}

// openWriteHandle opens segmentID for writing, enabling direct I/O and
// preallocating the fixed segment size when configured (§4.3).
func (d *SegmentedDevice) openWriteHandle(segmentID int64) (*os.File, error) {
	var f *os.File
	err := lss.Retry(context.Background(), func(context.Context) error {
		var e error
		f, e = os.OpenFile(d.segmentPath(segmentID), os.O_RDWR|os.O_CREATE, 0644)
		return e
	}, nil)
	if err != nil {
		return nil, err
	}
	d.pio.EnableDirect(f)
	if d.cfg.preallocateFile && d.cfg.segmentSize > 0 {
		if err := f.Truncate(d.cfg.segmentSize); err != nil {
			f.Close()
			return nil, lss.Error{Code: lss.IoError, Err: err}
		}
	}
	return f, nil
}

// isAligned reports whether buf's starting address is sector-aligned.
// Offset and length alignment are checked separately since only the
// caller's pointer is a staging concern (§4.1 "Buffer alignment is the
// caller's responsibility").
func isAligned(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&buf[0]))%sectorSize == 0
}

// ReadAsync issues a positioned read of length bytes from segmentID at
// srcOffset into dst, invoking cb exactly once on completion (§4.3).
func (d *SegmentedDevice) ReadAsync(ctx context.Context, segmentID int64, srcOffset int64, dst []byte, length int, cb Callback, userCtx any) {
	d.issueAsync(ctx, segmentID, true, dst, srcOffset, length, cb, userCtx)
}

// WriteAsync issues a positioned write of length bytes from src to
// segmentID at dstOffset, invoking cb exactly once on completion (§4.3).
func (d *SegmentedDevice) WriteAsync(ctx context.Context, src []byte, segmentID int64, dstOffset int64, length int, cb Callback, userCtx any) {
	d.issueAsync(ctx, segmentID, false, src, dstOffset, length, cb, userCtx)
}

func (d *SegmentedDevice) issueAsync(ctx context.Context, segmentID int64, isRead bool, buf []byte, offset int64, length int, cb Callback, userCtx any) {
	atomic.AddInt64(&d.inFlight, 1)

	sp, err := d.getOrAddSegment(segmentID)
	if err != nil {
		atomic.AddInt64(&d.inFlight, -1)
		cb(0xFFFFFFFF, 0, userCtx)
		return
	}
	pool := sp.write
	if isRead {
		pool = sp.read
	}

	run := func(handle *os.File) {
		defer pool.Return(handle)
		completed := false
		defer func() {
			if r := recover(); r != nil && !completed {
				atomic.AddInt64(&d.inFlight, -1)
				cb(0xFFFFFFFF, 0, userCtx)
			}
		}()
		n, ioErr := d.performIO(handle, isRead, buf, offset, length)
		completed = true
		atomic.AddInt64(&d.inFlight, -1)
		cb(lss.CallbackErrorCode(ioErr), uint32(n), userCtx)
	}

	if handle, ok := pool.TryGet(); ok {
		d.pool.submit(func() { d.safeRun(run, handle) })
		return
	}

	d.pool.submit(func() {
		handle, err := pool.GetAsync(ctx)
		if err != nil {
			atomic.AddInt64(&d.inFlight, -1)
			cb(0xFFFFFFFF, 0, userCtx)
			return
		}
		d.safeRun(run, handle)
	})
}

// safeRun recovers a panic from an I/O task so a single failing task never
// takes down the worker pool. run itself defers the handle's return, so the
// pool never loses a handle even if performIO panics.
func (d *SegmentedDevice) safeRun(run func(*os.File), handle *os.File) {
	defer func() {
		recover()
	}()
	run(handle)
}

// performIO does the actual positioned read/write. Writes, and reads unless
// os_read_buffering was requested, run in direct-I/O mode and therefore
// require a sector-aligned offset and length (§5 S5): a caller that
// violates that is refused rather than silently padded. A caller-supplied
// buffer whose address happens not to be aligned (common for Go-managed
// slices) is staged through an aligned buffer of the same length instead —
// only the buffer address is the device's concern, not the length, so
// staging never changes what offset/length mean on disk (§4.3 step 4-5).
func (d *SegmentedDevice) performIO(handle *os.File, isRead bool, buf []byte, offset int64, length int) (int, error) {
	target := buf[:length]

	requireAligned := !isRead || !d.cfg.osReadBuffering
	if requireAligned && (offset%sectorSize != 0 || length%sectorSize != 0) {
		return 0, lss.Error{Code: lss.IoError, Err: errUnalignedIO}
	}
	if !requireAligned || isAligned(target) {
		return d.doIO(handle, isRead, target, offset)
	}

	staged := d.bufs.Get(length)
	defer d.bufs.Put(staged)
	staged = staged[:length]

	if !isRead {
		copy(staged, target)
	}
	n, err := d.doIO(handle, isRead, staged, offset)
	if isRead && err == nil {
		copy(target, staged[:n])
	}
	return n, err
}

func (d *SegmentedDevice) doIO(handle *os.File, isRead bool, buf []byte, offset int64) (int, error) {
	if isRead {
		n, err := d.pio.Pread(handle, buf, offset)
		return n, err
	}
	n, err := d.pio.Pwrite(handle, buf, offset)
	if err != nil {
		return n, err
	}
	if err := handle.Sync(); err != nil {
		return n, err
	}
	return n, nil
}

// GetFileSize returns segmentID's size in bytes: the fixed segment size if
// configured, else the live file length queried through a borrowed read
// handle (never leaked) (§4.3).
func (d *SegmentedDevice) GetFileSize(ctx context.Context, segmentID int64) (int64, error) {
	if d.cfg.segmentSize > 0 {
		return d.cfg.segmentSize, nil
	}
	sp, err := d.getOrAddSegment(segmentID)
	if err != nil {
		return 0, err
	}
	handle, err := sp.read.GetAsync(ctx)
	if err != nil {
		return 0, err
	}
	defer sp.read.Return(handle)
	info, err := handle.Stat()
	if err != nil {
		return 0, lss.Error{Code: lss.IoError, Err: err}
	}
	return info.Size(), nil
}

// RemoveSegment synchronously disposes segmentID's pools and deletes its
// file from disk (whether or not delete_on_close is set; a missing file is
// not an error), then invokes cb if non-nil (§4.3).
func (d *SegmentedDevice) RemoveSegment(segmentID int64, cb func(error)) error {
	d.table.remove(segmentID)
	err := os.Remove(d.segmentPath(segmentID))
	if err != nil && os.IsNotExist(err) {
		err = nil
	}
	if cb != nil {
		cb(err)
	}
	return err
}

// RemoveSegmentAsync is RemoveSegment's async form: synchronous semantics,
// posted to the worker pool, with a post-callback.
func (d *SegmentedDevice) RemoveSegmentAsync(segmentID int64, cb func(error)) {
	d.pool.submit(func() { d.RemoveSegment(segmentID, cb) })
}

// Reset drops all pools, deleting segment files too if delete_on_close was
// configured, but leaves the device usable for subsequent I/O (§4.3).
func (d *SegmentedDevice) Reset() {
	ids := d.table.ids()
	d.table.reset()
	if d.cfg.deleteOnClose {
		for _, id := range ids {
			os.Remove(d.segmentPath(id))
		}
	}
}

// Dispose closes all handle pools and stops the worker pool, deleting
// segment files too if delete_on_close was configured. The staging buffer
// pool is left to the garbage collector. The device must not be used after
// Dispose (§4.3).
func (d *SegmentedDevice) Dispose() {
	if !atomic.CompareAndSwapInt32(&d.disposed, 0, 1) {
		return
	}
	ids := d.table.ids()
	d.table.dispose()
	d.pool.close()
	d.cancel()
	if d.cfg.deleteOnClose {
		for _, id := range ids {
			os.Remove(d.segmentPath(id))
		}
	}
}
