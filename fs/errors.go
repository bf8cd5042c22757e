package fs

import "errors"

var errPoolDisposed = errors.New("fs: handle pool disposed")

var errUnalignedIO = errors.New("fs: offset and length must be sector-aligned for direct I/O")
