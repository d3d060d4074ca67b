package rootio

import "errors"

// ErrClosed is returned by Insert/Flush once Close has been called.
var ErrClosed = errors.New("rootio: writer is closed")
