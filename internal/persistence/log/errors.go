package log

import "errors"

// ErrStopScan ends ScanFile early.
var ErrStopScan = errors.New("stop scan")
