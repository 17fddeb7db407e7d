package render

import (
	"bytes"
	"fmt"
	"runtime"
	"sync/atomic"
)

// DebugMode controls whether UI-goroutine assertions fire and whether
// unrecognized node kinds render a placeholder view. Production builds
// disable it and get silently-empty views instead.
var DebugMode = true

// SetDebugMode enables or disables debug mode for the renderer.
func SetDebugMode(debug bool) {
	DebugMode = debug
}

// uiGuard remembers which goroutine owns view mutation. The check is only
// active in debug mode and only after AttachUIThread was called; violating
// it is a programming error, so it panics rather than being tolerated.
type uiGuard struct {
	gid atomic.Int64
}

func (g *uiGuard) attach() {
	g.gid.Store(goroutineID())
}

func (g *uiGuard) assert() {
	if !DebugMode {
		return
	}
	want := g.gid.Load()
	if want == 0 {
		return
	}
	if got := goroutineID(); got != want {
		panic(fmt.Sprintf("render: view mutation on goroutine %d, UI goroutine is %d", got, want))
	}
}

// goroutineID parses the current goroutine id out of the stack header.
// Debug-only; never on a hot path.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// Header shape: "goroutine 123 [running]:"
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	var id int64
	for _, c := range fields[1] {
		if c < '0' || c > '9' {
			return 0
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
