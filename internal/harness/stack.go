package harness

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// harnessFrame prefixes every frame the harness itself contributes to the
// wrapped goroutine's stack.
const harnessFrame = "github.com/deixis/startup/internal/harness.(*Harness)."

const maxStackBuf = 64 << 20

// goroutineID parses the current goroutine's ID from its trace header
// ("goroutine 18 [running]:").
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// goroutineStack returns the stripped trace of goroutine id, or "" if it
// no longer exists.
func goroutineStack(id uint64) string {
	if id == 0 {
		return ""
	}
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) || len(buf) >= maxStackBuf {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	header := fmt.Sprintf("goroutine %d [", id)
	for _, block := range strings.Split(string(buf), "\n\n") {
		if strings.HasPrefix(block, header) {
			return stripStack(block, false)
		}
	}
	return ""
}

type frame struct {
	fn  string
	loc string
}

// stripStack removes harness frames from a goroutine trace so that it begins
// at the wrapped callable. For a panic trace it also removes everything up to
// and including the panic call (the recovery machinery).
func stripStack(trace string, panicked bool) string {
	lines := strings.Split(strings.TrimRight(trace, "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return ""
	}
	header, rest := lines[0], lines[1:]

	var frames []frame
	for i := 0; i < len(rest); i++ {
		f := frame{fn: rest[i]}
		if i+1 < len(rest) && strings.HasPrefix(rest[i+1], "\t") {
			f.loc = rest[i+1]
			i++
		}
		frames = append(frames, f)
	}

	if panicked {
		for i := len(frames) - 1; i >= 0; i-- {
			if strings.HasPrefix(frames[i].fn, "panic(") {
				frames = frames[i+1:]
				break
			}
		}
	}

	var b strings.Builder
	b.WriteString(header)
	for _, f := range frames {
		if strings.HasPrefix(f.fn, harnessFrame) || strings.HasPrefix(f.fn, "created by "+harnessFrame) {
			continue
		}
		b.WriteString("\n")
		b.WriteString(f.fn)
		if f.loc != "" {
			b.WriteString("\n")
			b.WriteString(f.loc)
		}
	}
	return b.String()
}
