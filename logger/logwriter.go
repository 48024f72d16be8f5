package logger

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"sync"
)

// LogBufferWriter adapts a LogBuffer to io.Writer so it can be hung
// off the global logger. Lines of the form "[node-N] message" are
// attributed to that node; everything else lands under "system".
type LogBufferWriter struct {
	buffer *LogBuffer
	buf    bytes.Buffer
	mu     sync.Mutex
}

var nodeIDRegex = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)

// NewLogBufferWriter wraps buffer as a writer.
func NewLogBufferWriter(buffer *LogBuffer) *LogBufferWriter {
	return &LogBufferWriter{buffer: buffer}
}

// Write implements io.Writer, buffering until complete lines arrive.
func (lw *LogBufferWriter) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.buf.Write(p)

	for {
		line, err := lw.buf.ReadString('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return len(p), err
		}

		line = strings.TrimSuffix(line, "\n")
		if len(line) == 0 {
			continue
		}

		nodeID := "system"
		message := line
		if matches := nodeIDRegex.FindStringSubmatch(line); len(matches) == 3 {
			nodeID = matches[1]
			message = matches[2]
		}
		lw.buffer.Add(nodeID, message)
	}

	return len(p), nil
}
