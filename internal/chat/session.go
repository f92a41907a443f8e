package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
)

func NewSession(conn net.Conn) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Conn:   conn,
		Out:    NewOutbox(),
		remote: conn.RemoteAddr().String(),
	}
}

// HandleSession runs the read side of s until the connection fails or the
// hub stops. Each line is fully dispatched by the hub before the next read.
func HandleSession(s *Session, h *Hub, readTimeout, writeTimeout time.Duration) {
	finished := make(chan struct{})
	defer func() {
		close(finished)
		s.Out.Close()
		_ = s.Conn.Close()
	}()
	go func() {
		select {
		case <-h.Stopped():
			_ = s.Conn.Close()
		case <-finished:
		}
	}()

	StartOutboundWriter(s.Conn, s.Out, writeTimeout)

	if !h.Submit(Event{Type: EventConnect, Session: s}) {
		return
	}
	defer h.Submit(Event{Type: EventDisconnect, Session: s})

	reader := bufio.NewReader(s.Conn)
	for {
		if readTimeout > 0 {
			_ = s.Conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		line, err := readLine(reader)
		if errors.Is(err, errLineTooLong) {
			s.post("ERROR Line too long")
			continue
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Debug("read failed", "session", s.ID, "error", err)
			}
			return
		}

		done := make(chan struct{})
		if !h.Submit(Event{Type: EventLine, Session: s, Text: line, Done: done}) {
			return
		}
		select {
		case <-done:
		case <-h.Stopped():
			return
		}
	}
}

// maxLineLength caps a single protocol line, terminator excluded.
const maxLineLength = 4096

var errLineTooLong = errorString("line_too_long")

// readLine returns the next line without its terminator. A line longer than
// maxLineLength is consumed up to its newline and reported as errLineTooLong,
// so the reader never buffers more than one bufio chunk past the limit.
func readLine(r *bufio.Reader) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(buf)+len(chunk) > maxLineLength+2 {
			return "", discardLine(r, err)
		}
		buf = append(buf, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		line := strings.TrimRight(string(buf), "\r\n")
		switch {
		case err == nil || (err == io.EOF && line != ""):
			// a last line without newline still counts
			if len(line) > maxLineLength {
				return "", errLineTooLong
			}
			return line, nil
		case err == io.EOF:
			return "", io.EOF
		default:
			return "", fmt.Errorf("read: %w", err)
		}
	}
}

// discardLine skips the rest of an oversized line. err is the result of the
// read that crossed the limit.
func discardLine(r *bufio.Reader, err error) error {
	for err == bufio.ErrBufferFull {
		_, err = r.ReadSlice('\n')
	}
	switch err {
	case nil:
		return errLineTooLong
	case io.EOF:
		return io.EOF
	default:
		return fmt.Errorf("read: %w", err)
	}
}
