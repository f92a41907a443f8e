// Command client is a minimal line client for the chat server: stdin lines
// go to the server, server lines go to stdout.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("chat-client", pflag.ContinueOnError)
	addr := flags.StringP("addr", "a", "localhost:15001", "chat server address")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", *addr, err)
	}
	defer conn.Close()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- pumpLines(os.Stdout, conn, "\n")
	}()
	go func() {
		_ = pumpLines(conn, os.Stdin, "\n")
		// stdin closed: half-close so the server sees EOF but we still
		// print whatever it sends back.
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
	}()

	if err := <-serverDone; err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "connection closed by server")
	return nil
}

// pumpLines copies src to dst line by line, normalising line endings to
// eol. It returns nil on a clean EOF.
func pumpLines(dst io.Writer, src io.Reader, eol string) error {
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(dst, strings.TrimRight(line, "\r\n")+eol); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
