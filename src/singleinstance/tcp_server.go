package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	mu       sync.Mutex
	lis      net.Listener
	incoming chan *tcpConn
	port     int
	closed   chan struct{}
	once     sync.Once
}

func newTcpServer(port int) Server {
	return &tcpServer{port: port, incoming: make(chan *tcpConn, 8), closed: make(chan struct{})}
}

// Start binds only the configured port. If it is occupied, Start fails.
func (s *tcpServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}
	addr := residentAddr(s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("singleinstance: bind %s: %w", addr, err)
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	slog.Info("singleinstance: listening", "addr", lis.Addr().String())
	go s.acceptLoop(ctx, lis)
	return nil
}

func (s *tcpServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return 0
	}
	return s.port
}

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		go s.serve(ctx, c)
	}
}

func (s *tcpServer) serve(ctx context.Context, c net.Conn) {
	remote := c.RemoteAddr().String()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	br := bufio.NewReader(c)
	line, _ := br.ReadString('\n')
	bw := bufio.NewWriter(c)

	if line == pingRequest {
		slog.Debug("singleinstance: PING -> PONG", "remote", remote)
		_, _ = bw.WriteString(pongResponse)
		_ = bw.Flush()
		_ = c.Close()
		return
	}

	verb := strings.ToUpper(strings.TrimSpace(line))
	tc := &tcpConn{c: c, r: Request{Verb: verb}, w: bw}
	if !validVerb(verb) {
		slog.Warn("singleinstance: unknown request", "remote", remote, "line", strings.TrimSpace(line))
		_ = tc.RespondError(fmt.Sprintf("unknown request %q", verb))
		_ = tc.Close()
		return
	}

	slog.Info("singleinstance: request", "remote", remote, "verb", verb)
	select {
	case s.incoming <- tc:
	case <-s.closed:
		_ = tc.RespondError("shutting down")
		_ = c.Close()
	case <-ctx.Done():
		_ = c.Close()
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

func (s *tcpServer) Close() error {
	s.once.Do(func() { close(s.closed) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		_ = s.lis.Close()
		s.lis = nil
	}
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess(text string) error {
	if _, err := tc.w.WriteString("SUCCESS\n" + text); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) RespondError(msg string) error {
	if _, err := tc.w.WriteString("ERROR\n" + msg); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
