package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

type tcpClient struct {
	port int
}

func newTcpClient(port int) Client { return &tcpClient{port: port} }

func (c *tcpClient) Send(ctx context.Context, verb string) (string, error) {
	timeout := timeoutFrom(ctx, 2*time.Second)
	addr := residentAddr(c.port)
	if !ping(addr, timeout) {
		return "", ErrNoResident
	}

	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(strings.ToUpper(verb) + "\n"); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	body, _ := io.ReadAll(br)
	switch status {
	case "SUCCESS\n":
		return string(body), nil
	case "ERROR\n":
		return "", errors.New(string(body))
	default:
		return "", fmt.Errorf("unexpected reply %q", strings.TrimSpace(status))
	}
}
