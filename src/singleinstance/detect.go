package singleinstance

import (
	"bufio"
	"context"
	"io"
	"net"
	"strconv"
	"time"
)

// DetectResident reports whether a resident answers PING on port.
func DetectResident(ctx context.Context, port int) bool {
	return ping(residentAddr(port), timeoutFrom(ctx, 300*time.Millisecond))
}

func residentAddr(port int) string {
	return net.JoinHostPort(residentHost, strconv.Itoa(port))
}

func timeoutFrom(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return def
}

// ping reports whether addr answers the liveness probe within timeout.
func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return false
	}
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
