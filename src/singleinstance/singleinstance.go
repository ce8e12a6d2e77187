// Package singleinstance keeps one resident instance per user and serves a
// loopback line protocol so other processes can control it.
package singleinstance

import (
	"context"
	"errors"
)

// Control verbs. PING is answered by the server itself.
const (
	VerbPing   = "PING"
	VerbStart  = "START"
	VerbStop   = "STOP"
	VerbToggle = "TOGGLE"
	VerbStatus = "STATUS"
	VerbQuit   = "QUIT"
)

var ErrNoResident = errors.New("singleinstance: no resident instance")

// Server owns the TCP endpoint and hands control requests to the resident.
type Server interface {
	// Start binds the control port on loopback. It fails if the port is taken.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one client request awaiting a response.
type Conn interface {
	Request() Request
	RespondSuccess(text string) error
	RespondError(msg string) error
	Close() error
}

// Request is a single control request.
type Request struct {
	Verb string
}

// Client sends control requests to a resident.
type Client interface {
	// Send delivers verb and returns the resident's reply. It returns
	// ErrNoResident when nothing answers PING.
	Send(ctx context.Context, verb string) (string, error)
}

func NewServer(port int) Server { return newTcpServer(port) }

func NewClient(port int) Client { return newTcpClient(port) }

func validVerb(v string) bool {
	switch v {
	case VerbStart, VerbStop, VerbToggle, VerbStatus, VerbQuit:
		return true
	}
	return false
}
