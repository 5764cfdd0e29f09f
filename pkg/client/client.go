// Package client implements the client side of the relay protocol: dial the
// broker, claim a username, then exchange envelopes over the same stream.
package client

import (
	"errors"
	"fmt"
	"net"

	"github.com/lkarlsen/binchat/pkg/wire"
)

// ErrDenied reports that the broker refused the claimed username because
// another connected client already holds it.
var ErrDenied = errors.New("client: username already in use")

// Client is one connection to the broker.
type Client struct {
	conn net.Conn
	enc  *wire.Encoder
	dec  *wire.Decoder
	user wire.User
}

// Dial connects to the broker at addr. Identify must be called before any
// other exchange.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %q: %w", addr, err)
	}
	return &Client{
		conn: conn,
		enc:  wire.NewEncoder(conn),
		dec:  wire.NewDecoder(conn),
	}, nil
}

// User returns the identity claimed during Identify.
func (c *Client) User() wire.User {
	return c.user
}

// Identify performs the handshake: it sends the identity envelope and waits
// for the broker's verdict. ErrDenied means the name is taken; any other
// error means the connection is unusable.
func (c *Client) Identify(name string) error {
	c.user = wire.NewUser(name)

	hello := wire.NewMessage().
		Type(wire.ClientInfo).
		Sender(c.user).
		Build()
	if err := c.enc.Encode(hello); err != nil {
		return fmt.Errorf("client: send identity: %w", err)
	}

	reply, err := c.dec.Decode()
	if err != nil {
		return fmt.Errorf("client: read verdict: %w", err)
	}
	if reply.Type != wire.ClientInfo {
		return fmt.Errorf("client: unexpected %s envelope during handshake", reply.Type)
	}
	if reply.Text != "OK" {
		return ErrDenied
	}
	return nil
}

// Say sends a text message to the named peer.
func (c *Client) Say(peer wire.User, text string) error {
	return c.Send(wire.NewMessage().
		Sender(c.user).
		Receiver(peer).
		Text(text).
		Build())
}

// Send writes one envelope to the broker.
func (c *Client) Send(msg wire.Message) error {
	return c.enc.Encode(msg)
}

// Next blocks until the broker delivers the next envelope.
func (c *Client) Next() (wire.Message, error) {
	return c.dec.Decode()
}

// Close tears down the connection. The broker notices on its next read and
// rebroadcasts presence.
func (c *Client) Close() error {
	return c.conn.Close()
}
