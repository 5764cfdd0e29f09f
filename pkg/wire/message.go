// Package wire defines the envelope format shared by the broker and its
// clients: user identities, the tagged Message union, chat histories, and the
// gob codec that frames them on the stream.
package wire

import (
	"os"
	"time"
)

// User identifies a chat participant. Two users with the same name are
// interchangeable; the zero value is not a valid identity.
type User struct {
	Name string
}

// NewUser constructs an identity for the given name.
func NewUser(name string) User {
	return User{Name: name}
}

func (u User) String() string {
	return u.Name
}

// MessageType tags the envelope with the kind of payload it carries.
type MessageType int

const (
	// RegularMessage carries a text and/or attachment exchange between two users.
	RegularMessage MessageType = iota
	// ChatHistoryMessage carries a full ChatHistory snapshot to a client.
	ChatHistoryMessage
	// ClientList carries the set of currently online users.
	ClientList
	// ClientInfo carries identity during handshake and the OK/DENIED verdict.
	ClientInfo
)

func (t MessageType) String() string {
	switch t {
	case RegularMessage:
		return "regular"
	case ChatHistoryMessage:
		return "chat-history"
	case ClientList:
		return "client-list"
	case ClientInfo:
		return "client-info"
	default:
		return "unknown"
	}
}

// Attachment holds a file payload carried inside a regular message.
type Attachment struct {
	Data []byte
}

// LoadAttachment reads the file at path into an attachment.
func LoadAttachment(path string) (*Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Attachment{Data: data}, nil
}

// Message is one envelope on the wire. Only the fields relevant to its Type
// are populated; the rest stay zero. Treated as immutable once built.
type Message struct {
	Type        MessageType
	Time        string
	Sender      *User
	Receiver    *User
	Text        string
	Attachment  *Attachment
	OnlineUsers []User
	History     *ChatHistory
}

// Builder assembles a Message. Build stamps the wall-clock time.
type Builder struct {
	msg Message
}

// NewMessage starts a builder. The type defaults to RegularMessage.
func NewMessage() *Builder {
	return &Builder{msg: Message{Type: RegularMessage}}
}

func (b *Builder) Type(t MessageType) *Builder {
	b.msg.Type = t
	return b
}

func (b *Builder) Sender(u User) *Builder {
	b.msg.Sender = &u
	return b
}

func (b *Builder) Receiver(u User) *Builder {
	b.msg.Receiver = &u
	return b
}

func (b *Builder) Text(text string) *Builder {
	b.msg.Text = text
	return b
}

func (b *Builder) Attachment(a *Attachment) *Builder {
	b.msg.Attachment = a
	return b
}

func (b *Builder) OnlineUsers(users []User) *Builder {
	b.msg.OnlineUsers = users
	return b
}

func (b *Builder) History(h *ChatHistory) *Builder {
	b.msg.History = h
	return b
}

// Build finalizes the message, stamping it with the current wall-clock time.
func (b *Builder) Build() Message {
	b.msg.Time = time.Now().Format("15:04:05")
	return b.msg
}
