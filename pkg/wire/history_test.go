package wire

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatHistoryAppendKeysByOtherParty(t *testing.T) {
	alice := NewUser("alice")
	bob := NewUser("bob")

	hist := NewChatHistory(alice)

	sent := NewMessage().Sender(alice).Receiver(bob).Text("hi bob").Build()
	hist.Append(alice, bob, sent)

	received := NewMessage().Sender(bob).Receiver(alice).Text("hi alice").Build()
	hist.Append(bob, alice, received)

	log := hist.Peer(bob)
	require.Len(t, log, 2)
	require.Equal(t, "hi bob", log[0].Text)
	require.Equal(t, "hi alice", log[1].Text)
}

func TestChatHistoryAppendLeavesOtherPeersUntouched(t *testing.T) {
	alice := NewUser("alice")
	bob := NewUser("bob")
	carol := NewUser("carol")

	hist := NewChatHistory(alice)
	hist.Append(alice, carol, NewMessage().Sender(alice).Receiver(carol).Text("hey").Build())

	before := hist.Peer(carol)
	hist.Append(alice, bob, NewMessage().Sender(alice).Receiver(bob).Text("yo").Build())

	require.Equal(t, before, hist.Peer(carol))
	require.Len(t, hist.Peer(bob), 1)
}

func TestChatHistoryPeerWithoutExchanges(t *testing.T) {
	hist := NewChatHistory(NewUser("alice"))
	stranger := NewUser("stranger")

	first := hist.Peer(stranger)
	require.NotNil(t, first)
	require.Empty(t, first)

	// Lookups must not allocate a log as a side effect.
	require.Empty(t, hist.Peers())
	require.Empty(t, hist.Peer(stranger))
}

func TestChatHistoryGobRoundTrip(t *testing.T) {
	alice := NewUser("alice")
	bob := NewUser("bob")
	carol := NewUser("carol")

	hist := NewChatHistory(alice)
	hist.Append(alice, bob, NewMessage().Sender(alice).Receiver(bob).Text("one").Build())
	hist.Append(bob, alice, NewMessage().Sender(bob).Receiver(alice).Text("two").Build())
	hist.Append(alice, carol, NewMessage().
		Sender(alice).
		Receiver(carol).
		Attachment(&Attachment{Data: []byte{0xCA, 0xFE}}).
		Build())

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(hist))

	decoded := new(ChatHistory)
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))

	require.Equal(t, hist.Owner, decoded.Owner)
	require.Equal(t, hist.Conversations, decoded.Conversations)
}
