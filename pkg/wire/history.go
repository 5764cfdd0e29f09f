package wire

// ChatHistory is one user's log of exchanges, keyed by the peer on the other
// side of each conversation. A message between the owner and a peer lands
// under that peer's key regardless of which side sent it. Peer logs are
// allocated lazily on the first message.
type ChatHistory struct {
	Owner         User
	Conversations map[User][]Message
}

// NewChatHistory creates an empty history owned by the given user.
func NewChatHistory(owner User) *ChatHistory {
	return &ChatHistory{
		Owner:         owner,
		Conversations: make(map[User][]Message),
	}
}

// Append records a message exchanged between sender and receiver under the
// key of whichever of the two is not the owner.
func (h *ChatHistory) Append(sender, receiver User, msg Message) {
	key := receiver
	if receiver == h.Owner {
		key = sender
	}
	if h.Conversations == nil {
		h.Conversations = make(map[User][]Message)
	}
	h.Conversations[key] = append(h.Conversations[key], msg)
}

// Peer returns the ordered log of messages exchanged with the given peer.
// A peer with no prior exchange yields an empty slice, never nil, and the
// lookup allocates nothing in the history itself.
func (h *ChatHistory) Peer(peer User) []Message {
	msgs, ok := h.Conversations[peer]
	if !ok {
		return []Message{}
	}
	return msgs
}

// Peers lists every user the owner has exchanged at least one message with.
func (h *ChatHistory) Peers() []User {
	peers := make([]User, 0, len(h.Conversations))
	for peer := range h.Conversations {
		peers = append(peers, peer)
	}
	return peers
}
