package entity

// InboundMessage is a line of text addressed to the bot, either in a
// channel or privately.
type InboundMessage struct {
	// Target is the channel the message was sent to, or the bot's own nick
	// for a private message.
	Target string
	Sender string
	Text   string
}

// ReplyTarget is where a reply to m goes: the channel for channel
// messages, the sender for private ones.
func (m InboundMessage) ReplyTarget() string {
	if IsChannelName(m.Target) {
		return m.Target
	}
	return m.Sender
}

// IsChannelName reports whether name carries an IRC channel prefix.
func IsChannelName(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case '#', '&', '+', '!':
		return true
	}
	return false
}
