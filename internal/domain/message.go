package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tablekit/internal/schema"
)

// MessageID is the key of a stored message
type MessageID = schema.PK[Message]

// MaxMessageLength bounds message content in runes
const MaxMessageLength = 280

// Message is a line of text posted by a user
type Message struct {
	ID       schema.PK[Message] `json:"id"`
	Content  string             `json:"content"`
	UserID   UserID             `json:"user_id"`
	Flag     Flag               `json:"flag"`
	Tags     []string           `json:"tags,omitempty"`
	PostedAt time.Time          `json:"posted_at"`
}

// NewMessage creates an unsaved message by author, tagged with every #word
// in content
func NewMessage(author UserID, content string, postedAt time.Time) Message {
	content = strings.TrimSpace(content)
	return Message{
		Content:  content,
		UserID:   author,
		Flag:     FlagNormal,
		Tags:     hashtags(content),
		PostedAt: postedAt.UTC(),
	}
}

// Validate checks the fields a stored message must have
func (m Message) Validate() error {
	if m.Content == "" {
		return errors.New("message is empty")
	}
	if n := len([]rune(m.Content)); n > MaxMessageLength {
		return fmt.Errorf("message has %d characters, limit is %d", n, MaxMessageLength)
	}
	if !m.UserID.IsSaved() {
		return errors.New("message has no author")
	}
	return nil
}

func hashtags(content string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, "#") {
			continue
		}
		tag := strings.ToLower(strings.Trim(word[1:], ".,!?;:"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
