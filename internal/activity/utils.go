package activity

import (
	"strings"
)

// RemoveMentions returns the activity text with the text of mention entities removed
// and surrounding whitespace trimmed. When userIDs is non-empty only mentions of
// those users are removed.
func RemoveMentions(a *Activity, userIDs ...string) string {
	if a == nil || a.Text == "" {
		return ""
	}

	text := a.Text
	for _, e := range a.Entities {
		if !strings.EqualFold(e.Type, "mention") || e.Mentioned == nil || e.Mentioned.ID == "" || e.Text == "" {
			continue
		}
		if len(userIDs) > 0 && !contains(userIDs, e.Mentioned.ID) {
			continue
		}
		text = strings.Replace(text, e.Text, "", 1)
	}

	return strings.TrimSpace(text)
}

// NormalizeConversationID strips the ";messageid=..." suffix channels append to
// threaded conversation ids, so every message of a thread maps to one conversation
func NormalizeConversationID(a *Activity) {
	if a == nil || a.Conversation == nil {
		return
	}
	if i := strings.Index(strings.ToLower(a.Conversation.ID), ";messageid="); i >= 0 {
		a.Conversation.ID = a.Conversation.ID[:i]
	}
}

// HasMember reports whether id is among accounts
func HasMember(accounts []ChannelAccount, id string) bool {
	for _, acc := range accounts {
		if acc.ID == id {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
