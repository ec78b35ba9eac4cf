package webhook

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern   string
		eventType string
		want      bool
	}{
		// Wildcard "*" matches everything.
		{"*", "conversation.created", true},
		{"*", "message.received", true},
		{"*", "x", true},

		// Exact match.
		{"conversation.created", "conversation.created", true},
		{"message.received", "message.received", true},

		// Exact mismatch.
		{"conversation.created", "conversation.closed", false},
		{"conversation.created", "message.created", false},

		// Case-sensitive.
		{"Conversation.Created", "conversation.created", false},

		// Single-segment wildcard.
		{"conversation.*", "conversation.created", true},
		{"conversation.*", "conversation.closed", true},
		{"conversation.*", "message.created", false},
		{"*.created", "conversation.created", true},
		{"*.created", "message.created", true},
		{"*.created", "conversation.closed", false},

		// Multi-segment with wildcard.
		{"message.*.failed", "message.delivery.failed", true},
		{"message.*.failed", "message.delivery.confirmed", false},
		{"*.delivery.*", "message.delivery.failed", true},
		{"*.delivery.*", "message.status.failed", false},

		// Segment count mismatch.
		{"conversation.*", "message.delivery.failed", false},
		{"message.*.failed", "message.failed", false},
		{"conversation", "conversation.created", false},

		// Edge cases.
		{"", "", true},
		{"a", "a", true},
		{"a", "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_vs_"+tt.eventType, func(t *testing.T) {
			got := Match(tt.pattern, tt.eventType)
			if got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.eventType, got, tt.want)
			}
		})
	}
}

func TestSubscriptionMatches(t *testing.T) {
	tests := []struct {
		name      string
		sub       Subscription
		inboxID   string
		eventType string
		want      bool
	}{
		{
			name:      "global subscription matches any inbox",
			sub:       Subscription{Events: []string{"*"}},
			inboxID:   "inbox-1",
			eventType: "conversation.created",
			want:      true,
		},
		{
			name:      "inbox-scoped subscription matches its inbox",
			sub:       Subscription{InboxID: "inbox-1", Events: []string{"conversation.*"}},
			inboxID:   "inbox-1",
			eventType: "conversation.created",
			want:      true,
		},
		{
			name:      "inbox-scoped subscription rejects other inboxes",
			sub:       Subscription{InboxID: "inbox-1", Events: []string{"*"}},
			inboxID:   "inbox-2",
			eventType: "conversation.created",
			want:      false,
		},
		{
			name:      "no pattern matches",
			sub:       Subscription{Events: []string{"message.*"}},
			inboxID:   "inbox-1",
			eventType: "conversation.created",
			want:      false,
		},
		{
			name:      "any of several patterns suffices",
			sub:       Subscription{Events: []string{"message.*", "conversation.created"}},
			inboxID:   "inbox-1",
			eventType: "conversation.created",
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.sub.Matches(tt.inboxID, tt.eventType)
			if got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.inboxID, tt.eventType, got, tt.want)
			}
		})
	}
}
