package parse

import (
	"strings"
	"testing"
	"time"
)

const telegramExport = `{
  "personal_information": {"user_id": 1, "first_name": "Me"},
  "chats": {"list": [
    {"id": 10, "name": "Anna T", "type": "personal_chat", "messages": [
      {"id": 1, "type": "service", "date": "2024-01-15T09:00:00", "actor_id": "user1", "action": "phone_call"},
      {"id": 2, "type": "message", "date": "2024-01-15T09:30:00", "from": "Me", "from_id": "user1", "text": "hi"},
      {"id": 3, "type": "message", "date": "2024-01-15T09:31:00", "date_unixtime": "1705312800",
       "from": "Anna", "from_id": "user42", "edited": "2024-01-15T09:32:00",
       "text": ["see", {"type": "link", "text": "https://example.com"}]}
    ]},
    {"id": 20, "name": "Friends", "type": "private_group", "messages": [
      {"id": 7, "type": "message", "date": "2024-01-16T20:00:00", "from": "Bob", "from_id": 43, "text": "evening"}
    ]},
    {"id": 30, "type": "saved_messages", "messages": [
      {"id": 1, "type": "message", "date": "2024-01-16T20:00:00", "from": "Me", "from_id": "user1", "text": "note"}
    ]},
    {"id": 40, "name": "Spam", "type": "personal_chat", "messages": [
      {"id": 1, "type": "message", "date": "2024-01-16T20:00:00", "from": "Spam", "from_id": "user44", "text": "buy"}
    ]}
  ]}
}`

func TestTelegramExport(t *testing.T) {
	messages, err := TelegramExport([]byte(telegramExport), []int64{40})
	if err != nil {
		t.Fatalf("TelegramExport() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}

	out := messages[0]
	if out.ChatID != 10 || out.MessageID != 2 || !out.IsOutgoing || out.IsGroup {
		t.Errorf("outgoing message = %+v", out)
	}
	// A personal chat is named after the other party, not the chat title.
	if out.Target != "Anna" || out.Sender != "Me" || out.Text != "hi" {
		t.Errorf("outgoing message = %+v", out)
	}

	in := messages[1]
	if in.IsOutgoing || !in.IsEdited || in.Text != "see https://example.com" {
		t.Errorf("incoming message = %+v", in)
	}
	if want := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC); !in.Date.Equal(want) {
		t.Errorf("date = %v, want %v from date_unixtime", in.Date, want)
	}

	group := messages[2]
	if !group.IsGroup || group.Target != "Friends" || group.Sender != "Bob" || group.IsOutgoing || group.IsEdited {
		t.Errorf("group message = %+v", group)
	}
	if want := time.Date(2024, 1, 16, 20, 0, 0, 0, time.UTC); !group.Date.Equal(want) {
		t.Errorf("date = %v, want %v", group.Date, want)
	}
}

func TestTelegramExport_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"invalid json", `{"chats":`, "invalid JSON"},
		{"no user", `{"chats": {"list": []}}`, "user_id"},
		{"no chats", `{"personal_information": {"user_id": 1}}`, "chats.list"},
		{
			"bad date",
			`{"personal_information": {"user_id": 1}, "chats": {"list": [{"id": 5, "type": "personal_chat",
			  "messages": [{"id": 9, "type": "message", "date": "yesterday", "from_id": "user1", "text": ""}]}]}}`,
			"chat 5 message 9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TelegramExport([]byte(tt.input), nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("TelegramExport() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestNameMappingCSV(t *testing.T) {
	t.Run("reads names", func(t *testing.T) {
		mappings, err := NameMappingCSV(strings.NewReader("telegram,vk\nAnna T, Anna\nBob,Bob K\n"))
		if err != nil {
			t.Fatalf("NameMappingCSV() error = %v", err)
		}
		if len(mappings) != 2 || mappings[0].Telegram != "Anna T" || mappings[0].Vk != "Anna" || mappings[1].Vk != "Bob K" {
			t.Errorf("mappings = %+v", mappings)
		}
	})

	t.Run("empty telegram name", func(t *testing.T) {
		_, err := NameMappingCSV(strings.NewReader("telegram,vk\nAnna T,Anna\n,Bob\n"))
		if Line(err) != 3 {
			t.Errorf("NameMappingCSV() error = %v, want line 3", err)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := NameMappingCSV(strings.NewReader("telegram\nAnna T\n"))
		if Line(err) != 1 {
			t.Errorf("NameMappingCSV() error = %v, want line 1", err)
		}
	})
}
