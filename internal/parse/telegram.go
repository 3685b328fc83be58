package parse

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"sqrt-go/internal/model"
)

const telegramSavedMessages = "saved_messages"

// TelegramExport parses the result.json of a Telegram Desktop export with
// personal information and chats. Service messages, the saved messages chat
// and chats whose id is in exclude are skipped.
func TelegramExport(data []byte, exclude []int64) ([]*model.TelegramMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	userID := gjson.GetBytes(data, "personal_information.user_id")
	if !userID.Exists() {
		return nil, fmt.Errorf("missing personal_information.user_id")
	}
	chats := gjson.GetBytes(data, "chats.list")
	if !chats.IsArray() {
		return nil, fmt.Errorf("missing chats.list array")
	}
	me := "user" + userID.String()

	var out []*model.TelegramMessage
	var err error
	chats.ForEach(func(_, chat gjson.Result) bool {
		chatID := chat.Get("id").Int()
		kind := chat.Get("type").String()
		if kind == telegramSavedMessages || slices.Contains(exclude, chatID) {
			return true
		}

		isGroup := kind != "personal_chat"
		messages := chat.Get("messages").Array()
		target := chat.Get("name").String()
		if !isGroup {
			for _, msg := range messages {
				if msg.Get("type").String() == "message" && telegramFromID(msg) != me {
					target = msg.Get("from").String()
					break
				}
			}
		}

		for _, msg := range messages {
			if msg.Get("type").String() != "message" {
				continue
			}
			date, derr := telegramDate(msg)
			if derr != nil {
				err = fmt.Errorf("chat %d message %d: %w", chatID, msg.Get("id").Int(), derr)
				return false
			}
			out = append(out, &model.TelegramMessage{
				ChatID:    chatID,
				MessageID: msg.Get("id").Int(),
				Message: model.Message{
					Target:     target,
					Sender:     msg.Get("from").String(),
					IsOutgoing: telegramFromID(msg) == me,
					IsGroup:    isGroup,
					Text:       telegramText(msg.Get("text")),
					Date:       date,
					IsEdited:   msg.Get("edited").Exists(),
				},
			})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// telegramFromID returns the sender as "user<id>". Older exports store
// the bare numeric id.
func telegramFromID(msg gjson.Result) string {
	id := msg.Get("from_id")
	if id.Type == gjson.Number {
		return "user" + id.String()
	}
	return id.String()
}

// telegramDate prefers the unix time of newer exports over the naive date.
func telegramDate(msg gjson.Result) (time.Time, error) {
	if unix := msg.Get("date_unixtime"); unix.Exists() {
		return time.Unix(unix.Int(), 0).UTC(), nil
	}
	return Timestamp(msg.Get("date").String())
}

// telegramText flattens formatted text, which the export stores as a list
// of plain strings and entity objects.
func telegramText(text gjson.Result) string {
	if !text.IsArray() {
		return text.String()
	}
	var parts []string
	text.ForEach(func(_, token gjson.Result) bool {
		if token.IsObject() {
			parts = append(parts, token.Get("text").String())
		} else {
			parts = append(parts, token.String())
		}
		return true
	})
	return strings.Join(parts, " ")
}

// NameMappingCSV reads the "telegram,vk" table of display names.
func NameMappingCSV(r io.Reader) ([]*model.NameMapping, error) {
	var out []*model.NameMapping
	err := readTable(r, []string{"telegram", "vk"}, func(rec *record) error {
		telegram := strings.TrimSpace(rec.str("telegram"))
		if telegram == "" {
			return rec.errorf("empty telegram name")
		}
		out = append(out, &model.NameMapping{Telegram: telegram, Vk: strings.TrimSpace(rec.str("vk"))})
		return nil
	})
	return out, err
}
