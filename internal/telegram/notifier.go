package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pemodest0/Assyntrax-sub000/internal/storage"
)

// maxMessageLen stays under Telegram's 4096 character limit.
const maxMessageLen = 4000

// Notifier posts regime transitions to one chat.
type Notifier struct {
	api    Sender
	chatID int64
}

func NewNotifier(api Sender, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

func (n *Notifier) NotifyTransitions(runID string, tr []storage.Transition) error {
	if len(tr) == 0 || n.chatID == 0 {
		return nil
	}
	lines := make([]string, len(tr))
	for i, t := range tr {
		from := string(t.From)
		if from == "" {
			from = "new"
		}
		lines[i] = fmt.Sprintf("• %s: %s → %s", t.Asset, from, t.To)
	}
	for _, msg := range splitMessages("Regime changes in run "+runID, lines) {
		if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, msg)); err != nil {
			return fmt.Errorf("send transitions: %w", err)
		}
	}
	return nil
}

func splitMessages(header string, lines []string) []string {
	var out []string
	cur := header
	for _, l := range lines {
		if len(cur)+1+len(l) > maxMessageLen {
			out = append(out, cur)
			cur = header + " (cont.)"
		}
		cur += "\n" + l
	}
	return append(out, cur)
}
