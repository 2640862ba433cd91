package transport

import (
	"encoding/json"
	"log"
	"strings"
)

// BotPrefix marks synthetic session ids that have no socket behind them.
const BotPrefix = "bot_"

// IsBot reports whether a session id belongs to a server-made opponent.
func IsBot(sid string) bool {
	return strings.HasPrefix(sid, BotPrefix)
}

// SendText messages each listed session privately. Bot sids are skipped.
func (h *Hub) SendText(sids []string, text string) {
	h.emit(sids, "message", text)
}

// SendEvent emits a named event with a JSON payload to each listed
// session. Bot sids are skipped.
func (h *Hub) SendEvent(sids []string, event string, payload any) {
	h.emit(sids, event, payload)
}

func (h *Hub) emit(sids []string, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s payload: %v", event, err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("Failed to marshal %s frame: %v", event, err)
		return
	}
	for _, sid := range sids {
		if IsBot(sid) {
			continue
		}
		h.push(sid, frame)
	}
}
