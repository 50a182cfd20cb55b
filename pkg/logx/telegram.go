package logx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

const opsMaxLen = 3500

// opsWriter is the zerolog sink feeding the ops chat. It never blocks:
// records beyond the rate limit or a full queue are dropped.
type opsWriter struct{ svc *Service }

func (w *opsWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.InfoLevel, p)
}

func (w *opsWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := w.svc
	s.mu.Lock()
	tg := s.cfg.Telegram
	lim := s.limiter
	min := s.minLevel
	s.mu.Unlock()

	if tg.ChatID == 0 || lim == nil || level < min || !lim.Allow() {
		return len(p), nil
	}
	text := formatOpsLine(p)
	if text == "" {
		return len(p), nil
	}
	select {
	case s.queue <- opsLine{chatID: tg.ChatID, threadID: tg.ThreadID, text: text}:
	default:
	}
	return len(p), nil
}

// formatOpsLine renders one zerolog JSON record as "[LEVEL] message" followed
// by sorted key=value lines.
func formatOpsLine(p []byte) string {
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(p), &m); err != nil {
		return truncate(strings.TrimSpace(string(p)), opsMaxLen)
	}

	var b strings.Builder
	if lvl, _ := m["level"].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := m["message"].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "time", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n- " + k + "=")
		b.WriteString(truncate(fmt.Sprint(m[k]), 600))
	}
	return truncate(b.String(), opsMaxLen)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n < 10 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
