package adapter

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "castbot/internal/transport"
)

const (
	textLimit    = 4000
	captionLimit = 1024
)

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	chunks := splitText(text, textLimit, opt.ParseMode)
	chat := &tele.Chat{ID: to.ChatID}

	var first kit.MessageRef
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		so := a.sendOptions(to, opt)
		// The link button goes under the last chunk so it sits below the full text.
		if i != len(chunks)-1 {
			so.ReplyMarkup = nil
		}
		msg, err := a.bot.Send(chat, chunk, so)
		if err != nil {
			return first, translateError(err)
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}
		}
	}
	return first, nil
}

func (a *Adapter) SendPhoto(ctx context.Context, to kit.ChatTarget, media kit.Media, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	p := &tele.Photo{File: teleFile(media), Caption: clip(caption, captionLimit)}
	msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, p, a.sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, translateError(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}, nil
}

func (a *Adapter) SendVideo(ctx context.Context, to kit.ChatTarget, media kit.Media, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	v := &tele.Video{File: teleFile(media), Caption: clip(caption, captionLimit)}
	msg, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, v, a.sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, translateError(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: msg.ID}, nil
}

// SendLog satisfies logx.TextSender for the ops chat sink.
func (a *Adapter) SendLog(ctx context.Context, chatID int64, threadID int, text string) error {
	_, err := a.SendText(ctx, kit.ChatTarget{ChatID: chatID, ThreadID: threadID}, text, &kit.SendOptions{DisablePreview: true})
	return err
}

func (a *Adapter) sendOptions(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	so := &tele.SendOptions{ThreadID: to.ThreadID}
	if opt == nil {
		return so
	}
	so.ParseMode = opt.ParseMode
	so.DisableWebPagePreview = opt.DisablePreview
	if opt.Link != nil && opt.Link.URL != "" {
		so.ReplyMarkup = linkMarkup(*opt.Link)
	}
	return so
}

func linkMarkup(l kit.Link) *tele.ReplyMarkup {
	label := strings.TrimSpace(l.Label)
	if label == "" {
		label = l.URL
	}
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(rm.URL(label, l.URL)))
	return rm
}

func teleFile(m kit.Media) tele.File {
	if m.FileID != "" {
		return tele.File{FileID: m.FileID}
	}
	return tele.FromURL(m.URL)
}

func clip(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

// splitText cuts s into chunks of at most limit runes, preferring newline
// boundaries and avoiding cuts inside an HTML tag when parseMode is HTML.
func splitText(s string, limit int, parseMode string) []string {
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}
	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := min(start+limit, len(rs))
		if end < len(rs) {
			for i := end - 1; i-start >= limit/3; i-- {
				if rs[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		if strings.EqualFold(parseMode, tele.ModeHTML) && end < len(rs) {
			open, closed := -1, -1
			for i := start; i < end; i++ {
				switch rs[i] {
				case '<':
					open = i
				case '>':
					closed = i
				}
			}
			if open > closed && open > start+1 {
				end = open
			}
		}
		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}
