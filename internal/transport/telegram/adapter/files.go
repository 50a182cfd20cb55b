package adapter

import (
	"context"
	"net/url"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "castbot/internal/transport"
)

func (a *Adapter) apiURL() string {
	if a.bot.URL != "" {
		return strings.TrimRight(a.bot.URL, "/")
	}
	return tele.DefaultApiURL
}

// FileMetadata resolves a file id through getFile. File ids stay valid for
// the bot that received them; the download path behind them does not.
func (a *Adapter) FileMetadata(ctx context.Context, fileID string) (kit.FileMeta, error) {
	if err := ctx.Err(); err != nil {
		return kit.FileMeta{}, err
	}
	f, err := a.bot.FileByID(fileID)
	if err != nil {
		return kit.FileMeta{}, translateError(err)
	}
	return kit.FileMeta{FileID: f.FileID, Path: f.FilePath, Size: f.FileSize}, nil
}

func (a *Adapter) FileURL(path string) string {
	return a.apiURL() + "/file/bot" + a.bot.Token + "/" + strings.TrimLeft(path, "/")
}

// IsFileURL matches https://<api host>/file/bot<any token>/<path>. The token
// part is not compared so links issued under a rotated token still match.
func (a *Adapter) IsFileURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	api, err := url.Parse(a.apiURL())
	if err != nil || !strings.EqualFold(u.Host, api.Host) {
		return false
	}
	rest, ok := strings.CutPrefix(u.Path, "/file/bot")
	if !ok {
		return false
	}
	_, p, ok := strings.Cut(rest, "/")
	return ok && p != ""
}
