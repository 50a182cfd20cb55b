package adapter

import (
	"errors"
	"regexp"
	"strconv"

	tele "gopkg.in/telebot.v4"

	kit "castbot/internal/transport"
)

// telebot renders API failures as "telegram: <description> (<code>)".
var apiErrRe = regexp.MustCompile(`^telegram: (.*) \((\d{3})\)$`)

// translateError lifts telebot API failures into *kit.Error so callers can
// branch on the code. Network and encoding errors are returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var te *tele.Error
	if errors.As(err, &te) {
		desc := te.Description
		if desc == "" {
			desc = te.Message
		}
		return &kit.Error{Code: te.Code, Description: desc, Err: err}
	}
	if m := apiErrRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[2])
		return &kit.Error{Code: code, Description: m[1], Err: err}
	}
	return err
}
