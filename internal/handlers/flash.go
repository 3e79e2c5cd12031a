package handlers

import (
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/view"
)

const (
	flashSession = "flash"

	flashSuccess = "success"
	flashError   = "error"
)

var flashKinds = []string{flashSuccess, flashError}

func addFlash(c echo.Context, kind, msg string) {
	sess, err := session.Get(flashSession, c)
	if sess == nil {
		logFrom(c).Warn("flash_error", "reason", "no session store", "error", err)
		return
	}
	sess.AddFlash(msg, kind)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		logFrom(c).Warn("flash_error", "reason", "cannot save flash", "error", err)
	}
}

func takeFlashes(c echo.Context) []view.Flash {
	sess, _ := session.Get(flashSession, c)
	if sess == nil {
		return nil
	}
	var out []view.Flash
	for _, kind := range flashKinds {
		for _, v := range sess.Flashes(kind) {
			if msg, ok := v.(string); ok {
				out = append(out, view.Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		logFrom(c).Warn("flash_error", "reason", "cannot clear flashes", "error", err)
	}
	return out
}
