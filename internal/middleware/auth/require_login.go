package auth

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
)

// LoginURL is where anonymous visitors are sent, with the page they wanted.
func LoginURL(next string) string {
	if next == "" || next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

func RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := Current(c); !ok {
			target := c.Request().URL.RequestURI()
			if c.Request().Method != http.MethodGet {
				target = c.Request().Referer()
				if u, err := url.Parse(target); err == nil {
					target = u.RequestURI()
				}
			}
			return c.Redirect(http.StatusSeeOther, LoginURL(SafeNext(target)))
		}
		return next(c)
	}
}

// SafeNext keeps only same-site relative paths.
func SafeNext(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return ""
	}
	return next
}
