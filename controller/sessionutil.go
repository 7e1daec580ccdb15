package controller

import (
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const sessionName = "session"

func loadSession(c echo.Context) (*sessions.Session, error) {
	return session.Get(sessionName, c)
}

func saveSession(c echo.Context, sess *sessions.Session) error {
	return sess.Save(c.Request(), c.Response())
}

func clearSession(c echo.Context) error {
	sess, err := loadSession(c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	sess.Values = map[any]any{}
	return saveSession(c, sess)
}
