package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// sessionWriter defers the session cookie until the first header or body
// write, the last moment headers can still change. scs ships its own
// net/http LoadAndSave middleware, but gin hands out its own ResponseWriter,
// so the commit hook has to be replicated on top of it.
type sessionWriter struct {
	gin.ResponseWriter
	sm        *SessionManager
	request   *http.Request
	headerOut bool
	committed bool
}

func (w *sessionWriter) WriteHeader(code int) {
	if !w.headerOut {
		w.headerOut = true
		w.commitSession()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	if !w.headerOut {
		w.headerOut = true
		w.commitSession()
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	if !w.headerOut {
		w.headerOut = true
		w.commitSession()
	}
	return w.ResponseWriter.Write(b)
}

// commitSession persists a modified session and sets (or clears) the cookie.
func (w *sessionWriter) commitSession() {
	if w.committed {
		return
	}
	w.committed = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

// SessionLoadSave loads the session named by the request cookie into the
// request context and commits it on the way out. It must run before any
// handler that touches the session.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		sw := &sessionWriter{
			ResponseWriter: c.Writer,
			sm:             sm,
			request:        c.Request,
		}
		c.Writer = sw

		c.Next()

		// A handler that never wrote anything still needs the cookie.
		if !sw.headerOut {
			sw.commitSession()
		}
	}
}
