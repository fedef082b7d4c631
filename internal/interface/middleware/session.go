package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zuetani/earth-tribe/internal/domain/entity"
	"github.com/zuetani/earth-tribe/internal/session"
	"github.com/zuetani/earth-tribe/pkg/helpers"
	"github.com/zuetani/earth-tribe/pkg/response"
)

const (
	CtxSessionKey = "session"
	CtxUserIDKey  = "userID"
)

// Restorer resolves a session from an access token.
type Restorer interface {
	Restore(ctx context.Context, sess *session.Session, accessToken string) *entity.User
}

// Session attaches a fresh session to every request. It is restored from the
// access_token cookie the first time a handler awaits it, so routes that never
// look at the session cost no token or store lookups.
func Session(r Restorer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(helpers.AccessTokenCookie)
		sess := session.NewDeferred(func(ctx context.Context, s *session.Session) {
			r.Restore(ctx, s, token)
		})
		c.Set(CtxSessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the request session, or a resolved signed-out one when
// the Session middleware did not run.
func SessionFrom(c *gin.Context) *session.Session {
	if v, ok := c.Get(CtxSessionKey); ok {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	s := session.New()
	s.Clear()
	c.Set(CtxSessionKey, s)
	return s
}

// Guard waits for session resolution and applies the route decision.
// HTML navigations are redirected to loginPath; API calls get a 401 carrying
// the redirect target. A request cancelled while resolving gets neither.
func Guard(requireAuth bool, loginPath string) gin.HandlerFunc {
	if loginPath == "" {
		loginPath = "/login"
	}
	g := session.Guard{RequireAuth: requireAuth, LoginPath: loginPath}
	return func(c *gin.Context) {
		sess := SessionFrom(c)
		u, _ := sess.Await(c.Request.Context())

		switch g.Decide(sess.State()) {
		case session.DecisionRender:
			if u != nil {
				c.Set(CtxUserIDKey, u.ID)
			}
			c.Next()
		case session.DecisionRedirect:
			if wantsHTML(c) {
				c.Redirect(http.StatusFound, g.LoginPath)
				c.Abort()
				return
			}
			response.FailWithMeta(c, http.StatusUnauthorized, "authentication required", gin.H{"redirect": g.LoginPath})
		default:
			response.Fail(c, http.StatusServiceUnavailable, "session is still resolving", nil)
		}
	}
}

func wantsHTML(c *gin.Context) bool {
	return c.Request.Method == http.MethodGet && strings.Contains(c.GetHeader("Accept"), "text/html")
}
