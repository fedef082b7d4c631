package session

type Decision int

const (
	// DecisionLoading: show a loading indicator only.
	DecisionLoading Decision = iota
	// DecisionRender: render the wrapped content.
	DecisionRender
	// DecisionRedirect: render nothing and send the client to the login entry point.
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionRedirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Guard gates a route on the session state.
type Guard struct {
	RequireAuth bool
	LoginPath   string
}

func (g Guard) Decide(state State) Decision {
	switch state {
	case StateAuthenticated:
		return DecisionRender
	case StateUnauthenticated:
		if g.RequireAuth {
			return DecisionRedirect
		}
		return DecisionRender
	default:
		return DecisionLoading
	}
}
