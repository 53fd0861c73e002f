package sessions

// Note the UI may depend on some of these values, changing them will cause breaking changes
const (
	SessionCookieName = "_useradmin_session"
	SessionCtxKey     = "useradmin_session"
	SessionIDCtxKey   = "useradmin_session_id"
)
