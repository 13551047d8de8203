package session

// Backend routes used by the session controller
const (
	RouteToken        = "/auth/token/"
	RouteTokenRefresh = "/auth/token/refresh/"
	RouteTokenVerify  = "/auth/token/verify/"
	RouteRegister     = "/auth/register/"
	RouteLogout       = "/auth/logout/"
	RouteProfile      = "/auth/profile/"
)
