package api

// Backend endpoint paths. The transport classifies calls by these: the
// refresh and logout paths are special-cased, and PublicPaths never require
// a credential.
const (
	PathLogin           = "/api/auth/login"
	PathRegister        = "/api/auth/register"
	PathVerifyEmail     = "/api/auth/verify-email"
	PathGuestAccess     = "/api/auth/guest-access"
	PathRefresh         = "/api/auth/refresh"
	PathLogout          = "/api/auth/logout"
	PathEndGuestSession = "/api/auth/guest-sessions/end"
	PathSSOExchange     = "/api/auth/sso/exchange"
	PathCurrentUser     = "/api/users/me"
)

// PublicPaths lists the endpoints an anonymous caller may reach.
func PublicPaths() []string {
	return []string{
		PathLogin,
		PathRegister,
		PathVerifyEmail,
		PathGuestAccess,
		PathSSOExchange,
	}
}
