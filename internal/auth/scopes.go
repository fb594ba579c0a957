package auth

const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
	ScopeDatasetsRead  = "datasets:read"
	ScopeDatasetsWrite = "datasets:write"
)

// AllScopes defines the full set of scopes requested by API clients.
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeDatasetsRead,
	ScopeDatasetsWrite,
}
