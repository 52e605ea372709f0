package httpapi

// Config defines HTTP command server settings.
type Config struct {
	Addr string
	// Token, when set, must be presented as a bearer token on /api routes.
	Token string
	// MaxBodyBytes caps command payloads; zero uses defaultMaxBodyBytes.
	MaxBodyBytes int64
}
