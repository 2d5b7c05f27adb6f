package profile

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenBytes = 24

func randomToken() string {
	buf := make([]byte, tokenBytes)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// EnsureSecrets fills every empty secret with a freshly generated value
// and reports whether the profile changed. Existing values are kept so
// re-deployments do not rotate credentials.
func (p *Profile) EnsureSecrets() bool {
	changed := false
	for _, field := range []*string{
		&p.Secrets.AdminPassword,
		&p.Secrets.JWTSecret,
		&p.Secrets.JWTRefreshSecret,
		&p.Secrets.RedisPassword,
		&p.Secrets.DatabasePassword,
		&p.Secrets.SessionCryptKey,
	} {
		if *field == "" {
			*field = randomToken()
			changed = true
		}
	}
	return changed
}
