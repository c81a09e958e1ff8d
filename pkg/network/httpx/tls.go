package httpx

import "golang.org/x/crypto/acme/autocert"

// NewCertManager makes a Let's Encrypt certificate manager
// restricted to the host.
func NewCertManager(host, cacheDir string) *autocert.Manager {
	m := &autocert.Manager{
		Prompt: autocert.AcceptTOS,
		Cache:  autocert.DirCache(cacheDir),
	}
	if host != "" {
		m.HostPolicy = autocert.HostWhitelist(host)
	}
	return m
}
