package app

import "github.com/charlesng35/picketer/pkg/push"

// PushSettings converts PushConfig to the push package representation.
func (c PushConfig) PushSettings() push.Settings {
	return push.Settings{
		PublicKey:  c.VAPIDPublicKey,
		PrivateKey: c.VAPIDPrivateKey,
		Subject:    c.Subject,
		TTL:        c.TTL,
	}
}
