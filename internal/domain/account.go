package domain

type AccountID string

// Account is the durable per-account record. Secrets never live here; the
// refresh token is reached through SecretRef in the credential store.
type Account struct {
	ID            AccountID
	Email         string
	// SecretRef points to a credential-store entry, typically in
	// "ovo://<account>/refresh_token" form.
	SecretRef     string
	RateOverrides map[string]float64
}
