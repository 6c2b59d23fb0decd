package reconcile

import "fmt"

// Precedence names which prior owner wins a sign-in where a provider
// identity and a verified email point at two different voters. Both
// candidates are legitimate canonical accounts, so the choice is an explicit
// policy, never a silent guess.
type Precedence string

const (
	// PreferProviderLink folds the email owner into the provider-link owner.
	PreferProviderLink Precedence = "provider_link"
	// PreferVerifiedEmail folds the provider-link owner into the email owner.
	PreferVerifiedEmail Precedence = "verified_email"
)

// ParsePrecedence validates a configured precedence value.
func ParsePrecedence(s string) (Precedence, error) {
	switch Precedence(s) {
	case PreferProviderLink, PreferVerifiedEmail:
		return Precedence(s), nil
	}
	return "", fmt.Errorf("unknown merge precedence %q", s)
}
