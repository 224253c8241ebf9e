package auth

import "strings"

// Assertion is the identity an external provider vouched for. Signature and
// token validation happen before it reaches this package.
type Assertion struct {
	TenantID string   // tenant whose identity provider produced the assertion
	Subject  string   // provider subject, kept for logs
	UPN      string   // primary identifier (user principal name)
	Email    string   // direct email claim
	Profile  *Profile // nested raw profile
}

// Profile is the raw profile document returned by the provider.
type Profile struct {
	Email string `json:"email"`
}

// AssertedEmail applies the extraction precedence: primary identifier, then
// direct email, then nested profile email. The first non-empty value wins.
func (a *Assertion) AssertedEmail() string {
	if a == nil {
		return ""
	}
	candidates := []string{a.UPN, a.Email}
	if a.Profile != nil {
		candidates = append(candidates, a.Profile.Email)
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}
