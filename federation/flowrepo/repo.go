// Package flowrepo keeps the short-lived state of federated logins between the
// redirect to the identity provider and the callback.
package flowrepo

import (
	"context"
	"time"
)

// FlowState is what the callback needs to finish a login started earlier.
type FlowState struct {
	TenantID     string
	CodeVerifier string
	Nonce        string
	ReturnURL    string
	CreatedAt    time.Time
}

// Repo stores flow states by their OAuth2 state parameter. Take returns and
// removes the entry in one step so a state can be redeemed only once.
type Repo interface {
	Upsert(ctx context.Context, state string, flow *FlowState) error
	Take(ctx context.Context, state string) (*FlowState, error)
}
