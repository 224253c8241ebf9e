package auth

import "github.com/jrsteele09/go-session-auth/users"

// Admit is the admission policy applied to every candidate account, both at
// login and on each session restore:
//  1. active accounts are admitted
//  2. inactive administrators are admitted so they can repair their tenant
//  3. anything else is rejected as account_not_active
func Admit(account *users.User) Outcome {
	if account == nil {
		return Rejected(ReasonUnknownAccount)
	}
	if account.Active {
		return Admitted(account)
	}
	if account.Admin {
		return Admitted(account)
	}
	return Rejected(ReasonAccountNotActive)
}
