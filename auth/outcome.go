package auth

import (
	"fmt"

	"github.com/jrsteele09/go-session-auth/users"
)

// Status tags a verification Outcome.
type Status int

const (
	StatusAdmitted Status = iota + 1
	StatusRejected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusAdmitted:
		return "admitted"
	case StatusRejected:
		return "rejected"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Reason explains an expected, user-attributable rejection. Rejections are
// never retried.
type Reason string

const (
	ReasonUnknownAccount        Reason = "unknown_account"
	ReasonBadCredential         Reason = "bad_credential"
	ReasonAccountNotActive      Reason = "account_not_active"
	ReasonNoTenant              Reason = "no_tenant"
	ReasonFederationDisabled    Reason = "federation_disabled"
	ReasonDirectoryDisabled     Reason = "directory_disabled"
	ReasonPasswordLoginDisabled Reason = "password_login_disabled"
	ReasonStrategyDisabled      Reason = "strategy_disabled"
	ReasonTenantMismatch        Reason = "tenant_mismatch"
	ReasonInvalidToken          Reason = "invalid_token"
	ReasonNotAdmin              Reason = "not_admin"
	ReasonSessionInvalid        Reason = "session_invalid"
)

// Cause names an infrastructure fault.
type Cause string

const (
	CauseStoreFailure         Cause = "store_failure"
	CauseDirectoryUnreachable Cause = "directory_unreachable"
	CauseCorruptCredential    Cause = "corrupt_credential"
	CauseNoEmailInAssertion   Cause = "no_email_in_assertion"
	CauseNoAssertion          Cause = "no_assertion"
)

// PublicFailureMessage is shown to callers for every non-admitted outcome so
// rejections and faults cannot be told apart from outside.
const PublicFailureMessage = "authentication failed"

// Outcome is the result of one verification attempt. Exactly one of Account
// (admitted), Reason (rejected) or Cause (error) is meaningful.
type Outcome struct {
	Status  Status
	Account *users.User
	Reason  Reason
	Cause   Cause
	Err     error
}

// Admitted marks a candidate account. It becomes a session only after the
// admission policy has run on it.
func Admitted(account *users.User) Outcome {
	return Outcome{Status: StatusAdmitted, Account: account}
}

func Rejected(reason Reason) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason}
}

// Failed builds an error outcome. err may be nil.
func Failed(cause Cause, err error) Outcome {
	return Outcome{Status: StatusError, Cause: cause, Err: err}
}

func (o Outcome) IsAdmitted() bool { return o.Status == StatusAdmitted }
func (o Outcome) IsRejected() bool { return o.Status == StatusRejected }
func (o Outcome) IsError() bool    { return o.Status == StatusError }

// Retryable is true only for transient infrastructure faults.
func (o Outcome) Retryable() bool {
	if o.Status != StatusError {
		return false
	}
	return o.Cause == CauseStoreFailure || o.Cause == CauseDirectoryUnreachable
}

// Label is the reason or cause, used for logs and metrics.
func (o Outcome) Label() string {
	switch o.Status {
	case StatusRejected:
		return string(o.Reason)
	case StatusError:
		return string(o.Cause)
	}
	return ""
}

// PublicMessage is safe to return to any client.
func (o Outcome) PublicMessage() string {
	if o.IsAdmitted() {
		return ""
	}
	return PublicFailureMessage
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusAdmitted:
		if o.Account != nil {
			return fmt.Sprintf("admitted(%s)", o.Account.ID)
		}
		return "admitted"
	case StatusRejected:
		return fmt.Sprintf("rejected(%s)", o.Reason)
	case StatusError:
		return fmt.Sprintf("error(%s)", o.Cause)
	}
	return "unknown"
}
