package config

import "time"

const (
	flowTTLVar     = "FEDERATED_FLOW_TTL"
	callbackURLVar = "FEDERATED_CALLBACK_URL"
)

type Federation struct{}

var _ FederationConfig = Federation{}

// GetFlowTTL bounds the time between the redirect to an identity provider and
// its callback.
func (Federation) GetFlowTTL() time.Duration {
	return GetDuration(flowTTLVar, 10*time.Minute)
}

func (Federation) GetFederatedCallbackURL() string {
	return GetEnv(callbackURLVar, EnvVars{}.GetBaseURL()+"/auth/federated/callback")
}
