package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/tenants"
)

// GetTenantConfigHandler returns the redacted configuration of the tenant.
func (s *Server) GetTenantConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.loadTenant(r.Context(), r.PathValue("tenantID"))
		if err != nil {
			s.writeTenantError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tenant.Public())
	}
}

// tenantConfigResponse carries a newly generated integration API token. It is
// only ever returned by the update that created it.
type tenantConfigResponse struct {
	tenants.PublicConfig
	IntegrationAPIToken string `json:"integration_api_token,omitempty"`
}

// PutTenantConfigHandler replaces the tenant configuration. Secrets omitted
// from the body keep their stored value.
func (s *Server) PutTenantConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, err := s.loadTenant(r.Context(), r.PathValue("tenantID"))
		if err != nil {
			s.writeTenantError(w, err)
			return
		}

		var update tenants.Config
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			writeJSONError(w, "invalid_request", "invalid request body", http.StatusBadRequest)
			return
		}

		merged := tenant.Config.Merge(update)
		var generatedToken string
		if merged.IntegrationAPI.Enabled && merged.IntegrationAPI.Token == "" {
			generatedToken = tenants.NewIntegrationToken()
			merged.IntegrationAPI.Token = generatedToken
		}
		if err := merged.Validate(); err != nil {
			writeJSONError(w, "invalid_config", err.Error(), http.StatusBadRequest)
			return
		}

		tenant.Config = merged
		if err := s.tenants.Upsert(r.Context(), tenant); err != nil {
			s.writeTenantError(w, err)
			return
		}
		if s.federation != nil {
			s.federation.Forget(tenant.ID)
		}

		principal, _ := PrincipalFromContext(r.Context())
		s.logger.Info().
			Str("tenant_id", tenant.ID).
			Str("account_id", principal.ID).
			Str("strategy", string(StrategyFromContext(r.Context()))).
			Bool("api_token_generated", generatedToken != "").
			Msg("tenant configuration updated")
		writeJSON(w, http.StatusOK, tenantConfigResponse{PublicConfig: tenant.Public(), IntegrationAPIToken: generatedToken})
	}
}

func (s *Server) writeTenantError(w http.ResponseWriter, err error) {
	if apperrors.NotFound(err) {
		writeJSONError(w, "not_found", "tenant not found", http.StatusNotFound)
		return
	}
	s.logger.Error().Err(err).Msg("tenant repository failure")
	writeJSONError(w, "temporarily_unavailable", "try again later", http.StatusServiceUnavailable)
}
