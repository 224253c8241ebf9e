package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - Federated
	RouteFederatedLogin    = "/auth/federated/{tenantID}/login"
	RouteFederatedCallback = "/auth/federated/callback"

	// Session Routes
	RouteSession = "/session"

	// API Routes (bearer token)
	RouteAPIWhoAmI       = "/api/whoami"
	RouteAPITenantConfig = "/api/tenants/{tenantID}/config"

	// Operations
	RouteMetrics = "/metrics"
)
