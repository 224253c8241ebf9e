package server

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.LoginMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	if s.federation != nil {
		s.RegisterRouteFunc("GET "+RouteFederatedLogin, ChainMiddleware(s.FederatedLoginHandler(), s.LoginMiddleware()...))
		s.RegisterRouteFunc("GET "+RouteFederatedCallback, ChainMiddleware(s.FederatedCallbackHandler(), s.LoginMiddleware()...))
		s.RegisterRouteFunc("POST "+RouteFederatedCallback, ChainMiddleware(s.FederatedCallbackHandler(), s.LoginMiddleware()...)) // For form_post response mode
	}

	// Session routes
	s.RegisterRouteFunc("GET "+RouteSession, ChainMiddleware(s.PrincipalHandler(), s.APIMiddleware(s.RequireSession())...))

	// Integration API routes
	s.RegisterRouteFunc("GET "+RouteAPIWhoAmI, ChainMiddleware(s.PrincipalHandler(), s.APIMiddleware(s.RequireBearer())...))

	// Tenant settings, for logged-in administrators and integration callers
	s.RegisterRouteFunc("GET "+RouteAPITenantConfig, ChainMiddleware(s.GetTenantConfigHandler(), s.APIMiddleware(s.RequireSessionOrBearer(), s.RequireTenantAdmin())...))
	s.RegisterRouteFunc("PUT "+RouteAPITenantConfig, ChainMiddleware(s.PutTenantConfigHandler(), s.APIMiddleware(s.RequireSessionOrBearer(), s.RequireTenantAdmin())...))

	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics)
	}
}
