package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+s.guard.LoginPath, ChainMiddleware(s.LoginPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteOTPRequest, ChainMiddleware(s.OTPRequestHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteOTPVerify, ChainMiddleware(s.OTPVerifyHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteMagicLink, ChainMiddleware(s.MagicLinkHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSSO, ChainMiddleware(s.SSOStartHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.CallbackMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.CallbackMiddleWare()...)) // For form_post response mode

	// Session-guarded routes
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteSwitchTenant, ChainMiddleware(s.SwitchTenantHandler(), s.HTMLMiddleWare(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteProfile, ChainMiddleware(s.ProfileUpdateHandler(), s.HTMLMiddleWare(s.RequireSession())...))

	// Role-gated routes
	s.RegisterRouteHandler("GET "+RouteAdmin, ChainMiddleware(s.AdminHandler(), s.HTMLMiddleWare(s.RequireSession(), s.RequireRoles(s.admin))...))
}
