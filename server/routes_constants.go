package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex  = "/"
	RouteHealth = "/healthz"

	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteOTPRequest = "/auth/otp/request"
	RouteOTPVerify  = "/auth/otp/verify"
	RouteMagicLink  = "/auth/magic-link"
	RouteAuthLogout = "/auth/logout"

	// Auth Routes - Single sign-on
	RouteSSO      = "/auth/sso"
	RouteCallback = "/callback"

	// Session Routes
	RouteDashboard    = "/dashboard"
	RouteSwitchTenant = "/tenants/switch"
	RouteProfile      = "/profile"

	// Admin Routes
	RouteAdmin = "/admin"
)
