package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Root path: the unauthenticated sign-in view
	RouteRoot = "/"

	// Dashboard path: the authenticated view
	RouteDashboard = "/dashboard"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Health probe
	RouteHealth = "/healthz"
)

const contentTypeHTML = "text/html; charset=utf-8"
