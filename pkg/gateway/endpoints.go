package gateway

import "net/url"

// AuthEndpoints are the session endpoints.
type AuthEndpoints struct {
	Login, Register, Logout, RefreshToken, Me string
	ResetPassword, ResetPasswordConfirm       string
	VerifyEmail                               string
}

// UserEndpoints are the profile endpoints.
type UserEndpoints struct {
	Base, Profile, Password, Settings, Avatar string
}

// EndpointTable lists backend paths relative to the base URL.
type EndpointTable struct {
	Auth  AuthEndpoints
	Users UserEndpoints

	Projects, Tasks, Teams, Comments        string
	Notifications, NotificationsMarkRead    string
	NotificationsSettings, Search, Dashboard string
}

// Endpoints is the backend API layout.
var Endpoints = EndpointTable{
	Auth: AuthEndpoints{
		Login:                "/auth/login",
		Register:             "/auth/register",
		Logout:               "/auth/logout",
		RefreshToken:         "/auth/refresh-token",
		Me:                   "/auth/me",
		ResetPassword:        "/auth/reset-password",
		ResetPasswordConfirm: "/auth/reset-password/confirm",
		VerifyEmail:          "/auth/verify-email",
	},
	Users: UserEndpoints{
		Base:     "/users",
		Profile:  "/users/profile",
		Password: "/users/profile/password",
		Settings: "/users/settings",
		Avatar:   "/users/avatar",
	},
	Projects:              "/projects",
	Tasks:                 "/tasks",
	Teams:                 "/teams",
	Comments:              "/comments",
	Notifications:         "/notifications",
	NotificationsMarkRead: "/notifications/mark-read",
	NotificationsSettings: "/notifications/settings",
	Search:                "/search",
	Dashboard:             "/dashboard",
}

// Resource builds "<base>/<id>[/<sub>...]", escaping id.
// Resource(Endpoints.Projects, "p1", "tasks") is "/projects/p1/tasks".
func Resource(base, id string, sub ...string) string {
	p := base + "/" + url.PathEscape(id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}
