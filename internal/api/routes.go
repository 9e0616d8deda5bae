package api

const (
	HealthCheckRoute = "/healthz"
	AboutRoute       = "/aboutz"

	LoginRoute    = "/v1/session/login"
	ValidateRoute = "/v1/session/validate/{tokenId}"
	RefreshRoute  = "/v1/session/refresh"

	BackchannelLogoutRoute = "/v1/backchannel/logout"

	AdminParent       = "/v1/admin/"
	SweepRoute        = AdminParent + "sweep"
	ListSessionsRoute = AdminParent + "sessions"
	ListAuditsRoute   = AdminParent + "audits"

	TaskParent       = AdminParent + "tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
