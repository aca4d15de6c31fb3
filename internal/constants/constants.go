package constants

const (
	// ContextKeyUserID is the gin context key holding the authenticated user id.
	ContextKeyUserID = "userID"

	// ContextKeyCollection holds the document collection named in the request path.
	ContextKeyCollection = "collection"

	// SessionCookieName names the session cookie shared by the API and its clients.
	SessionCookieName = "worklog_session"

	MinPasswordLength = 8

	// IfMatchHeader carries the expected document version of a conditional write.
	IfMatchHeader = "If-Match"

	// WorkdayHours is the length of a working day used by the timesheet.
	WorkdayHours = 8.0
)
