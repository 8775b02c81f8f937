package model

// Identity is the authenticated caller for a single request.
// It is constructed once by the auth middleware from a verified token,
// attached to the request context, and discarded when the request ends.
// It carries exactly the fields authorization decisions need and is
// never persisted or shared across requests.
type Identity struct {
	UserID   string
	Username string
	Enabled  bool
}
