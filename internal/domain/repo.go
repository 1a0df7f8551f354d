package domain

// Repo is the slice of a platform repository the bot needs: behavior
// configuration is keyed by FullName, comment links are built from HTMLURL.
type Repo struct {
	ID       int64
	FullName string
	HTMLURL  string
}
