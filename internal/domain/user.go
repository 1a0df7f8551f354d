package domain

// User is a platform account as we last saw it.
type User struct {
	ID    int64
	Login string
}
