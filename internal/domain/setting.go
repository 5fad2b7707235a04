package domain

// Setting is a persisted key/value pair such as the system prompt override.
type Setting struct {
	PK        string
	SK        string
	Key       string
	Value     string
	UpdatedAt string
}
