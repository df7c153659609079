package auth

// Scopes understood by the journal API.
const (
	ScopeJournalRead  = "journal:read"
	ScopeJournalWrite = "journal:write"
)
