package sqlite

import "github.com/edulearn/edulearn/internal/profile"

// Ensure the SQLite ledger implements the profile ledger interface.
var _ profile.Ledger = (*Ledger)(nil)
