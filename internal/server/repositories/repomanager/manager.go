package repomanager

import (
	"context"
	"database/sql"

	"authd/internal/dbx"
	"authd/internal/server/repositories/resettokens"
	"authd/internal/server/repositories/sessions"
	"authd/internal/server/repositories/users"
	"authd/internal/server/repositories/verificationcodes"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run several repository calls inside one transaction.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	VerificationCodes(db dbx.DBTX) verificationcodes.Repository
	ResetTokens(db dbx.DBTX) resettokens.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
