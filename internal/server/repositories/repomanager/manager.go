package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/docchat/internal/dbx"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/chats"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/documents"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/docchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can
// use the same repositories inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Chats(db dbx.DBTX) chats.Repository
	Documents(db dbx.DBTX) documents.Repository
	RevokedTokens(db dbx.DBTX) revokedtokens.Repository
}
