package app

import (
	"database/sql"

	"github.com/formden/formden/config"
	"github.com/formden/formden/database"
	"github.com/go-chi/oauth"
)

type App struct {
	*sql.DB
	*database.Store
	*oauth.BearerServer
	config.Config
}
