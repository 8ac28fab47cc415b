package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/mbolis/dynaform/config"
)

// App bundles what the HTTP handlers share: the backend database, the token
// issuer, and the configuration.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
}
