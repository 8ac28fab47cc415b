// Command formctl fills and submits forms against a dynaform backend,
// keeping an offline queue of submissions in a local SQLite3 file.
package main

import (
	"database/sql"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mbolis/dynaform/client"
	"github.com/mbolis/dynaform/database"
	"github.com/mbolis/dynaform/log"
	"github.com/mbolis/dynaform/queue"
	"github.com/mbolis/dynaform/session"
)

func main() {
	root, e := newRootCmd()
	err := root.Execute()
	e.close()
	if err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand works with, opened once flags and
// configuration are known.
type env struct {
	v        *viper.Viper
	db       *sql.DB
	sessions *session.Store
	queue    *queue.Queue
	client   *client.Client
}

func newRootCmd() (*cobra.Command, *env) {
	e := &env{v: viper.New()}

	root := &cobra.Command{
		Use:          "formctl",
		Short:        "Fill and submit dynaform forms, online or offline",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("server", "http://localhost/api", "backend API base URL")
	flags.String("db", "formctl.sqlite", "local SQLite3 file holding the offline queue and the session")
	flags.Bool("debug", false, "log at DEBUG level")
	for _, name := range []string{"config", "server", "db", "debug"} {
		_ = e.v.BindPFlag(name, flags.Lookup(name))
	}
	e.v.SetEnvPrefix("FORMCTL")
	e.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	e.v.AutomaticEnv()

	root.AddCommand(
		loginCmd(e),
		logoutCmd(e),
		formsCmd(e),
		templatesCmd(e),
		submitCmd(e),
		queueCmd(e),
	)
	return root, e
}

func (e *env) open() error {
	if file := e.v.GetString("config"); file != "" {
		e.v.SetConfigFile(file)
		if err := e.v.ReadInConfig(); err != nil {
			return errors.Wrap(err, "config.read")
		}
	}
	if e.v.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(e.v.GetString("db"), database.Local)
	if err != nil {
		return err
	}
	e.db = db
	e.sessions = session.NewStore(db)
	e.queue = queue.New(db)
	e.client = client.New(e.v.GetString("server"), e.sessions)
	log.Debugf("formctl: server %s, local db %s", e.v.GetString("server"), e.v.GetString("db"))
	return nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
		e.db = nil
	}
}
