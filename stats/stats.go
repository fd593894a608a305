// Package stats keeps a per-player scoreboard of joins, kills and deaths in
// an SQL database.
//
// A plain path opens (and creates) an SQLite3 database. A postgres:// or
// postgresql:// URL opens a PostgreSQL one instead.
package stats

import (
	"database/sql"
	"strings"

	"github.com/golang/glog"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Both SQLite3 and PostgreSQL accept this schema and the $n placeholders
// below.
const initSQL = `CREATE TABLE IF NOT EXISTS players (
	name VARCHAR(255) NOT NULL PRIMARY KEY,
	joins INTEGER NOT NULL DEFAULT 0,
	kills INTEGER NOT NULL DEFAULT 0,
	deaths INTEGER NOT NULL DEFAULT 0
);
`

const (
	sqlJoin = `INSERT INTO players (name, joins) VALUES ($1, 1)
	ON CONFLICT (name) DO UPDATE SET joins = players.joins + 1`
	sqlDeath = `INSERT INTO players (name, deaths) VALUES ($1, 1)
	ON CONFLICT (name) DO UPDATE SET deaths = players.deaths + 1`
	sqlKill = `INSERT INTO players (name, kills) VALUES ($1, 1)
	ON CONFLICT (name) DO UPDATE SET kills = players.kills + 1`
	sqlScoreboard = `SELECT name, joins, kills, deaths FROM players
	ORDER BY kills DESC, deaths ASC, name ASC`
)

// Entry is one row of the scoreboard.
type Entry struct {
	Name   string `json:"name"`
	Joins  int    `json:"joins"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

type Store struct {
	db *sql.DB
}

func driverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite3"
}

// Open opens the database named by dsn and creates the scoreboard table if
// needed.
func Open(dsn string) (*Store, error) {
	driver := driverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if driver == "sqlite3" {
		// One writer at a time; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(initSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating scoreboard table")
	}
	glog.Infof("scoreboard kept in %s database", driver)
	return &Store{db: db}, nil
}

func (s *Store) RecordJoin(name string) error {
	if _, err := s.db.Exec(sqlJoin, name); err != nil {
		return errors.Wrapf(err, "recording join of %q", name)
	}
	return nil
}

// RecordDeath counts a death for victim and, if killer is set and is not the
// victim, a kill for killer.
func (s *Store) RecordDeath(victim, killer string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "recording death")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqlDeath, victim); err != nil {
		return errors.Wrapf(err, "recording death of %q", victim)
	}
	if killer != "" && killer != victim {
		if _, err := tx.Exec(sqlKill, killer); err != nil {
			return errors.Wrapf(err, "recording kill by %q", killer)
		}
	}
	return errors.Wrap(tx.Commit(), "recording death")
}

// Scoreboard returns every player, most kills first.
func (s *Store) Scoreboard() ([]Entry, error) {
	rows, err := s.db.Query(sqlScoreboard)
	if err != nil {
		return nil, errors.Wrap(err, "reading scoreboard")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Joins, &e.Kills, &e.Deaths); err != nil {
			return nil, errors.Wrap(err, "reading scoreboard row")
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "reading scoreboard")
}

func (s *Store) Close() error {
	return s.db.Close()
}
