package export

import (
	"database/sql"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	// Blind import support for sqlite3 used by sql.go.
	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens the sqlite DB file at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open sqlite DB %q", path)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	return db, nil
}

type MySQLOptions struct {
	Server       string
	User         string
	PasswordFile string
	DBName       string
}

// OpenMySQL connects to a MySQL server, reading the password from a file.
func OpenMySQL(opts MySQLOptions) (*sql.DB, error) {
	pass, err := os.ReadFile(opts.PasswordFile)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read MySQL password file %q", opts.PasswordFile)
	}
	cfg := mysql.Config{
		User:                 opts.User,
		Passwd:               strings.TrimSpace(string(pass)),
		Net:                  "tcp",
		Addr:                 opts.Server,
		DBName:               opts.DBName,
		AllowNativePasswords: true,
	}
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open MySQL DB %q", opts.Server)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return db, nil
}
