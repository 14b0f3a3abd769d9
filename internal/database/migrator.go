package database

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Source runs commands on the source host.
type Source interface {
	Run(name string, args ...string) (string, error)
	Stream(w io.Writer, name string, args ...string) error
}

// Admin executes administrative statements on the destination server.
type Admin interface {
	Exec(statement string) error
}

// SQLAdmin is an Admin over a database/sql handle.
type SQLAdmin struct {
	DB *sql.DB
}

// Exec runs a single statement on the destination server.
func (a *SQLAdmin) Exec(statement string) error {
	_, err := a.DB.Exec(statement)
	return err
}

// Options configures a Migrator.
type Options struct {
	// DumpDir is the per-run directory holding dump files.
	DumpDir string
	// MySQLPath is the local client binary used for restores.
	MySQLPath string
	// KeepDefiners disables DEFINER stripping in dumps.
	KeepDefiners bool
	// Out receives status lines.
	Out io.Writer
}

// Migrator moves an account's databases from the source server to this
// one: dump over SSH, create, restore, then best-effort user and grant
// replication.
type Migrator struct {
	source       Source
	admin        Admin
	dumpDir      string
	mysqlPath    string
	keepDefiners bool
	out          io.Writer

	// restore is swappable for tests.
	restore func(database, dumpPath string) error
}

// NewMigrator creates a database migrator.
func NewMigrator(source Source, admin Admin, opts Options) *Migrator {
	if opts.MySQLPath == "" {
		opts.MySQLPath = "mysql"
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	m := &Migrator{
		source:       source,
		admin:        admin,
		dumpDir:      opts.DumpDir,
		mysqlPath:    opts.MySQLPath,
		keepDefiners: opts.KeepDefiners,
		out:          opts.Out,
	}
	m.restore = m.restoreLocal
	return m
}

// validName permits the characters MySQL allows in unquoted schema and
// account names. Everything interpolated into SQL or a remote command
// line must pass it first.
var validName = regexp.MustCompile(`^[A-Za-z0-9$_.-]+$`)

// Discover lists the account's databases on the source server: the
// bare username schema plus every `username_*` match, in catalog
// order. An empty result is not an error.
func (m *Migrator) Discover(username string) ([]string, error) {
	if !validName.MatchString(username) {
		return nil, fmt.Errorf("invalid account username %q", username)
	}

	query := fmt.Sprintf(
		"SHOW DATABASES WHERE `Database` = '%s' OR `Database` LIKE '%s\\_%%'",
		username, username)
	out, err := m.source.Run("mysql", "-N", "-B", "-e", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list source databases: %w", err)
	}

	var databases []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			databases = append(databases, name)
		}
	}
	return databases, nil
}

// Migrate dumps, creates, and restores each database in order. The
// first dump or restore failure aborts the whole migration; the
// in-flight dump file is removed either way. Once every database is in
// place, matching users and grants are replicated best-effort.
func (m *Migrator) Migrate(username string, databases []string) error {
	if len(databases) == 0 {
		fmt.Fprintf(m.out, "Warning: no databases found for account %s, skipping database migration\n", username)
		return nil
	}

	for _, database := range databases {
		if !validName.MatchString(database) {
			return fmt.Errorf("invalid database name %q", database)
		}

		dumpPath := filepath.Join(m.dumpDir, database+".sql")
		fmt.Fprintf(m.out, "Migrating database %s...\n", database)

		if err := m.dump(database, dumpPath); err != nil {
			os.Remove(dumpPath)
			return fmt.Errorf("failed to dump database %s: %w", database, err)
		}

		if err := m.admin.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", database)); err != nil {
			os.Remove(dumpPath)
			return fmt.Errorf("failed to create database %s: %w", database, err)
		}

		err := m.restore(database, dumpPath)
		// Dump removal is best-effort and must never mask a
		// restore failure.
		os.Remove(dumpPath)
		if err != nil {
			return fmt.Errorf("failed to restore database %s: %w", database, err)
		}
	}

	m.replicateUsers(username)
	m.replicateGrants(username)
	return nil
}

// dump streams a transactionally consistent dump of one database into
// a local file, stripping DEFINER clauses unless configured otherwise.
func (m *Migrator) dump(database, dumpPath string) error {
	file, err := os.OpenFile(dumpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	args := []string{"--single-transaction", "--routines", "--triggers", "--events", database}

	if m.keepDefiners {
		return m.source.Stream(file, "mysqldump", args...)
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := Sanitize(pr, file)
		// Unblock the streaming side if the local write failed
		// mid-dump; Stream would otherwise wait forever on the pipe.
		pr.CloseWithError(err)
		done <- err
	}()

	streamErr := m.source.Stream(pw, "mysqldump", args...)
	pw.CloseWithError(streamErr)
	sanitizeErr := <-done

	if streamErr != nil {
		return streamErr
	}
	return sanitizeErr
}

// restoreLocal pipes a dump file into the local mysql client.
func (m *Migrator) restoreLocal(database, dumpPath string) error {
	file, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer file.Close()

	cmd := exec.Command(m.mysqlPath, database)
	cmd.Stdin = file

	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// replicateUsers copies matching MySQL account definitions from the
// source server. Failures here are reported and swallowed: a partially
// replicated set of users is acceptable, unlike a partially restored
// database.
func (m *Migrator) replicateUsers(username string) {
	query := fmt.Sprintf(
		"SELECT User, Host, plugin, authentication_string FROM mysql.user WHERE User = '%s' OR User LIKE '%s\\_%%'",
		username, username)
	out, err := m.source.Run("mysql", "-N", "-B", "-e", query)
	if err != nil {
		fmt.Fprintf(m.out, "Warning: could not read source users for %s: %v\n", username, err)
		return
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}

		user, host := fields[0], fields[1]
		stmt := fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%s'", escapeSQL(user), escapeSQL(host))
		if len(fields) >= 4 && fields[2] != "" && fields[3] != "" {
			stmt += fmt.Sprintf(" IDENTIFIED WITH %s AS '%s'", fields[2], escapeSQL(fields[3]))
		}

		if err := m.admin.Exec(stmt); err != nil {
			fmt.Fprintf(m.out, "Warning: could not create user %s@%s: %v\n", user, host, err)
		}
	}
}

// replicateGrants replays the exact username's grants, skipping pure
// USAGE grants, which carry no privileges. Best-effort like
// replicateUsers.
func (m *Migrator) replicateGrants(username string) {
	hostsQuery := fmt.Sprintf("SELECT Host FROM mysql.user WHERE User = '%s'", username)
	out, err := m.source.Run("mysql", "-N", "-B", "-e", hostsQuery)
	if err != nil {
		fmt.Fprintf(m.out, "Warning: could not read source hosts for %s: %v\n", username, err)
		return
	}

	for _, host := range strings.Split(out, "\n") {
		host = strings.TrimSpace(host)
		if host == "" {
			continue
		}

		grantsQuery := fmt.Sprintf("SHOW GRANTS FOR '%s'@'%s'", username, escapeSQL(host))
		grants, err := m.source.Run("mysql", "-N", "-B", "-e", grantsQuery)
		if err != nil {
			fmt.Fprintf(m.out, "Warning: could not read grants for %s@%s: %v\n", username, host, err)
			continue
		}

		for _, grant := range strings.Split(grants, "\n") {
			grant = strings.TrimSpace(grant)
			if grant == "" || strings.HasPrefix(grant, "GRANT USAGE ON") {
				continue
			}
			if err := m.admin.Exec(grant); err != nil {
				fmt.Fprintf(m.out, "Warning: could not apply grant for %s@%s: %v\n", username, host, err)
			}
		}
	}
}

// escapeSQL escapes a value for inclusion in a single-quoted SQL
// string literal.
func escapeSQL(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
