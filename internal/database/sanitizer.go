package database

import (
	"bufio"
	"io"
	"regexp"
)

// definerPattern matches the DEFINER clause mysqldump attaches to
// routines, triggers, views, and events, including the forms that
// appear inside versioned comments. A definer referencing an account
// that does not exist on the destination makes the restore fail, so
// the clause is dropped and the objects fall back to the invoker.
var definerPattern = regexp.MustCompile("DEFINER=(`[^`]*`|'[^']*'|\"[^\"]*\"|[^ \t,;*]+)@(`[^`]*`|'[^']*'|\"[^\"]*\"|[^ \t,;*]+)")

// StripDefiners removes DEFINER clauses from one line of dump output.
func StripDefiners(line string) string {
	return definerPattern.ReplaceAllString(line, "")
}

// Sanitize copies a SQL dump from reader to writer with DEFINER
// clauses removed. The dump is processed line by line; mysqldump never
// splits a DEFINER clause across lines.
func Sanitize(reader io.Reader, writer io.Writer) error {
	bufferedReader := bufio.NewReader(reader)

	for {
		line, err := bufferedReader.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(writer, StripDefiners(line)); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
