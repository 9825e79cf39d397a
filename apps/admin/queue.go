package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gigamonkey/help/core/help"
)

const timeLayout = "2006-01-02 15:04"

func (cli *commandLine) printQueue(classID string, status help.Status) error {
	if !validStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	items, err := cli.helpSvc.List(context.Background(), classID, status)
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(items))
	for _, r := range items {
		name := r.Name.String
		if name == "" {
			name = r.Requester
		}
		rows = append(rows, []interface{}{r.ID, name, r.Problem, cli.formatUnix(r.CreatedAt), r.Helper.String})
	}
	_, _ = fmt.Fprintln(cli.out, renderTable([]string{"#", "Student", "Problem", "Asked", "Helper"}, rows, 1))
	_, _ = fmt.Fprintf(cli.out, "%d %s\n", len(items), status)
	return nil
}

func validStatus(status help.Status) bool {
	for _, s := range help.AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (cli *commandLine) formatUnix(ts int64) string {
	return time.Unix(ts, 0).In(cli.loc).Format(timeLayout)
}
