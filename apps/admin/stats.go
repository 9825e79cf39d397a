package main

import (
	"context"
	"fmt"

	"github.com/gigamonkey/help/core"
)

func (cli *commandLine) printStats(classID, ordering string) error {
	stats, err := cli.classSvc.StudentStats(context.Background(), classID, core.ParseOrdering(ordering))
	if err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []interface{}{s.Name, s.Email, s.JournalEntries, s.JournalDays, s.HelpRequests})
	}
	headers := []string{"Name", "Email", "Journal entries", "Journal days", "Help requests"}
	_, _ = fmt.Fprintln(cli.out, renderTable(headers, rows, 3, 4, 5))
	return nil
}
