package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	rostersvc "github.com/gigamonkey/help/services/roster"
)

func (cli *commandLine) createClass(id, name, teacher string) error {
	cls, err := cli.classSvc.Create(context.Background(), id, name, teacher)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "created class %s (%s)\n", cls.ID, cls.Name)
	return nil
}

// loadClass adds the students listed in a Classroom roster export to a class.
func (cli *commandLine) loadClass(classID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening roster file")
	}
	defer func() { _ = f.Close() }()

	students, err := rostersvc.ReadStudents(f)
	if err != nil {
		return err
	}
	if err = cli.classSvc.AddStudents(context.Background(), classID, students); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "loaded %d students into %s\n", len(students), classID)
	return nil
}
