package main

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/core/analytics"
	"github.com/trezcool/tasktrack/core/user"
)

// report writes the student report to out (the report filename when empty, stdout for "-")
// and mails it to `to` when set.
func (cli *commandLine) report(filter analytics.ReportFilter, out, to string) error {
	ctx := context.Background()

	var recipient *mail.Address
	if to != "" {
		var err error
		if recipient, err = mail.ParseAddress(to); err != nil {
			return errors.Wrap(err, "parsing recipient")
		}
	}

	profiles, err := cli.usrSvc.Query(ctx, user.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	tasks, err := cli.taskSvc.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}

	now := cli.taskSvc.Now()
	filename := analytics.ReportFilename(filter, now)
	var buf bytes.Buffer
	rows, err := analytics.WriteStudentReport(&buf, profiles, tasks, filter, now)
	if err != nil {
		return err
	}

	switch out {
	case "-":
		if _, err := cli.out.Write(buf.Bytes()); err != nil {
			return err
		}
	default:
		if out == "" {
			out = filename
		}
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return errors.Wrap(err, "writing report")
		}
		fmt.Fprintf(cli.out, "%d students written to %s\n", rows, out)
	}

	if recipient == nil {
		return nil
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{*recipient},
		Subject:      "Student report",
		TemplateName: "report",
		TemplateData: map[string]interface{}{
			"Filter": filter.FileTag(),
			"Date":   now.Format("2006-01-02"),
			"Rows":   rows,
		},
	}
	if err := msg.Attach(bytes.NewReader(buf.Bytes()), filename, analytics.ReportContentType); err != nil {
		return errors.Wrap(err, "attaching report")
	}
	cli.mailSvc.SendMessages(msg)
	return nil
}

// scanOverdue runs one overdue scan over every student.
func (cli *commandLine) scanOverdue() error {
	sent, err := cli.taskSvc.ScanOverdue(context.Background(), "", cli.taskSvc.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d overdue notification(s) sent\n", sent)
	return nil
}
