package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"homework/internal/admin"
	"homework/internal/model"
)

func (cli *commandLine) admin(ctx context.Context, name string, args []string) error {
	c := admin.New(cli.api, cli.ui, cli.log)
	c.SetClock(cli.now)

	fs := cli.flagSet(name)
	var (
		id       = fs.Int64("id", 0, "Record id.")
		sid      = fs.String("sid", "", "Student number.")
		sname    = fs.String("name", "", "Student name.")
		hwID     = fs.Int64("homework", 0, "Assignment id.")
		course   = fs.String("course", "", "Course name.")
		title    = fs.String("title", "", "Assignment title.")
		deadline = fs.String("deadline", "", "Deadline, e.g. 2024-03-01T23:59.")
		req      = fs.String("req", "", "Assignment requirements.")
		missing  = fs.Bool("missing", false, "List students who have not submitted.")
		file     = fs.String("file", "", "Submitted file name.")
		output   = fs.String("o", "", "Output path, the file name by default.")
		date     = fs.String("date", "", "Leave date, today by default.")
		formats  formatList
	)
	fs.Var(&formats, "format", "File name pattern; repeat for several. Placeholders: {学号} {姓名} {作业编号}.")
	if err := parse(fs, args); err != nil {
		return err
	}
	usage := func() error {
		fs.Usage()
		return errHelp
	}

	switch name {
	case "students":
		if err := c.LoadStudents(ctx); err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\t学号\t姓名")
		for _, s := range c.Students() {
			fmt.Fprintf(w, "%d\t%s\t%s\n", s.ID, s.StudentID, s.Name)
		}
		return w.Flush()

	case "add-student":
		if *sid == "" || *sname == "" {
			return usage()
		}
		return c.AddStudent(ctx, model.StudentInput{StudentID: *sid, Name: *sname})

	case "update-student":
		if *id == 0 || *sid == "" || *sname == "" {
			return usage()
		}
		return c.UpdateStudent(ctx, model.ID(*id), model.StudentInput{StudentID: *sid, Name: *sname})

	case "delete-student":
		if *id == 0 {
			return usage()
		}
		return c.DeleteStudent(ctx, model.ID(*id))

	case "publish":
		if *course == "" || *title == "" || *deadline == "" || *req == "" {
			return usage()
		}
		c.NewDraft()
		c.SetDraft(*course, *title, *deadline, *req)
		applyFormats(c, formats)
		return c.SaveDraft(ctx)

	case "update-homework":
		if *id == 0 {
			return usage()
		}
		if err := c.LoadHomework(ctx); err != nil {
			return err
		}
		if err := c.EditDraft(model.ID(*id)); err != nil {
			cli.ui.Notify("作业不存在")
			return err
		}
		d, _ := c.Draft()
		c.SetDraft(or(*course, d.CourseName), or(*title, d.Title), or(*deadline, d.Deadline), or(*req, d.Requirements))
		if len(formats) > 0 {
			applyFormats(c, formats)
		}
		return c.SaveDraft(ctx)

	case "delete-homework":
		if *id == 0 {
			return usage()
		}
		return c.DeleteHomework(ctx, model.ID(*id))

	case "submissions":
		if *missing && *course == "" {
			fmt.Fprintln(cli.out, "请先选择课程")
			return usage()
		}
		if err := c.SetCourse(ctx, *course); err != nil {
			return err
		}
		if *missing {
			if err := c.ToggleMissing(ctx); err != nil {
				return err
			}
			w := cli.table()
			fmt.Fprintln(w, "课程\t作业\t学号\t姓名\t截止日期")
			for _, m := range c.Missing() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.CourseName, m.Title, m.StudentID, m.StudentName, m.Deadline)
			}
			return w.Flush()
		}
		w := cli.table()
		fmt.Fprintln(w, "作业\t学号\t姓名\t提交时间\t文件")
		for _, s := range c.Submissions() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.HomeworkID, s.StudentID, s.StudentName,
				model.FormatSubmitTime(s.SubmitTime, cli.loc), strings.Join(s.Filenames, ", "))
		}
		return w.Flush()

	case "download":
		if *hwID == 0 || *sid == "" || *file == "" {
			return usage()
		}
		return cli.download(ctx, c, model.Submission{HomeworkID: model.ID(*hwID), StudentID: *sid}, *file, *output)

	case "export":
		if *hwID == 0 {
			return usage()
		}
		_, err := c.ExportAll(ctx, model.ID(*hwID))
		return err

	case "leaves":
		if *date != "" {
			if err := c.SetDate(ctx, *date); err != nil {
				return err
			}
		} else if err := c.LoadLeaves(ctx); err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\t学号\t姓名\t类型\t原因\t提交时间\t状态")
		for _, l := range c.Leaves() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.StudentID, l.StudentName, l.LeaveType, l.Reason,
				model.FormatSubmitTime(l.SubmitTime, cli.loc), l.Status)
		}
		return w.Flush()

	case "approve", "reject":
		if *id == 0 {
			return usage()
		}
		if name == "approve" {
			return c.ApproveLeave(ctx, model.ID(*id))
		}
		return c.RejectLeave(ctx, model.ID(*id))

	case "clear-cache":
		return c.ClearCache(ctx)
	}
	return usage()
}

// applyFormats replaces the draft's patterns with formats.
func applyFormats(c *admin.Controller, formats formatList) {
	for c.RemoveFormat(0) {
	}
	for i, f := range formats {
		if i > 0 {
			c.AddFormat()
		}
		c.SetFormat(i, f)
	}
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (cli *commandLine) download(ctx context.Context, c *admin.Controller, sub model.Submission, filename, output string) error {
	if output == "" {
		output = filename
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	err = c.DownloadSubmission(ctx, sub, filename, f)
	err = errors.Join(err, f.Close())
	if err != nil {
		_ = os.Remove(output)
		return err
	}
	fmt.Fprintf(cli.out, "已保存到 %s\n", output)
	return nil
}
