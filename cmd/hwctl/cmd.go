package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"homework/internal/apiclient"
	"homework/internal/auth"
	"homework/internal/model"
	"homework/internal/notice"
	"homework/internal/query"
	"homework/internal/submit"
	"homework/internal/view"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	api *apiclient.Client
	ui  view.UI
	out io.Writer
	log *zap.Logger
	loc *time.Location
	now func() time.Time
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  notice                                             - show the update notice")
	fmt.Fprintln(cli.out, "  homework                                           - list assignments")
	fmt.Fprintln(cli.out, "  submit -homework ID -sid SID -name NAME FILE...    - submit homework files")
	fmt.Fprintln(cli.out, "  query [-sid SID] [-name NAME]                      - look up past submissions")
	fmt.Fprintln(cli.out, "  resubmit -homework ID -sid SID -name NAME          - clear a submission to upload again")
	fmt.Fprintln(cli.out, "  leave -sid SID -name NAME -type TYPE -reason TEXT [IMAGE...] - request leave")
	fmt.Fprintln(cli.out, "")
	fmt.Fprintln(cli.out, "  login                                              - print an admin token, password is prompted")
	fmt.Fprintln(cli.out, "  hash-password                                      - print a bcrypt hash for ADMIN_PASSWORD_HASH")
	fmt.Fprintln(cli.out, "  students                                           - list students")
	fmt.Fprintln(cli.out, "  add-student -sid SID -name NAME")
	fmt.Fprintln(cli.out, "  update-student -id ID -sid SID -name NAME")
	fmt.Fprintln(cli.out, "  delete-student -id ID")
	fmt.Fprintln(cli.out, "  publish -course C -title T -deadline D -req R [-format F]...")
	fmt.Fprintln(cli.out, "  update-homework -id ID [-course C] [-title T] [-deadline D] [-req R] [-format F]...")
	fmt.Fprintln(cli.out, "  delete-homework -id ID")
	fmt.Fprintln(cli.out, "  submissions [-course C] [-missing]")
	fmt.Fprintln(cli.out, "  download -homework ID -sid SID -file NAME [-o PATH]")
	fmt.Fprintln(cli.out, "  export -homework ID                                - copy all files to a server directory")
	fmt.Fprintln(cli.out, "  leaves [-date YYYY-MM-DD]")
	fmt.Fprintln(cli.out, "  approve -id ID | reject -id ID")
	fmt.Fprintln(cli.out, "  clear-cache")
}

// formatList collects a repeated -format flag.
type formatList []string

func (f *formatList) String() string { return strings.Join(*f, ",") }

func (f *formatList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	name, rest := args[1], args[2:]
	switch name {
	case "notice":
		return cli.notice(ctx)
	case "homework":
		return cli.homework(ctx)
	case "submit":
		return cli.submit(ctx, rest)
	case "query":
		return cli.query(ctx, rest)
	case "resubmit":
		return cli.resubmit(ctx, rest)
	case "leave":
		return cli.leave(ctx, rest)
	case "login":
		return cli.login(ctx)
	case "hash-password":
		return cli.hashPassword()
	case "students", "add-student", "update-student", "delete-student",
		"publish", "update-homework", "delete-homework",
		"submissions", "download", "export",
		"leaves", "approve", "reject", "clear-cache":
		return cli.admin(ctx, name, rest)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
}

func (cli *commandLine) notice(ctx context.Context) error {
	c := notice.New(cli.api, cli.log)
	c.Fetch(ctx)
	if c.Text() != "" {
		fmt.Fprintln(cli.out, c.Text())
	}
	return nil
}

func (cli *commandLine) homework(ctx context.Context) error {
	c := submit.New(cli.api, cli.ui, cli.log)
	c.SetClock(cli.now)
	if err := c.Load(ctx); err != nil {
		return err
	}
	w := cli.table()
	fmt.Fprintln(w, "ID\t课程\t标题\t截止日期\t状态")
	for _, h := range c.Homework() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", h.ID, h.CourseName, h.Title, h.Deadline, c.Status(h).Text())
	}
	return w.Flush()
}

func openFiles(paths []string) ([]apiclient.File, func(), error) {
	var (
		files   []apiclient.File
		handles []*os.File
	)
	closeAll := func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		handles = append(handles, f)
		files = append(files, apiclient.File{Name: filepath.Base(p), Content: f})
	}
	return files, closeAll, nil
}

func (cli *commandLine) submit(ctx context.Context, args []string) error {
	fs := cli.flagSet("submit")
	hwID := fs.Int64("homework", 0, "Assignment id.")
	sid := fs.String("sid", "", "Student number.")
	name := fs.String("name", "", "Student name.")
	desc := fs.String("desc", "", "Optional description.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *hwID == 0 || *sid == "" || *name == "" {
		fs.Usage()
		return errHelp
	}

	files, closeAll, err := openFiles(fs.Args())
	if err != nil {
		return err
	}
	defer closeAll()

	c := submit.New(cli.api, cli.ui, cli.log)
	c.SetClock(cli.now)
	if err := c.Load(ctx); err != nil {
		return err
	}
	if _, err := c.Select(model.ID(*hwID)); err != nil {
		cli.ui.Notify("作业不存在")
		return err
	}
	c.SetForm(submit.Form{StudentName: *name, StudentID: *sid, Description: *desc})
	c.SelectFiles(files)
	return c.Submit(ctx)
}

func (cli *commandLine) query(ctx context.Context, args []string) error {
	fs := cli.flagSet("query")
	sid := fs.String("sid", "", "Student number.")
	name := fs.String("name", "", "Student name.")
	if err := parse(fs, args); err != nil {
		return err
	}

	c := query.New(cli.api, cli.ui, cli.log, cli.loc)
	c.SetParams(*sid, *name)
	if err := c.Search(ctx); err != nil {
		return err
	}
	res := c.Results()
	if len(res) == 0 {
		fmt.Fprintln(cli.out, "没有找到提交记录")
		return nil
	}
	w := cli.table()
	fmt.Fprintln(w, "作业\t课程\t学号\t姓名\t提交时间\t文件")
	for _, s := range res {
		fmt.Fprintf(w, "%d %s\t%s\t%s\t%s\t%s\t%s\n", s.HomeworkID, s.HomeworkTitle, s.CourseName,
			s.StudentID, s.StudentName, s.SubmitTime, strings.Join(s.Filenames, ", "))
	}
	return w.Flush()
}

func (cli *commandLine) resubmit(ctx context.Context, args []string) error {
	fs := cli.flagSet("resubmit")
	hwID := fs.Int64("homework", 0, "Assignment id.")
	sid := fs.String("sid", "", "Student number.")
	name := fs.String("name", "", "Student name.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *hwID == 0 || *sid == "" || *name == "" {
		fs.Usage()
		return errHelp
	}

	c := query.New(cli.api, cli.ui, cli.log, cli.loc)
	c.SetParams(*sid, *name)
	if err := c.Search(ctx); err != nil {
		return err
	}
	for _, s := range c.Results() {
		if s.HomeworkID == model.ID(*hwID) {
			return c.Resubmit(ctx, s)
		}
	}
	fmt.Fprintln(cli.out, "无历史提交记录")
	return nil
}

func (cli *commandLine) leave(ctx context.Context, args []string) error {
	fs := cli.flagSet("leave")
	sid := fs.String("sid", "", "Student number.")
	name := fs.String("name", "", "Student name.")
	kind := fs.String("type", "", "Leave type, e.g. 病假 or 事假.")
	reason := fs.String("reason", "", "Reason.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *sid == "" || *name == "" || *kind == "" || *reason == "" {
		fs.Usage()
		return errHelp
	}

	images, closeAll, err := openFiles(fs.Args())
	if err != nil {
		return err
	}
	defer closeAll()

	msg, err := cli.api.SubmitLeave(ctx, apiclient.LeaveRequest{
		StudentName: *name, StudentID: *sid, LeaveType: *kind, Reason: *reason, Images: images,
	})
	if err != nil {
		cli.ui.Notify(apiclient.MessageOr(err, "提交请假申请失败"))
		return err
	}
	cli.ui.Notify(msg)
	return nil
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) login(ctx context.Context) error {
	pwd, err := cli.readPassword()
	if err != nil {
		return err
	}
	token, err := cli.api.Login(ctx, pwd)
	if err != nil {
		cli.ui.Notify(apiclient.MessageOr(err, "登录失败"))
		return err
	}
	cli.ui.Notify("登录成功，请将令牌设置为 API_TOKEN：")
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) hashPassword() error {
	pwd, err := cli.readPassword()
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(pwd)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, hash)
	return nil
}
