package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homework/internal/auth"
	"homework/internal/course"
	"homework/internal/model"
)

// Handler serves the REST API on top of course.Service.
type Handler struct {
	svc *course.Service
	log *zap.Logger
	cfg Config
}

// ---------- Admin login ----------

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	if h.cfg.AdminPasswordHash == "" {
		reject(c, http.StatusNotFound, "未启用管理员登录")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reject(c, http.StatusBadRequest, "请输入密码")
		return
	}
	if !auth.CheckPassword(h.cfg.AdminPasswordHash, req.Password) {
		reject(c, http.StatusUnauthorized, "密码错误")
		return
	}
	tok, err := auth.Issue("admin", auth.RoleAdmin, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		h.fail(c, "issue token", err)
		return
	}
	ok(c, gin.H{"token": tok.AccessToken, "expiresAt": tok.AccessExp.Unix()})
}

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	list, err := h.svc.Students(c.Request.Context())
	if err != nil {
		h.fail(c, "list students", err)
		return
	}
	ok(c, gin.H{"students": list})
}

func (h *Handler) bindStudent(c *gin.Context) (model.StudentInput, bool) {
	var in model.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		reject(c, http.StatusBadRequest, "缺少必要信息")
		return in, false
	}
	return in, true
}

func (h *Handler) AddStudent(c *gin.Context) {
	in, valid := h.bindStudent(c)
	if !valid {
		return
	}
	st, err := h.svc.AddStudent(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "add student", err)
		return
	}
	ok(c, gin.H{"message": "添加学生成功", "student": st})
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	id, found := pathID(c, "id", "学生不存在")
	if !found {
		return
	}
	in, valid := h.bindStudent(c)
	if !valid {
		return
	}
	if err := h.svc.UpdateStudent(c.Request.Context(), id, in); err != nil {
		h.fail(c, "update student", err)
		return
	}
	okMessage(c, "更新学生信息成功")
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	id, found := pathID(c, "id", "学生不存在")
	if !found {
		return
	}
	if err := h.svc.DeleteStudent(c.Request.Context(), id); err != nil {
		h.fail(c, "delete student", err)
		return
	}
	okMessage(c, "删除学生成功")
}

// ---------- Homework ----------

func (h *Handler) ListHomework(c *gin.Context) {
	list, err := h.svc.Homework(c.Request.Context())
	if err != nil {
		h.fail(c, "list homework", err)
		return
	}
	ok(c, gin.H{"homework": list})
}

func (h *Handler) bindHomework(c *gin.Context) (model.HomeworkInput, bool) {
	var in model.HomeworkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		reject(c, http.StatusBadRequest, "缺少必要信息")
		return in, false
	}
	return in, true
}

func (h *Handler) AddHomework(c *gin.Context) {
	in, valid := h.bindHomework(c)
	if !valid {
		return
	}
	hw, err := h.svc.AddHomework(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "add homework", err)
		return
	}
	ok(c, gin.H{"message": "发布作业成功", "homework": hw})
}

func (h *Handler) UpdateHomework(c *gin.Context) {
	id, found := pathID(c, "id", "作业不存在")
	if !found {
		return
	}
	in, valid := h.bindHomework(c)
	if !valid {
		return
	}
	if err := h.svc.UpdateHomework(c.Request.Context(), id, in); err != nil {
		h.fail(c, "update homework", err)
		return
	}
	okMessage(c, "更新作业成功")
}

func (h *Handler) DeleteHomework(c *gin.Context) {
	id, found := pathID(c, "id", "作业不存在")
	if !found {
		return
	}
	if err := h.svc.DeleteHomework(c.Request.Context(), id); err != nil {
		h.fail(c, "delete homework", err)
		return
	}
	okMessage(c, "删除作业成功")
}

// UploadHomework reads studentName, studentId, homeworkId, description,
// fileCount and file0..fileN-1 from a multipart form.
func (h *Handler) UploadHomework(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		reject(c, http.StatusBadRequest, "缺少必要信息")
		return
	}
	in := course.UploadInput{
		StudentName: c.PostForm("studentName"),
		StudentID:   c.PostForm("studentId"),
		Description: c.PostForm("description"),
	}
	if raw := c.PostForm("homeworkId"); raw != "" {
		id, err := model.ParseID(raw)
		if err != nil {
			reject(c, http.StatusNotFound, "作业不存在")
			return
		}
		in.HomeworkID = id
	}
	count, err := strconv.Atoi(c.DefaultPostForm("fileCount", "1"))
	if err != nil || count < 0 {
		reject(c, http.StatusBadRequest, "文件数量无效")
		return
	}

	var headers []*multipart.FileHeader
	for i := 0; i < count; i++ {
		if fh := form.File[fmt.Sprintf("file%d", i)]; len(fh) > 0 {
			headers = append(headers, fh[0])
		}
	}
	files, closeAll, err := openUploads(headers)
	defer closeAll()
	if err != nil {
		h.fail(c, "open upload", err)
		return
	}
	in.Files = files

	if _, err := h.svc.Upload(c.Request.Context(), in); err != nil {
		h.fail(c, "upload homework", err)
		return
	}
	okMessage(c, "作业提交成功")
}

func openUploads(headers []*multipart.FileHeader) ([]course.Upload, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}
	out := make([]course.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		closers = append(closers, f)
		out = append(out, course.Upload{Name: fh.Filename, Content: f})
	}
	return out, closeAll, nil
}

type exportRequest struct {
	SavePath string `json:"savePath"`
}

func (h *Handler) DownloadAll(c *gin.Context) {
	id, found := pathID(c, "id", "作业目录不存在")
	if !found {
		return
	}
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SavePath == "" {
		reject(c, http.StatusBadRequest, "请指定保存路径")
		return
	}
	res, err := h.svc.ExportAll(c.Request.Context(), id, req.SavePath)
	if err != nil {
		h.fail(c, "export submissions", err)
		return
	}
	ok(c, gin.H{"message": res.Message, "files": res.Files})
}

// ---------- Submissions ----------

func (h *Handler) ListSubmissions(c *gin.Context) {
	list, err := h.svc.Submissions(c.Request.Context(), course.SubmissionFilter{
		Course:      c.Query("course"),
		StudentID:   c.Query("studentId"),
		StudentName: c.Query("studentName"),
	})
	if err != nil {
		h.fail(c, "list submissions", err)
		return
	}
	ok(c, gin.H{"submissions": list})
}

func (h *Handler) MissingSubmissions(c *gin.Context) {
	list, err := h.svc.MissingSubmissions(c.Request.Context(), c.Query("course"))
	if err != nil {
		h.fail(c, "list missing submissions", err)
		return
	}
	ok(c, gin.H{"missing": list})
}

// querySubmission adds the files and submitTime keys the query page reads.
type querySubmission struct {
	model.Submission
	Files          []string `json:"files"`
	SubmitTimeText string   `json:"submitTime"`
}

func (h *Handler) Query(c *gin.Context) {
	list, err := h.svc.StudentSubmissions(c.Request.Context(), c.Query("studentId"))
	if err != nil {
		h.fail(c, "query submissions", err)
		return
	}
	out := make([]querySubmission, 0, len(list))
	for _, s := range list {
		out = append(out, querySubmission{Submission: s, Files: s.Filenames, SubmitTimeText: s.SubmitTime})
	}
	ok(c, gin.H{"submissions": out})
}

func (h *Handler) DeleteSubmission(c *gin.Context) {
	id, found := pathID(c, "homeworkId", "作业不存在")
	if !found {
		return
	}
	msg, err := h.svc.DeleteSubmission(c.Request.Context(), id, c.Param("studentId"), c.Query("studentName"))
	if err != nil {
		h.fail(c, "delete submission", err)
		return
	}
	okMessage(c, msg)
}

func (h *Handler) DownloadSubmission(c *gin.Context) {
	id, found := pathID(c, "homeworkId", "文件不存在")
	if !found {
		return
	}
	filename := c.Param("filename")
	rc, err := h.svc.OpenSubmissionFile(c.Request.Context(), id, c.Param("studentId"), filename)
	if err != nil {
		h.fail(c, "download submission", err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Warn("download interrupted", zap.String("file", filename), zap.Error(err))
	}
}

// ---------- Leaves ----------

func (h *Handler) SubmitLeave(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		reject(c, http.StatusBadRequest, "缺少必要信息")
		return
	}
	images, closeAll, err := openUploads(form.File["leaveImages"])
	defer closeAll()
	if err != nil {
		h.fail(c, "open leave images", err)
		return
	}
	_, err = h.svc.SubmitLeave(c.Request.Context(), course.LeaveInput{
		StudentName: c.PostForm("studentName"),
		StudentID:   c.PostForm("studentId"),
		LeaveType:   c.PostForm("leaveType"),
		Reason:      c.PostForm("reason"),
		Images:      images,
	})
	if err != nil {
		h.fail(c, "submit leave", err)
		return
	}
	okMessage(c, "请假申请提交成功")
}

func (h *Handler) ListLeaves(c *gin.Context) {
	list, err := h.svc.Leaves(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.fail(c, "list leaves", err)
		return
	}
	ok(c, gin.H{"leaves": list})
}

func (h *Handler) setLeaveStatus(c *gin.Context, status, done string) {
	id, found := pathID(c, "id", "请假记录不存在")
	if !found {
		return
	}
	if err := h.svc.SetLeaveStatus(c.Request.Context(), id, status); err != nil {
		h.fail(c, "set leave status", err)
		return
	}
	okMessage(c, done)
}

func (h *Handler) ApproveLeave(c *gin.Context) {
	h.setLeaveStatus(c, model.LeaveApproved, "已批准请假申请")
}

func (h *Handler) RejectLeave(c *gin.Context) {
	h.setLeaveStatus(c, model.LeaveRejected, "已拒绝请假申请")
}

// ---------- Maintenance ----------

func (h *Handler) ClearCache(c *gin.Context) {
	res, err := h.svc.ClearCache(c.Request.Context())
	if err != nil {
		h.fail(c, "clear cache", err)
		return
	}
	ok(c, gin.H{"message": "缓存清理成功", "leaves": res.Leaves, "homework": res.Homework})
}

func (h *Handler) Notice(c *gin.Context) {
	text, err := h.svc.Notice(c.Request.Context())
	if err != nil {
		h.fail(c, "read notice", err)
		return
	}
	ok(c, gin.H{"notice": text})
}
