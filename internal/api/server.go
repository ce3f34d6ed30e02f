package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"job-board/internal/application"
	"job-board/internal/auth"
	"job-board/internal/lifecycle"
	"job-board/internal/model"
	"job-board/internal/savedjobs"
	"job-board/internal/search"
	"job-board/internal/storage"
	"job-board/internal/subscription"
)

// maxResumeSize 限制简历上传体积。
const maxResumeSize = 5 << 20

// Searcher 抽象职位搜索接口。
type Searcher interface {
	SearchPublished(ctx context.Context, raw map[string]string, page search.PageRequest) (search.Result, error)
	SearchOwned(ctx context.Context, employerID uint, raw map[string]string, page search.PageRequest) (search.Result, error)
}

// Recommender 抽象推荐流接口。
type Recommender interface {
	Recommend(ctx context.Context, userID uint, raw map[string]string, page search.PageRequest) (search.Result, error)
}

// Lifecycle 抽象职位写路径接口。
type Lifecycle interface {
	Create(ctx context.Context, employerID uint, in lifecycle.Input) (*model.Job, error)
	Update(ctx context.Context, id uint, in lifecycle.Input) (*model.Job, error)
	Delete(ctx context.Context, id uint) error
}

// JobReader 抽象单职位读取接口。
type JobReader interface {
	GetJob(ctx context.Context, id uint) (*model.Job, error)
}

// Saved 抽象收藏接口。
type Saved interface {
	Save(ctx context.Context, userID, jobID uint) error
	Unsave(ctx context.Context, userID, jobID uint) error
	List(ctx context.Context, userID uint, page search.PageRequest) (search.Result, error)
}

// Applications 抽象投递接口。
type Applications interface {
	Apply(ctx context.Context, applicantID, jobID uint, message string, resume io.Reader, resumeName string) (*model.Application, error)
	Get(ctx context.Context, appID uint) (*model.Application, error)
	ListForJob(ctx context.Context, jobID uint) ([]model.Application, error)
	UpdateStatus(ctx context.Context, appID uint, status string) (*model.Application, error)
	DownloadResume(ctx context.Context, appID uint) (io.ReadCloser, string, error)
}

// Subscriptions 处理订阅创建。
type Subscriptions interface {
	Create(ctx context.Context, req subscription.Request) (model.Subscription, error)
}

// Authenticator 把 Bearer 令牌解析为身份。
type Authenticator interface {
	Resolve(token string) (auth.Identity, error)
}

// Deps 汇总 Handler 的依赖。
type Deps struct {
	Searcher      Searcher
	Recommender   Recommender
	Lifecycle     Lifecycle
	Jobs          JobReader
	Saved         Saved
	Applications  Applications
	Subscriptions Subscriptions
	Auth          Authenticator
}

type handler struct {
	deps Deps
}

// NewHandler 构造 HTTP 多路复用器。
func NewHandler(deps Deps) http.Handler {
	h := &handler{deps: deps}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/jobs", h.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.getJob)
	mux.HandleFunc("GET /api/recommendations", h.recommendations)
	mux.HandleFunc("POST /api/jobs", h.createJob)
	mux.HandleFunc("GET /api/my/jobs", h.listOwnJobs)
	mux.HandleFunc("PUT /api/jobs/{id}", h.updateJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", h.deleteJob)
	mux.HandleFunc("POST /api/jobs/{id}/save", h.saveJob)
	mux.HandleFunc("DELETE /api/jobs/{id}/save", h.unsaveJob)
	mux.HandleFunc("GET /api/my/saved", h.listSaved)
	mux.HandleFunc("POST /api/jobs/{id}/apply", h.applyJob)
	mux.HandleFunc("GET /api/jobs/{id}/applications", h.listApplications)
	mux.HandleFunc("PATCH /api/applications/{id}", h.updateApplication)
	mux.HandleFunc("GET /api/applications/{id}/resume", h.downloadResume)
	mux.HandleFunc("POST /api/subscriptions", h.createSubscription)

	return mux
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	raw := rawParams(r)
	if !search.ValidSalaryRange(raw["salary_range"]) {
		writeError(w, http.StatusUnprocessableEntity, "invalid salary_range, expected <min>-<max>")
		return
	}
	res, err := h.deps.Searcher.SearchPublished(r.Context(), raw, pageRequest(r))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	job, err := h.deps.Jobs.GetJob(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	// 草稿仅属主可见，其余调用者一律视为不存在。
	if job.Status != model.StatusPublished {
		identity, err := h.identify(r)
		if err != nil || auth.RequireOwner(job, identity) != nil {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *handler) recommendations(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identifyApplicant(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	raw := rawParams(r)
	if !search.ValidSalaryRange(raw["salary_range"]) {
		writeError(w, http.StatusUnprocessableEntity, "invalid salary_range, expected <min>-<max>")
		return
	}
	res, err := h.deps.Recommender.Recommend(r.Context(), identity.UserID, raw, pageRequest(r))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) createJob(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identify(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := auth.RequireRole(identity, auth.RoleEmployer); err != nil {
		h.writeFailure(w, err)
		return
	}
	in, ok := decodeJobPayload(w, r)
	if !ok {
		return
	}
	job, err := h.deps.Lifecycle.Create(r.Context(), identity.UserID, in)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *handler) listOwnJobs(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identify(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := auth.RequireRole(identity, auth.RoleEmployer); err != nil {
		h.writeFailure(w, err)
		return
	}
	raw := rawParams(r)
	if !search.ValidSalaryRange(raw["salary_range"]) {
		writeError(w, http.StatusUnprocessableEntity, "invalid salary_range, expected <min>-<max>")
		return
	}
	res, err := h.deps.Searcher.SearchOwned(r.Context(), identity.UserID, raw, pageRequest(r))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) updateJob(w http.ResponseWriter, r *http.Request) {
	_, job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	in, okPayload := decodeJobPayload(w, r)
	if !okPayload {
		return
	}
	updated, err := h.deps.Lifecycle.Update(r.Context(), job.ID, in)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	_, job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	if err := h.deps.Lifecycle.Delete(r.Context(), job.ID); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) saveJob(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identifyApplicant(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Saved.Save(r.Context(), identity.UserID, id); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *handler) unsaveJob(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identifyApplicant(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.deps.Saved.Unsave(r.Context(), identity.UserID, id); err != nil {
		h.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listSaved(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identifyApplicant(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	res, err := h.deps.Saved.List(r.Context(), identity.UserID, pageRequest(r))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) applyJob(w http.ResponseWriter, r *http.Request) {
	identity, err := h.identifyApplicant(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var (
		message    string
		resume     io.Reader
		resumeName string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// ParseMultipartForm 的参数只是内存阈值，超出部分会落盘；
		// 体积上限必须在读取请求体时强制。
		r.Body = http.MaxBytesReader(w, r.Body, maxResumeSize)
		if err := r.ParseMultipartForm(maxResumeSize); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "resume exceeds size limit")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart payload")
			return
		}
		message = r.FormValue("message")
		if file, header, err := r.FormFile("resume"); err == nil {
			defer file.Close()
			resume = file
			resumeName = header.Filename
		}
	} else {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		message = body.Message
	}

	app, err := h.deps.Applications.Apply(r.Context(), identity.UserID, id, message, resume, resumeName)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *handler) listApplications(w http.ResponseWriter, r *http.Request) {
	_, job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	apps, err := h.deps.Applications.ListForJob(r.Context(), job.ID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": apps})
}

func (h *handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	_, app, ok := h.ownedApplication(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	updated, err := h.deps.Applications.UpdateStatus(r.Context(), app.ID, body.Status)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) downloadResume(w http.ResponseWriter, r *http.Request) {
	_, app, ok := h.ownedApplication(w, r)
	if !ok {
		return
	}
	rc, name, err := h.deps.Applications.DownloadResume(r.Context(), app.ID)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	defer rc.Close()
	if name == "" {
		name = "resume"
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (h *handler) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscription.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sub, err := h.deps.Subscriptions.Create(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// --- helpers ---

// identify 解析 Authorization: Bearer 令牌。
func (h *handler) identify(r *http.Request) (auth.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return auth.Identity{}, auth.ErrUnauthorized
	}
	return h.deps.Auth.Resolve(token)
}

// identifyApplicant 解析身份并要求求职者角色。
func (h *handler) identifyApplicant(r *http.Request) (auth.Identity, error) {
	identity, err := h.identify(r)
	if err != nil {
		return auth.Identity{}, err
	}
	if err := auth.RequireRole(identity, auth.RoleApplicant); err != nil {
		return auth.Identity{}, err
	}
	return identity, nil
}

// ownedJob 定位职位并校验属主雇主。
func (h *handler) ownedJob(w http.ResponseWriter, r *http.Request) (auth.Identity, *model.Job, bool) {
	identity, err := h.identify(r)
	if err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return auth.Identity{}, nil, false
	}
	job, err := h.deps.Jobs.GetJob(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	if err := auth.RequireOwner(job, identity); err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	return identity, job, true
}

// ownedApplication 定位投递并校验其职位的属主雇主。
func (h *handler) ownedApplication(w http.ResponseWriter, r *http.Request) (auth.Identity, *model.Application, bool) {
	identity, err := h.identify(r)
	if err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return auth.Identity{}, nil, false
	}
	app, err := h.deps.Applications.Get(r.Context(), id)
	if err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	job, err := h.deps.Jobs.GetJob(r.Context(), app.JobID)
	if err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	if err := auth.RequireOwner(job, identity); err != nil {
		h.writeFailure(w, err)
		return auth.Identity{}, nil, false
	}
	return identity, app, true
}

// jobPayload 是创建/更新职位的请求体，nil 字段表示未提供。
type jobPayload struct {
	Title          *string        `json:"title"`
	Description    *string        `json:"description"`
	Location       *string        `json:"location"`
	SalaryMin      *int           `json:"salary_min"`
	SalaryMax      *int           `json:"salary_max"`
	SalaryRange    *string        `json:"salary_range"`
	SalaryCurrency *string        `json:"salary_currency"`
	SalaryPeriod   *string        `json:"salary_period"`
	IsRemote       *bool          `json:"is_remote"`
	Status         *string        `json:"status"`
	Tags           map[string]any `json:"tags"`
}

func decodeJobPayload(w http.ResponseWriter, r *http.Request) (lifecycle.Input, bool) {
	var body jobPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return lifecycle.Input{}, false
	}

	in := lifecycle.Input{
		Title:          body.Title,
		Description:    body.Description,
		Location:       body.Location,
		SalaryMin:      body.SalaryMin,
		SalaryMax:      body.SalaryMax,
		SalaryCurrency: body.SalaryCurrency,
		SalaryPeriod:   body.SalaryPeriod,
		IsRemote:       body.IsRemote,
		Status:         body.Status,
		Tags:           body.Tags,
	}

	// 组合薪资串仅在离散上下限缺省时生效，形态错误在本层拒绝。
	if body.SalaryRange != nil && in.SalaryMin == nil && in.SalaryMax == nil {
		min, max, ok := search.ParseSalaryRange(*body.SalaryRange)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "invalid salary_range, expected <min>-<max>")
			return lifecycle.Input{}, false
		}
		in.SalaryMin = &min
		in.SalaryMax = &max
	}
	return in, true
}

// rawParams 把查询参数拍平成过滤编译器的输入。
func rawParams(r *http.Request) map[string]string {
	raw := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			raw[key] = values[0]
		}
	}
	return raw
}

func pageRequest(r *http.Request) search.PageRequest {
	page := search.PageRequest{}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil {
		page.PerPage = v
	}
	return page
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || v == 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(v), true
}

// writeFailure 把领域错误映射为 HTTP 状态码。
func (h *handler) writeFailure(w http.ResponseWriter, err error) {
	var lifecycleErr *lifecycle.ValidationError
	var appErr *application.ValidationError
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, savedjobs.ErrNotPublished),
		errors.Is(err, application.ErrNotPublished),
		errors.Is(err, application.ErrAlreadyApplied):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &lifecycleErr), errors.As(err, &appErr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
