package webapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"oss.nandlabs.io/ecscheduler/cronspec"
	"oss.nandlabs.io/ecscheduler/jobmodel"
	"oss.nandlabs.io/ecscheduler/opsbus"
	"oss.nandlabs.io/ecscheduler/registry"
	"oss.nandlabs.io/ecscheduler/rest"
)

const defaultCount = 10

// API is the HTTP adapter over the job registry (§4.9). It posts to bus
// after every successful mutation; bus wiring order (registering the
// scheduler as the bus's consumer before any request arrives) is the
// caller's responsibility, per §5.
type API struct {
	reg *registry.Registry
	bus *opsbus.Bus
}

// New returns an API adapter over reg, posting mutations to bus.
func New(reg *registry.Registry, bus *opsbus.Bus) *API {
	return &API{reg: reg, bus: bus}
}

// Register installs every route this adapter serves onto server.
func (a *API) Register(server rest.Server) error {
	if _, err := server.Get("/", a.home); err != nil {
		return err
	}
	if _, err := server.Get("/spec", a.spec); err != nil {
		return err
	}
	if _, err := server.Get("/jobs", a.listJobs); err != nil {
		return err
	}
	if _, err := server.Post("/jobs", a.createJob); err != nil {
		return err
	}
	if _, err := server.Get("/jobs/{id}", a.getJob); err != nil {
		return err
	}
	if _, err := server.Put("/jobs/{id}", a.updateJob); err != nil {
		return err
	}
	if _, err := server.Delete("/jobs/{id}", a.deleteJob); err != nil {
		return err
	}
	return nil
}

func (a *API) home(ctx rest.Context) {
	body := resourceList{Resources: []resource{
		{Link: Link{Rel: "collection", Title: "Jobs", Href: "/jobs"}},
		{Link: Link{Rel: "describedby", Title: "API specification", Href: "/spec"}},
	}}
	ctx.SetStatusCode(http.StatusOK)
	_ = ctx.WriteJSON(body)
}

func (a *API) spec(ctx rest.Context) {
	ctx.SetStatusCode(http.StatusOK)
	_ = ctx.WriteJSON(openAPIDocument())
}

// requireJSON returns false (and has already written a 415 response)
// when a body-carrying verb lacks application/json, per §4.9/§7. This
// runs before any business logic touches the request.
func requireJSON(ctx rest.Context) bool {
	ct := ctx.GetHeader(rest.ContentTypeHeader)
	if !strings.HasPrefix(ct, rest.JSONContentType) {
		ctx.SetStatusCode(http.StatusUnsupportedMediaType)
		_ = ctx.WriteJSON(errorBody{Message: "Content-Type: application/json is required"})
		return false
	}
	return true
}

func (a *API) listJobs(ctx rest.Context) {
	skip, err := intParam(ctx, "skip", 0)
	if err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "skip must be an integer"})
		return
	}
	count, err := intParam(ctx, "count", defaultCount)
	if err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "count must be an integer"})
		return
	}
	if skip < 0 {
		skip = 0
	}
	if count < 0 {
		count = 0
	}

	all := a.reg.GetAll()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)

	page := all
	if skip >= len(all) {
		page = nil
	} else {
		end := skip + count
		if end > len(all) || count == 0 {
			end = len(all)
		}
		if count == 0 {
			page = nil
		} else {
			page = all[skip:end]
		}
	}

	views := make([]JobView, len(page))
	for i, job := range page {
		views[i] = toView(job)
	}

	resp := JobsPage{Jobs: views, Total: total}
	resp.Prev = renderLink(skip-count, count, total)
	resp.Next = renderLink(skip+count, count, total)

	ctx.SetStatusCode(http.StatusOK)
	_ = ctx.WriteJSON(resp)
}

func intParam(ctx rest.Context, name string, def int) (int, error) {
	raw, err := ctx.GetParam(name, rest.QueryParam)
	if err != nil || raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (a *API) createJob(ctx rest.Context) {
	if !requireJSON(ctx) {
		return
	}
	var input cronspec.JobInput
	if err := ctx.Read(&input); err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "malformed request body: " + err.Error()})
		return
	}

	job, err := a.reg.Create(ctx.Context(), input)
	if err != nil {
		writeJobError(ctx, err)
		return
	}

	if postErr := a.bus.Post(jobmodel.JobOperation{Kind: jobmodel.OpAdd, JobID: job.ID}); postErr != nil {
		logger.ErrorF("webapi: job %q persisted but bus post failed: %v", job.ID, postErr)
		ctx.SetStatusCode(http.StatusInternalServerError)
		_ = ctx.WriteJSON(struct {
			JobView
			Message string `json:"message"`
		}{JobView: toView(job), Message: "job persisted but scheduling it failed: " + postErr.Error()})
		return
	}

	ctx.SetStatusCode(http.StatusCreated)
	_ = ctx.WriteJSON(toView(job))
}

func (a *API) getJob(ctx rest.Context) {
	id, err := ctx.GetParam("id", rest.PathParam)
	if err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "missing id"})
		return
	}
	job, err := a.reg.Get(id)
	if err != nil {
		writeJobError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusOK)
	_ = ctx.WriteJSON(toView(job))
}

func (a *API) updateJob(ctx rest.Context) {
	if !requireJSON(ctx) {
		return
	}
	id, err := ctx.GetParam("id", rest.PathParam)
	if err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "missing id"})
		return
	}

	var input cronspec.JobInput
	if err := ctx.Read(&input); err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "malformed request body: " + err.Error()})
		return
	}

	job, err := a.reg.Update(ctx.Context(), id, input)
	if err != nil {
		writeJobError(ctx, err)
		return
	}

	if postErr := a.bus.Post(jobmodel.JobOperation{Kind: jobmodel.OpModify, JobID: id}); postErr != nil {
		logger.ErrorF("webapi: job %q updated but bus post failed: %v", id, postErr)
		ctx.SetStatusCode(http.StatusInternalServerError)
		_ = ctx.WriteJSON(struct {
			JobView
			Message string `json:"message"`
		}{JobView: toView(job), Message: "job persisted but rescheduling it failed: " + postErr.Error()})
		return
	}

	ctx.SetStatusCode(http.StatusOK)
	_ = ctx.WriteJSON(toView(job))
}

func (a *API) deleteJob(ctx rest.Context) {
	id, err := ctx.GetParam("id", rest.PathParam)
	if err != nil {
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: "missing id"})
		return
	}

	if err := a.reg.Delete(ctx.Context(), id); err != nil {
		writeJobError(ctx, err)
		return
	}

	if postErr := a.bus.Post(jobmodel.JobOperation{Kind: jobmodel.OpRemove, JobID: id}); postErr != nil {
		logger.ErrorF("webapi: job %q deleted but bus post failed: %v", id, postErr)
		ctx.SetStatusCode(http.StatusInternalServerError)
		_ = ctx.WriteJSON(errorBody{Message: "job deleted but unscheduling it failed: " + postErr.Error()})
		return
	}

	ctx.SetStatusCode(http.StatusOK)
	_ = ctx.WriteJSON(map[string]string{"id": id})
}

func writeJobError(ctx rest.Context, err error) {
	var invalid *jobmodel.InvalidJobDataError
	var notFound *jobmodel.JobNotFoundError
	var exists *jobmodel.JobAlreadyExistsError
	var persistence *jobmodel.JobPersistenceError

	switch {
	case errors.As(err, &invalid):
		ctx.SetStatusCode(http.StatusBadRequest)
		_ = ctx.WriteJSON(errorBody{Message: invalid.Error(), FieldErrors: invalid.FieldErrors})
	case errors.As(err, &notFound):
		ctx.SetStatusCode(http.StatusNotFound)
		_ = ctx.WriteJSON(errorBody{Message: notFound.Error()})
	case errors.As(err, &exists):
		ctx.SetStatusCode(http.StatusConflict)
		_ = ctx.WriteJSON(errorBody{Message: exists.Error()})
	case errors.As(err, &persistence):
		ctx.SetStatusCode(http.StatusInternalServerError)
		_ = ctx.WriteJSON(errorBody{Message: persistence.Error()})
	default:
		ctx.SetStatusCode(http.StatusInternalServerError)
		_ = ctx.WriteJSON(errorBody{Message: err.Error()})
	}
}
