package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/hrconsole/internal/apperr"
	"github.com/terraconstructs/hrconsole/internal/services/hr"
	"github.com/terraconstructs/hrconsole/internal/services/validation"
)

// hrHandlers serves the HR record routes.
type hrHandlers struct {
	svc hrService
	v   validation.Validator
}

// Mount registers the HR routes on r.
func (h *hrHandlers) Mount(r chi.Router) {
	r.Get("/dashboard", h.dashboard)

	r.Route("/departments", func(r chi.Router) {
		r.Get("/", h.listDepartments)
		r.Post("/", h.createDepartment)
		r.Get("/{code}", h.getDepartment)
		r.Put("/{code}", h.updateDepartment)
		r.Delete("/{code}", h.deleteDepartment)
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/", h.listJobs)
		r.Post("/", h.createJob)
		r.Put("/{code}", h.updateJob)
		r.Delete("/{code}", h.deleteJob)
	})

	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.listEmployees)
		r.Post("/", h.createEmployee)
		r.Get("/{empno}", h.getEmployee)
		r.Put("/{empno}", h.updateEmployee)
		r.Delete("/{empno}", h.deleteEmployee)
		r.Get("/{empno}/job-history", h.listJobHistory)
		r.Post("/{empno}/job-history", h.createJobHistory)
	})

	r.Put("/job-history/{id}", h.updateJobHistory)
	r.Delete("/job-history/{id}", h.deleteJobHistory)
}

func (h *hrHandlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	respond(w, http.StatusOK, d, err)
}

func (h *hrHandlers) listDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.svc.ListDepartments(r.Context())
	respond(w, http.StatusOK, map[string]any{"departments": depts}, err)
}

func (h *hrHandlers) getDepartment(w http.ResponseWriter, r *http.Request) {
	dept, err := h.svc.GetDepartment(r.Context(), chi.URLParam(r, "code"))
	respond(w, http.StatusOK, dept, err)
}

func (h *hrHandlers) createDepartment(w http.ResponseWriter, r *http.Request) {
	var in hr.DepartmentInput
	if err := h.v.Decode(validation.SchemaDepartment, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	dept, err := h.svc.CreateDepartment(r.Context(), in)
	respond(w, http.StatusCreated, dept, err)
}

func (h *hrHandlers) updateDepartment(w http.ResponseWriter, r *http.Request) {
	var in hr.DepartmentInput
	if err := h.v.Decode(validation.SchemaDepartment, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	dept, err := h.svc.UpdateDepartment(r.Context(), chi.URLParam(r, "code"), in)
	respond(w, http.StatusOK, dept, err)
}

func (h *hrHandlers) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.svc.DeleteDepartment(r.Context(), chi.URLParam(r, "code")))
}

func (h *hrHandlers) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.ListJobs(r.Context())
	respond(w, http.StatusOK, map[string]any{"jobs": jobs}, err)
}

func (h *hrHandlers) createJob(w http.ResponseWriter, r *http.Request) {
	var in hr.JobInput
	if err := h.v.Decode(validation.SchemaJobCreate, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	job, err := h.svc.CreateJob(r.Context(), in)
	respond(w, http.StatusCreated, job, err)
}

func (h *hrHandlers) updateJob(w http.ResponseWriter, r *http.Request) {
	var in hr.JobInput
	if err := h.v.Decode(validation.SchemaJobUpdate, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	job, err := h.svc.UpdateJob(r.Context(), chi.URLParam(r, "code"), in)
	respond(w, http.StatusOK, job, err)
}

func (h *hrHandlers) deleteJob(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.svc.DeleteJob(r.Context(), chi.URLParam(r, "code")))
}

func (h *hrHandlers) listEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := h.svc.ListEmployees(r.Context(), r.URL.Query().Get("filter"))
	respond(w, http.StatusOK, map[string]any{"employees": emps}, err)
}

func (h *hrHandlers) getEmployee(w http.ResponseWriter, r *http.Request) {
	empNo, err := empNoParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	emp, err := h.svc.GetEmployee(r.Context(), empNo)
	respond(w, http.StatusOK, emp, err)
}

func (h *hrHandlers) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in hr.EmployeeInput
	if err := h.v.Decode(validation.SchemaEmployee, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	emp, err := h.svc.CreateEmployee(r.Context(), in)
	respond(w, http.StatusCreated, emp, err)
}

func (h *hrHandlers) updateEmployee(w http.ResponseWriter, r *http.Request) {
	empNo, err := empNoParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in hr.EmployeeInput
	if err := h.v.Decode(validation.SchemaEmployee, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	emp, err := h.svc.UpdateEmployee(r.Context(), empNo, in)
	respond(w, http.StatusOK, emp, err)
}

func (h *hrHandlers) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	empNo, err := empNoParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	respondNoContent(w, h.svc.DeleteEmployee(r.Context(), empNo))
}

func (h *hrHandlers) listJobHistory(w http.ResponseWriter, r *http.Request) {
	empNo, err := empNoParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.svc.ListJobHistory(r.Context(), empNo)
	respond(w, http.StatusOK, map[string]any{"job_history": entries}, err)
}

func (h *hrHandlers) createJobHistory(w http.ResponseWriter, r *http.Request) {
	empNo, err := empNoParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in hr.JobHistoryInput
	if err := h.v.Decode(validation.SchemaJobHistory, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.svc.CreateJobHistory(r.Context(), empNo, in)
	respond(w, http.StatusCreated, entry, err)
}

func (h *hrHandlers) updateJobHistory(w http.ResponseWriter, r *http.Request) {
	var in hr.JobHistoryInput
	if err := h.v.Decode(validation.SchemaJobHistory, r.Body, &in); err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.svc.UpdateJobHistory(r.Context(), chi.URLParam(r, "id"), in)
	respond(w, http.StatusOK, entry, err)
}

func (h *hrHandlers) deleteJobHistory(w http.ResponseWriter, r *http.Request) {
	respondNoContent(w, h.svc.DeleteJobHistory(r.Context(), chi.URLParam(r, "id")))
}

func empNoParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "empno")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.ValidationFailed("hr", "empno must be a positive integer, got "+strconv.Quote(raw))
	}
	return n, nil
}

func respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, v)
}

func respondNoContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
