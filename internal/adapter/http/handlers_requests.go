package http

import (
	"net/http"

	"github.com/wikifarm/farmd/internal/domain/request"
)

// SubmitRequest queues a wiki creation request. The identifier in the body
// is sanitized server side; the response carries the normalized form.
func (h *Handlers) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	data, ok := readJSON[request.SubmitData](w, r)
	if !ok {
		return
	}
	req, err := h.Requests.Submit(r.Context(), actor(r), data)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListRequests returns the request queue, newest first. ?status=pending
// narrows to one status.
func (h *Handlers) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := request.Status(r.URL.Query().Get("status"))
	reqs, err := h.Requests.List(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

// GetRequest returns one creation request.
func (h *Handlers) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	req, err := h.Requests.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type resolveBody struct {
	Comment string `json:"comment"`
}

// ApproveRequest provisions the requested wiki and marks the request
// approved. On provisioning failure the request stays pending and the call
// can be retried.
func (h *Handlers) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	body, ok := readJSON[resolveBody](w, r)
	if !ok {
		return
	}
	rec, err := h.Requests.Approve(r.Context(), actor(r), id, body.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// DeclineRequest marks a pending request declined.
func (h *Handlers) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	body, ok := readJSON[resolveBody](w, r)
	if !ok {
		return
	}
	if err := h.Requests.Decline(r.Context(), actor(r), id, body.Comment); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentBody struct {
	Text string `json:"text"`
}

// AddComment appends a comment to a request's thread. Comments are accepted
// at any request status.
func (h *Handlers) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	body, ok := readJSON[commentBody](w, r)
	if !ok {
		return
	}
	c, err := h.Requests.AddComment(r.Context(), actor(r), id, body.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListComments returns a request's comment thread oldest first.
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	comments, err := h.Requests.ListComments(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}
