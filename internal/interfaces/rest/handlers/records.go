package handlers

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/interfaces/rest"
)

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	var key string
	err := runtime.BindStyledParameterWithOptions("simple", "key", r.PathValue("key"), &key, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	record, err := h.queryService.FindByKey(r.Context(), key)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.RecordResponse{
		Success: true,
		Data:    rest.ToRecord(record),
	})
}

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultListLimit
	offset := 0

	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &offset); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	records, err := h.queryService.List(r.Context(), limit, offset)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if limit > services.MaxListLimit {
		limit = services.MaxListLimit
	}
	rest.WriteJSON(w, http.StatusOK, rest.RecordListResponse{
		Success: true,
		Data:    rest.ToRecords(records),
		Limit:   limit,
		Offset:  offset,
	})
}
