package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/specialty"
)

func listSpecialtiesHandler(svc *specialty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.Active(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, SpecialtiesResponse{Data: out, Count: len(out)})
	}
}

func getSpecialtyHandler(svc *specialty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		sp, err := svc.Get(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sp)
	}
}

func createSpecialtyHandler(svc *specialty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SpecialtyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		in := specialty.Input{}
		if req.Name != nil {
			in.Name = *req.Name
		}
		if req.Description != nil {
			in.Description = *req.Description
		}
		if req.DisplayOrder != nil {
			in.DisplayOrder = *req.DisplayOrder
		}
		sp, err := svc.Create(r.Context(), actorOf(r), in)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sp)
	}
}

func updateSpecialtyHandler(svc *specialty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		var req SpecialtyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sp, err := svc.Update(r.Context(), actorOf(r), id, specialty.Patch{
			Name:         req.Name,
			Description:  req.Description,
			IsActive:     req.IsActive,
			DisplayOrder: req.DisplayOrder,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sp)
	}
}

func deleteSpecialtyHandler(svc *specialty.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "id")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), actorOf(r), id); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
