package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/roof-estimate/internal/estimate"
	"github.com/JakeFAU/roof-estimate/internal/locations"
	"github.com/JakeFAU/roof-estimate/internal/metrics"
)

const maxEstimateBody = 1 << 16

func (s *Server) listMaterials(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"materials": estimate.Materials()})
}

func (s *Server) listPitches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pitches": estimate.Pitches()})
}

func (s *Server) listRegions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"regions": estimate.Regions()})
}

func (s *Server) createEstimate(w http.ResponseWriter, r *http.Request) {
	var in estimate.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEstimateBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.respondEstimate(w, in, nil)
}

func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	var locs []locations.Location
	if state := r.URL.Query().Get("state"); state != "" {
		locs = locations.ByState(state)
	} else {
		locs = locations.All()
	}
	if locs == nil {
		locs = []locations.Location{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locs})
}

func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := locations.Lookup(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, http.StatusNotFound, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"location": loc})
}

func (s *Server) locationEstimate(w http.ResponseWriter, r *http.Request) {
	loc, err := locations.Lookup(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, http.StatusNotFound, "location not found")
		return
	}
	q := r.URL.Query()
	sqft, err := strconv.ParseFloat(strings.TrimSpace(q.Get("sqft")), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "sqft must be a number")
		return
	}
	tearOff := false
	if raw := q.Get("tear_off"); raw != "" {
		if tearOff, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "tear_off must be a boolean")
			return
		}
	}
	in := estimate.Input{
		SquareFeet: sqft,
		Material:   q.Get("material"),
		Pitch:      q.Get("pitch"),
		Region:     loc.Region,
		TearOff:    tearOff,
	}
	s.respondEstimate(w, in, &loc)
}

func (s *Server) respondEstimate(w http.ResponseWriter, in estimate.Input, loc *locations.Location) {
	est, err := s.deps.Calculator.Calculate(in)
	if err != nil {
		switch {
		case errors.Is(err, estimate.ErrUnknownMaterial),
			errors.Is(err, estimate.ErrUnknownPitch),
			errors.Is(err, estimate.ErrUnknownRegion),
			errors.Is(err, estimate.ErrSquareFootageRange):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "estimate failed")
		}
		return
	}
	metrics.ObserveEstimate(est.Input.Material, est.Input.Region)
	if loc != nil {
		writeJSON(w, http.StatusOK, map[string]any{"location": loc, "estimate": est})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"estimate": est})
}
