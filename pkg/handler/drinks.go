package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/boogy/drinks-warden/pkg/drinks"
	"github.com/boogy/drinks-warden/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// DrinksHandler serves the drinks catalog
type DrinksHandler struct {
	store *drinks.Store
}

func NewDrinksHandler(store *drinks.Store) *DrinksHandler {
	return &DrinksHandler{store: store}
}

// List is public and returns the short representation.
func (h *DrinksHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.store.List()
	short := make([]drinks.ShortDrink, 0, len(all))
	for _, d := range all {
		short = append(short, d.Short())
	}
	respondJSON(w, http.StatusOK, DrinksResponse{Success: true, Drinks: short})
}

func (h *DrinksHandler) Detail(w http.ResponseWriter, r *http.Request, _ *validator.Claims) {
	respondJSON(w, http.StatusOK, DrinksResponse{Success: true, Drinks: h.store.List()})
}

func (h *DrinksHandler) Create(w http.ResponseWriter, r *http.Request, _ *validator.Claims) {
	in, err := decodeInput(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	d, err := h.store.Create(in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DrinksResponse{Success: true, Drinks: []drinks.Drink{d}})
}

func (h *DrinksHandler) Update(w http.ResponseWriter, r *http.Request, _ *validator.Claims) {
	id, err := drinkID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Unknown ids are reported before the body is looked at
	if _, err := h.store.Get(id); err != nil {
		respondError(w, r, err)
		return
	}

	in, err := decodeInput(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	d, err := h.store.Update(id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DrinksResponse{Success: true, Drinks: []drinks.Drink{d}})
}

func (h *DrinksHandler) Delete(w http.ResponseWriter, r *http.Request, _ *validator.Claims) {
	id, err := drinkID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.store.Delete(id); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, DeleteResponse{Success: true, Deleted: id})
}

func drinkID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

func decodeInput(w http.ResponseWriter, r *http.Request) (drinks.Input, error) {
	var in drinks.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err := dec.Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, ErrBodyTooLarge
		}
		return in, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return in, nil
}
