package server

import (
	"net/http"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
)

type createPetRequest struct {
	Name          string   `json:"name"`
	Species       string   `json:"species"`
	Breed         string   `json:"breed,omitempty"`
	Sensitivities []string `json:"sensitivities"`
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	var req createPetRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v := common.NewValidator().
		Field("name", req.Name, common.Required, common.MaxLength(100)).
		Field("species", req.Species, common.Required)
	if err := common.ValidateAndReturnError(v); err != nil {
		s.writeError(w, r, err)
		return
	}

	pet := &entity.PetProfile{
		Name:          req.Name,
		Species:       req.Species,
		Sensitivities: entity.ParseSensitivities(req.Sensitivities),
	}
	if req.Breed != "" {
		pet.Breed = &req.Breed
	}
	created, err := s.deps.Pets.CreatePet(r.Context(), pet)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("pet created", "pet_id", created.ID, "species", created.Species)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListPets(w http.ResponseWriter, r *http.Request) {
	pets, err := s.deps.Pets.ListPets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pets": pets})
}
