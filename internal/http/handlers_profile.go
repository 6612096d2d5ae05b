package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	f := formValues{r.PostForm}
	in, err := readProfile(f)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	if _, err := s.backend.UpdateCompanyProfile(r.Context(), id, in.patch(f)); err != nil {
		s.logFailure(r, "update company profile", err)
		BackendFailure(err).Write(w)
		return
	}

	SuccessResponse("Company profile saved").
		Trigger(EventProfileChanged, nil).
		Write(w)
}
