package adminhttp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/bavix/dobson/internal/presence"
)

var errInvalidListAll = errors.New("list_all must be a boolean")

type presenceDTO struct {
	presence.Result

	Location string `json:"location"`
	Reply    string `json:"reply"`
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	listAll := false

	if raw := r.URL.Query().Get("list_all"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			jsonError(w, r, http.StatusBadRequest, errInvalidListAll)

			return
		}

		listAll = v
	}

	res, err := s.deps.Presence.Query(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("presence query failed")
		jsonError(w, r, http.StatusBadGateway, err)

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, presenceDTO{
		Result:   res,
		Location: s.deps.Location,
		Reply:    s.deps.Formatter.Format(res.Users(), res.Unknown, listAll),
	})
}
