package friends

import (
	"net/http"

	"github.com/angelmondragon/cellarbook-backend/api/responses"
	"github.com/angelmondragon/cellarbook-backend/api/validators"
	internalfriends "github.com/angelmondragon/cellarbook-backend/internal/friends"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
)

func Recommend(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}

		var body internalfriends.RecommendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Recommend(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rec)
	}
}

// ListRecommendations returns what friends sent the caller. Fetching marks
// unread rows as read; the response still shows their prior state.
func ListRecommendations(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}

		recs, err := svc.ListRecommendations(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, recs)
	}
}

func MarkRecommendationRead(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}
		recID, err := validators.ParseUUIDParam(r, "recId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRecommendationRead(r.Context(), userID, recID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
