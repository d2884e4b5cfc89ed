package friends

import (
	"net/http"

	"github.com/angelmondragon/cellarbook-backend/api/responses"
	"github.com/angelmondragon/cellarbook-backend/api/validators"
	internalfriends "github.com/angelmondragon/cellarbook-backend/internal/friends"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
)

func Share(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}

		var body internalfriends.ShareRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		share, err := svc.Share(r.Context(), userID, body.FriendID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, share)
	}
}

func Unshare(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}

		var body internalfriends.ShareRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unshare(r.Context(), userID, body.FriendID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// FriendCellar shows a friend's cellar while they are sharing it with the caller.
func FriendCellar(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}
		friendID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cellar, err := svc.FriendCellar(r.Context(), userID, friendID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cellar)
	}
}
