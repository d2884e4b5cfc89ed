package friends

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/cellarbook-backend/api/middleware"
	"github.com/angelmondragon/cellarbook-backend/api/responses"
	"github.com/angelmondragon/cellarbook-backend/api/validators"
	internalfriends "github.com/angelmondragon/cellarbook-backend/internal/friends"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
)

// guard runs the checks every social endpoint starts with and hands back the
// caller's id. It writes the error response itself and reports false on failure.
func guard(svc internalfriends.Service, w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "social service unavailable"))
		return uuid.Nil, false
	}
	id, err := middleware.RequireUserID(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}

// List returns accepted and pending friendships in both directions.
func List(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}

		friends, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, friends)
	}
}

// Request answers the same way whether or not the email belongs to anyone.
func Request(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}

		var body internalfriends.FriendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Request(r.Context(), userID, body.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func Respond(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}
		friendshipID, err := validators.ParseUUIDParam(r, "friendshipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body internalfriends.RespondRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		friend, err := svc.Respond(r.Context(), userID, friendshipID, body.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, friend)
	}
}

// Unfriend deletes the friendship and revokes cellar shares both ways.
func Unfriend(svc internalfriends.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := guard(svc, w, r, logg)
		if !ok {
			return
		}
		friendshipID, err := validators.ParseUUIDParam(r, "friendshipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Unfriend(r.Context(), userID, friendshipID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
