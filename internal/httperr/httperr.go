package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type HTTPError struct {
	Code       string `json:"error_code"`
	MessageKey string `json:"message_key,omitempty"`
	Message    string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:       code,
		MessageKey: "errors." + code,
		Message:    message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

// StatusFor maps an error kind to the HTTP status the API answers with.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPolicy:
		return http.StatusConflict
	case KindUpstreamAuth:
		return http.StatusFailedDependency
	case KindUpstreamTransient:
		return http.StatusServiceUnavailable
	case KindProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as JSON. Anything that is not a BusinessError becomes a 500
// and is logged, since its text may carry internals.
func Respond(c *gin.Context, log logrus.FieldLogger, err error) {
	var be BusinessError
	if !errors.As(err, &be) {
		if log != nil {
			log.WithError(err).WithField("path", c.FullPath()).Error("unhandled error")
		}
		Internal(c, "internal_error", "Noe gikk galt.")
		return
	}

	if be.Err != nil && log != nil {
		log.WithError(be.Err).WithField("error_code", be.Code).Warn("request failed")
	}

	c.JSON(StatusFor(be.Kind), HTTPError{
		Code:       be.Code,
		MessageKey: be.MessageKey(),
		Message:    defaultMessage(be),
	})
}

var messages = map[string]string{
	"invalid_token":               "Ugyldig eller ukjent bestillingslenke.",
	"already_canceled":            "Timen er allerede kansellert.",
	"booking_not_active":          "Timen kan ikke lenger endres.",
	"outside_cancellation_window": "Fristen for endring har gått ut.",
	"time_conflict":               "Tidspunktet er ikke lenger ledig.",
	"outside_working_hours":       "Utenfor åpningstid.",
	"too_soon":                    "Tidspunktet er for nært.",
	"reschedule_in_past":          "Nytt tidspunkt må være i fremtiden.",
	"reschedule_limit_reached":    "Timen er flyttet for mange ganger.",
	"session_expired":             "Tilkoblingen er utløpt. Koble til på nytt.",
	"not_connected":               "Terminalen er ikke tilkoblet.",
}

func defaultMessage(be BusinessError) string {
	if m, ok := messages[be.Code]; ok {
		return m
	}
	switch be.Kind {
	case KindValidation:
		return "Ugyldige data."
	case KindNotFound:
		return "Fant ikke ressursen."
	case KindUpstreamAuth:
		return "Tilkoblingen må godkjennes på nytt."
	case KindUpstreamTransient:
		return "Tjenesten er midlertidig utilgjengelig."
	default:
		return "Forespørselen kunne ikke utføres."
	}
}
