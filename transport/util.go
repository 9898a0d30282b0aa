package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/Aukciszek/backend/protoerr"
)

// hexEncode renders a field element as a 0x-prefixed lowercase hex string.
func hexEncode(v *big.Int) string {
	return "0x" + v.Text(16)
}

// parseHex accepts any base-16 integer literal the wire sends, with or
// without a 0x/0X prefix.
func parseHex(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid hex integer", protoerr.ErrBadRequest, s)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, result string) {
	writeJSON(w, http.StatusCreated, okResponse{Result: result})
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps a protocol error to the HTTP status code the transport
// layer reports, per the error handling design's kind -> status mapping.
func statusFor(err error) int {
	switch {
	case errors.Is(err, protoerr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, protoerr.ErrPeerFailure):
		return http.StatusBadGateway
	case errors.Is(err, protoerr.ErrNotInvertible), errors.Is(err, protoerr.ErrSingular), errors.Is(err, protoerr.ErrInternal):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
