package api

import (
	_ "embed"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// homeHTML is the landing page served on "/", embedded at build time.
//
//go:embed web/index.html
var homeHTML []byte

// statusResponse is the /status body.
type statusResponse struct {
	Online bool `json:"online"`
}

// handleStatus reports whether the device is connected.
func (s *Server) handleStatus(_ *http.Request) (Response, error) {
	return jsonResponse(http.StatusOK, statusResponse{Online: s.presence.IsConnected()})
}

// handleDispense forwards a dispense command to the device.
//
// The response is sent as soon as the broker accepts the command; whether
// the motor actually ran is not observed.
func (s *Server) handleDispense(r *http.Request) (Response, error) {
	if !s.presence.IsConnected() {
		return textResponse(http.StatusServiceUnavailable, "device not connected"), nil
	}

	amount := s.parseAmount(r)
	if s.dispenseCfg.RejectOutOfRange && !s.inRange(amount) {
		return textResponse(http.StatusBadRequest,
			fmt.Sprintf("amount must be greater than 0 and at most %g seconds", s.dispenseCfg.MaxSeconds)), nil
	}

	s.logger.Info("Dispensing for Chompy",
		"amount", amount,
		"request_id", requestID(r.Context()),
	)

	cmd, err := s.dispatcher.Dispense(r.Context(), amount)
	if err != nil {
		return Response{}, err
	}

	s.logger.Debug("dispense forwarded",
		"command_id", cmd.ID,
		"request_id", requestID(r.Context()),
	)
	return Response{Status: http.StatusOK}, nil
}

// parseAmount reads the amount query parameter in seconds.
//
// A missing parameter yields the configured default. So does a value that
// is not a finite number; that case is logged.
func (s *Server) parseAmount(r *http.Request) float64 {
	values, ok := r.URL.Query()["amount"]
	if !ok || len(values) == 0 {
		return s.dispenseCfg.DefaultSeconds
	}

	raw := values[0]
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		s.logger.Warn("unusable dispense amount, using default",
			"amount", raw,
			"default", s.dispenseCfg.DefaultSeconds,
			"request_id", requestID(r.Context()),
		)
		return s.dispenseCfg.DefaultSeconds
	}
	return amount
}

// inRange reports whether amount is a motor run the agent will forward.
func (s *Server) inRange(amount float64) bool {
	return amount > 0 && amount <= s.dispenseCfg.MaxSeconds
}

// handleRoot serves the landing page.
func (s *Server) handleRoot(_ *http.Request) (Response, error) {
	return Response{Status: http.StatusOK, ContentType: contentTypeHTML, Body: homeHTML}, nil
}

// handleNotFound answers every unknown route.
func (s *Server) handleNotFound(_ *http.Request) (Response, error) {
	return textResponse(http.StatusNotFound, "Not found"), nil
}
