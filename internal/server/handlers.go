package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/pathfinder/internal/ai/gemini"
	"github.com/spigell/pathfinder/internal/apperrors"
	"github.com/spigell/pathfinder/internal/aptitude"
	"github.com/spigell/pathfinder/internal/metrics"
	"github.com/spigell/pathfinder/internal/scoring"
	"github.com/spigell/pathfinder/internal/utils"
)

const (
	missingKeysMessage     = "marks or all_marks missing in request"
	invalidBodyMessage     = "request body must be a JSON object"
	invalidAllMarksMessage = "all_marks must map subject names to numeric marks"
	maxBodyBytes           = 1 << 20
)

type chatRequest struct {
	Prompt  json.RawMessage `json:"prompt"`
	Message json.RawMessage `json:"message"`
}

type chatResponse struct {
	Advice string `json:"advice"`
	Reply  string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online", "message": StatusMessage})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// chat parses the body whatever the Content-Type says.
func (s *Server) chat(c *gin.Context) {
	var req chatRequest
	if err := decodeBody(c, &req); err != nil {
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.respondError(c, apperrors.NewValidation(gemini.NoPromptMessage))
		return
	}

	prompt := utils.FirstNonBlank(promptText(req.Prompt), promptText(req.Message))
	if prompt == "" {
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.respondError(c, apperrors.NewValidation(gemini.NoPromptMessage))
		return
	}

	if s.deps.Advisor == nil {
		metrics.AdviceRequests.WithLabelValues(metrics.OutcomeUnavailable).Inc()
		s.respondError(c, apperrors.NewProviderUnavailable("none", errAdvisorMissing))
		return
	}

	advice, err := s.deps.Advisor.Advise(c.Request.Context(), prompt)
	if err != nil {
		outcome := metrics.OutcomeUnavailable
		if apperrors.IsValidation(err) {
			outcome = metrics.OutcomeInvalid
		}
		metrics.AdviceRequests.WithLabelValues(outcome).Inc()
		s.respondError(c, err)
		return
	}

	metrics.AdviceRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.JSON(http.StatusOK, chatResponse{Advice: advice.Text, Reply: advice.Text})
}

func (s *Server) predict(c *gin.Context) {
	marks, allMarks, err := parsePrediction(c)
	if err != nil {
		metrics.Predictions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		s.respondError(c, err)
		return
	}

	results, err := s.deps.Predictor.Score(c.Request.Context(), marks, allMarks)
	if err != nil {
		outcome := metrics.OutcomeMisconfigured
		if apperrors.IsValidation(err) {
			outcome = metrics.OutcomeInvalid
		}
		metrics.Predictions.WithLabelValues(outcome).Inc()
		s.respondError(c, err)
		return
	}

	if results == nil {
		results = []scoring.Result{}
	}

	metrics.Predictions.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.PredictionResults.Observe(float64(len(results)))

	requestLogger(c).Debug("prediction computed", zap.Int("results", len(results)))
	c.JSON(http.StatusOK, results)
}

// parsePrediction distinguishes absent keys from malformed values.
func parsePrediction(c *gin.Context) ([]float64, scoring.Marks, error) {
	var body map[string]json.RawMessage
	if err := decodeBody(c, &body); err != nil || body == nil {
		return nil, nil, apperrors.NewValidation(invalidBodyMessage)
	}

	rawMarks, hasMarks := body["marks"]
	rawAllMarks, hasAll := body["all_marks"]
	if !hasMarks || !hasAll {
		return nil, nil, apperrors.NewValidation(missingKeysMessage)
	}

	// Pointers tell a JSON null apart from a zero mark.
	var raw []*float64
	if err := json.Unmarshal(rawMarks, &raw); err != nil || len(raw) != len(aptitude.CoreSubjects) {
		return nil, nil, apperrors.NewValidation(aptitude.MarksValidationMessage)
	}

	marks := make([]float64, len(raw))
	for i, mark := range raw {
		if mark == nil {
			return nil, nil, apperrors.NewValidation(aptitude.MarksValidationMessage)
		}
		marks[i] = *mark
	}

	// null all_marks means no subject marks were given.
	var rawAll map[string]*float64
	if err := json.Unmarshal(rawAllMarks, &rawAll); err != nil {
		return nil, nil, apperrors.NewValidation(invalidAllMarksMessage)
	}

	allMarks := make(scoring.Marks, len(rawAll))
	for subject, mark := range rawAll {
		if mark == nil {
			return nil, nil, apperrors.NewValidation(invalidAllMarksMessage)
		}
		allMarks[subject] = *mark
	}

	return marks, allMarks, nil
}

// promptText reads a prompt value. Strings are used as is, other scalars by
// their JSON text, null and absent values as blank.
func promptText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}

func decodeBody(c *gin.Context, target any) error {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	log := requestLogger(c)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: apperrors.PublicMessage(err)})
}
