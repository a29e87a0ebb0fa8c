package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/jonathan/outreach-cadence/internal/server/middleware"
	"github.com/jonathan/outreach-cadence/internal/types"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// StartSequenceResponse represents the response for POST /sequences
type StartSequenceResponse struct {
	Sequence   *db.Sequence            `json:"sequence"`
	Evaluation outreach.EvaluateResult `json:"evaluation"`
}

// validatable is implemented by every request type in internal/types.
type validatable interface {
	Validate() error
}

// decodeRequest reads a JSON body into req and validates it.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return false
	}
	return true
}

// pathID parses the {id} path segment as a UUID.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// handleIssueToken exchanges the admin password for a bearer token.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req types.TokenRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	if s.password == nil || !s.password.VerifyAdminPassword(req.Password) {
		s.logger.Warn("token request rejected", zap.String("remote_addr", r.RemoteAddr))
		s.writeError(w, r, &ErrInvalidCredentials{})
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	token, expiresAt, err := s.jwtService.GenerateToken(subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.TokenResponse{
		Token:     token,
		Subject:   subject,
		ExpiresAt: expiresAt,
	})
}

// handleCreateContact registers a contact
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req types.CreateContactRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	contact, err := s.engine.CreateContact(r.Context(), db.ContactInput{
		Email:       req.Email,
		Phone:       req.Phone,
		LinkedInURL: req.LinkedInURL,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusCreated, contact)
}

// handleStartSequence opens a sequence and drafts its first step
func (s *Server) handleStartSequence(w http.ResponseWriter, r *http.Request) {
	var req types.StartSequenceRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	// Validate guarantees both parse
	contactID := uuid.MustParse(req.ContactID)
	prospectID := uuid.MustParse(req.ProspectID)

	seq, result, err := s.engine.StartSequence(r.Context(), contactID, prospectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if subject, err := middleware.GetSubject(r); err == nil {
		s.logger.Info("sequence started via api",
			zap.String("sequence_id", seq.ID.String()),
			zap.String("subject", subject),
		)
	}

	s.jsonResponse(w, http.StatusCreated, StartSequenceResponse{Sequence: seq, Evaluation: result})
}

// handleGetSequence returns a sequence with its contact and steps
func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	seq, err := s.engine.GetSequence(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, seq)
}

// handleEvaluateSequence runs the scheduler for one sequence
func (s *Server) handleEvaluateSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	result, err := s.engine.Evaluate(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// handlePauseSequence holds an active sequence
func (s *Server) handlePauseSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	seq, err := s.engine.PauseSequence(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, seq)
}

// handleResumeSequence reactivates a paused sequence and re-evaluates it
func (s *Server) handleResumeSequence(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	seq, result, err := s.engine.ResumeSequence(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, StartSequenceResponse{Sequence: seq, Evaluation: result})
}

// handleCompleteStep records the delivery outcome of a queued touch
func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req types.CompleteStepRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	completion := outreach.Completion{StepID: id, Status: req.Status}
	if req.CompletedAt != nil {
		completion.CompletedAt = *req.CompletedAt
	}

	result, err := s.engine.RecordCompletion(r.Context(), completion)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// handleRecordEngagement merges engagement signals for a prospect
func (s *Server) handleRecordEngagement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var req types.EngagementRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	rec, err := s.engine.RecordEngagement(r.Context(), id, cadence.EngagementSignals{
		WizardMaxStep: req.WizardMaxStep,
		PDFDownloaded: req.PDFDownloaded,
		EmailOpens:    req.EmailOpens,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, rec)
}

// handleSweep promotes due steps immediately
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.PromoteDueSteps(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}
