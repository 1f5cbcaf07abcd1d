package api

import (
	"net/http"
	"time"

	"github.com/shaharia-lab/formrelay/internal/message"
	"github.com/shaharia-lab/formrelay/internal/notification"
	"github.com/shaharia-lab/formrelay/internal/phone"
	"github.com/shaharia-lab/formrelay/internal/service"
)

// submissionResponse acknowledges an accepted submission. Success is true even
// when deliveries failed; Status carries the delivery aggregate.
type submissionResponse struct {
	Success      bool                           `json:"success"`
	Status       string                         `json:"status"`
	Message      string                         `json:"message"`
	SubmissionID string                         `json:"submission_id"`
	Timestamp    time.Time                      `json:"timestamp"`
	Deliveries   []notification.DeliveryOutcome `json:"deliveries"`
	Data         any                            `json:"data,omitempty"`
}

func writeResult(w http.ResponseWriter, res *service.Result, msg string, data any) {
	writeJSON(w, http.StatusOK, submissionResponse{
		Success:      true,
		Status:       res.Status,
		Message:      msg,
		SubmissionID: res.SubmissionID,
		Timestamp:    res.ReceivedAt,
		Deliveries:   res.Deliveries,
		Data:         data,
	})
}

func (s *Server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	var in message.ContactInquiry
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.relaySvc.SubmitContact(r.Context(), in, requestMeta(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	in.RecaptchaToken = ""
	writeResult(w, res, "Contact form submitted successfully", in)
}

func (s *Server) handleLead(w http.ResponseWriter, r *http.Request) {
	var in message.Lead
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.relaySvc.SubmitLead(r.Context(), in, requestMeta(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeResult(w, res, "Lead submitted successfully", map[string]any{
		"name":        in.Name,
		"email":       in.Email,
		"phone":       nullable(in.Phone.String()),
		"source":      nullable(in.Source),
		"interest":    nullable(in.Interest),
		"submittedAt": res.ReceivedAt,
	})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var in message.Order
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.relaySvc.PlaceOrder(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeResult(w, res, "Order placed successfully", map[string]any{"order": in})
}

func (s *Server) handleOrderComplete(w http.ResponseWriter, r *http.Request) {
	var in message.OrderCompletion
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.relaySvc.CompleteOrder(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeResult(w, res, "Order completion recorded successfully", map[string]any{"order": in})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var in message.Direct
	if !decodeBody(w, r, &in) {
		return
	}

	res, err := s.relaySvc.SendDirect(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var data any
	if len(res.Deliveries) > 0 {
		data = map[string]string{"sentTo": phone.User(res.Deliveries[0].Recipient)}
	}
	writeResult(w, res, "WhatsApp message processed", data)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	res, err := s.relaySvc.SendTest(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeResult(w, res, "WhatsApp test message processed", nil)
}

// nullable returns nil for blank strings so they encode as JSON null.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
