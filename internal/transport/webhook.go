package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Sender delivers a prize offer to one participant. Implementations wrap
// whatever frontend actually talks to users (a chat bot, a push gateway).
type Sender interface {
	Offer(userID, prizeID int64, obscured []byte) error
}

// Offer is the payload delivered to the frontend for each participant:
// the obscured preview plus the prize id to attach to the claim action.
type Offer struct {
	ParticipantID int64  `json:"participant_id"`
	PrizeID       int64  `json:"prize_id"`
	Image         []byte `json:"image"`
}

// WebhookSender POSTs offers to a frontend callback URL, one request per
// participant.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a sender posting to url.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Offer delivers one offer. A non-2xx response is an error so the
// scheduler can log and move on to the next participant.
func (s *WebhookSender) Offer(userID, prizeID int64, obscured []byte) error {
	body, err := json.Marshal(Offer{ParticipantID: userID, PrizeID: prizeID, Image: obscured})
	if err != nil {
		return err
	}
	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("offer webhook returned %s", resp.Status)
	}
	return nil
}
