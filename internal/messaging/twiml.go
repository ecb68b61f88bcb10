// Package messaging renders replies for the WhatsApp channel, either inline as
// TwiML or out of band through the Twilio REST API.
package messaging

import (
	"encoding/xml"
)

// ContentType is the media type of a TwiML response.
const ContentType = "text/xml"

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message *string  `xml:"Message,omitempty"`
}

// TwiML renders message as a Twilio messaging response. An empty message
// yields a bare acknowledgement with no reply.
func TwiML(message string) ([]byte, error) {
	resp := twimlResponse{}
	if message != "" {
		resp.Message = &message
	}
	body, err := xml.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
