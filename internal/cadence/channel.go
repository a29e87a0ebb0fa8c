// Package cadence computes outreach cadence state: which channel to use next and when.
//
// Everything in this package is pure and safe for concurrent use.
package cadence

// Channel identifies an outreach channel a touch is delivered on.
type Channel string

// Channel constants
const (
	ChannelEmail    Channel = "email"
	ChannelCall     Channel = "call"
	ChannelLinkedIn Channel = "linkedin"
	ChannelWhatsApp Channel = "whatsapp"
)

// RotationOrder is the global channel rotation. The resolver filters it per contact
// and the calculator indexes into the filtered result, so the order lives here only.
var RotationOrder = []Channel{ChannelEmail, ChannelCall, ChannelLinkedIn, ChannelWhatsApp}

// Valid reports whether c is one of the rotation channels.
func (c Channel) Valid() bool {
	for _, ch := range RotationOrder {
		if c == ch {
			return true
		}
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ContactChannels is a snapshot of how a contact can be reached.
// Only presence is inspected, never the values.
type ContactChannels struct {
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
}

// ResolveChannels returns the rotation channels the contact can receive, in rotation order.
// Email is always included, so the result is never empty.
func ResolveChannels(c ContactChannels) []Channel {
	available := make([]Channel, 0, len(RotationOrder))
	for _, ch := range RotationOrder {
		switch ch {
		case ChannelEmail:
			available = append(available, ch)
		case ChannelCall, ChannelWhatsApp:
			if c.Phone != nil {
				available = append(available, ch)
			}
		case ChannelLinkedIn:
			if c.LinkedInURL != nil {
				available = append(available, ch)
			}
		}
	}
	return available
}
