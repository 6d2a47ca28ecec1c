package reply

import (
	"strings"
)

// Footer is the guidance block shown under every successful lookup.
// Empty fields drop their line.
type Footer struct {
	Support string // handle to ping when something looks off, e.g. "@support"
	Brand   string
	Website string
}

const (
	footerTitle   = "✅ Next steps"
	footerMessage = " • Please message each contact separately (so nothing gets missed)."
	footerDeals   = " • They'll help with the best deals for your GEOs as soon as possible."
	footerClosing = "Great to (e-)meet you, have a fantastic day! 🙌"
)

// Render returns the footer text for a user with the given display name.
func (f Footer) Render(username string) string {
	lines := []string{footerTitle, footerMessage, footerDeals}

	if f.Support != "" {
		lines = append(lines, " • If anything looks off or a link doesn't work, ping "+f.Support+".")
	}

	if f.Brand != "" && f.Website != "" {
		name := username
		if name == "" {
			name = "[Your Name]"
		}
		lines = append(lines, " • Here is the message. Hey there 👋 I'm "+name+" from "+f.Brand+
			". Our affiliate program: "+f.Website+
			". We're ready to talk GEOs and deal terms. When's a good time for you?")
	}

	lines = append(lines, footerClosing)
	return strings.Join(lines, "\n")
}
