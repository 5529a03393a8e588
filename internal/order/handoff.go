package order

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Channel is the external handoff that receives the formatted order.
// Open returns an error when the external application could not be invoked
// (e.g. no URL handler available); it says nothing about delivery.
type Channel interface {
	Open(message string) error
}

// WhatsApp hands orders off as a prefilled wa.me chat link opened through
// the operating system's URL handler.
type WhatsApp struct {
	phone  string
	launch func(url string) error
}

// NewWhatsApp creates a channel targeting the given fulfillment phone
// number. Formatting characters in the number are ignored; wa.me wants
// digits only.
func NewWhatsApp(phone string) (*WhatsApp, error) {
	digits := digitsOnly(phone)
	if digits == "" {
		return nil, fmt.Errorf("whatsapp channel: phone %q has no digits", phone)
	}
	return &WhatsApp{phone: digits, launch: launchURL}, nil
}

// URL returns the wa.me link for a message without opening it.
func (w *WhatsApp) URL(message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", w.phone, url.QueryEscape(message))
}

// Open launches the prefilled chat in the external application.
func (w *WhatsApp) Open(message string) error {
	if err := w.launch(w.URL(message)); err != nil {
		return fmt.Errorf("open whatsapp: %w", err)
	}
	return nil
}

// launchURL opens a URL with the platform handler. Start, not Run: the
// handoff passes control to an application outside this process's
// lifecycle, so there is nothing to wait for.
func launchURL(u string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", u)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", u)
	default:
		cmd = exec.Command("xdg-open", u)
	}
	return cmd.Start()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
