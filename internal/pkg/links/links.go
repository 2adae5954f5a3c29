// Package links builds the contact deep links shown on the storefront.
package links

import (
	"net/url"
	"strings"
)

type Contact struct {
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Maps     string `json:"maps"`
	Search   string `json:"search"`
}

// Digits keeps only 0-9, the form wa.me expects.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tel returns a tel: link, keeping a leading '+'.
func Tel(phone string) string {
	if phone == "" {
		return ""
	}
	d := Digits(phone)
	if strings.HasPrefix(strings.TrimSpace(phone), "+") {
		d = "+" + d
	}
	return "tel:" + d
}

func WhatsApp(number, message string) string {
	d := Digits(number)
	if d == "" {
		return ""
	}
	u := "https://wa.me/" + d
	if message != "" {
		u += "?text=" + url.QueryEscape(message)
	}
	return u
}

func Maps(address string) string {
	if address == "" {
		return ""
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(address)
}

func Search(query string) string {
	if query == "" {
		return ""
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// Build assembles every link for the bakery. Unconfigured entries stay empty.
func Build(name, phone, whatsapp, address, greeting string) Contact {
	return Contact{
		Phone:    Tel(phone),
		WhatsApp: WhatsApp(whatsapp, greeting),
		Maps:     Maps(address),
		Search:   Search(strings.TrimSpace(name + " " + address)),
	}
}
