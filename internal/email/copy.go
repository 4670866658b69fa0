package email

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Copy holds the human-facing text of the attendee emails. Fields left
// empty in an override file keep their defaults.
type Copy struct {
	WelcomeSubject          string `yaml:"welcome_subject"`
	WelcomeHeading          string `yaml:"welcome_heading"`
	WelcomeIntro            string `yaml:"welcome_intro"`
	EmailAlreadyUsedSubject string `yaml:"email_already_used_subject"`
	EmailAlreadyUsedHeading string `yaml:"email_already_used_heading"`
	EmailAlreadyUsedIntro   string `yaml:"email_already_used_intro"`
	SupportAddress          string `yaml:"support_address"`
	Footer                  string `yaml:"footer"`
}

// DefaultCopy returns the built-in email text.
func DefaultCopy() Copy {
	return Copy{
		WelcomeSubject:          "Welcome to Winetopia",
		WelcomeHeading:          "Your Winetopia account is ready",
		WelcomeIntro:            "Thanks for getting your ticket. Your tasting tokens have been loaded onto your account and are ready to use at the event.",
		EmailAlreadyUsedSubject: "We couldn't set up your Winetopia account",
		EmailAlreadyUsedHeading: "This email address is already in use",
		EmailAlreadyUsedIntro:   "We received a ticket for this email address, but it is already linked to another ticket. Each ticket needs its own email address.",
		SupportAddress:          "support@winetopia.co.nz",
		Footer:                  "Winetopia",
	}
}

// LoadCopy reads YAML overrides from path on top of DefaultCopy.
// An empty path returns the defaults.
func LoadCopy(path string) (Copy, error) {
	c := DefaultCopy()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Copy{}, fmt.Errorf("read email copy %s: %w", path, err)
	}
	return parseCopy(c, raw)
}

func parseCopy(base Copy, raw []byte) (Copy, error) {
	var override Copy
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Copy{}, fmt.Errorf("parse email copy: %w", err)
	}

	merge := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	merge(&base.WelcomeSubject, override.WelcomeSubject)
	merge(&base.WelcomeHeading, override.WelcomeHeading)
	merge(&base.WelcomeIntro, override.WelcomeIntro)
	merge(&base.EmailAlreadyUsedSubject, override.EmailAlreadyUsedSubject)
	merge(&base.EmailAlreadyUsedHeading, override.EmailAlreadyUsedHeading)
	merge(&base.EmailAlreadyUsedIntro, override.EmailAlreadyUsedIntro)
	merge(&base.SupportAddress, override.SupportAddress)
	merge(&base.Footer, override.Footer)
	return base, nil
}
