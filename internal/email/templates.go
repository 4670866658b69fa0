package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateWelcome          = "welcome.html"
	templateEmailAlreadyUsed = "email_already_used.html"
)

var (
	templatesOnce sync.Once
	templateSet   map[string]*template.Template
	templateErr   error
)

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	Footer     string
}

type welcomeEmailData struct {
	baseEmailData
	FullName      string
	Email         string
	Intro         string
	HasAttachment bool
}

type emailAlreadyUsedEmailData struct {
	baseEmailData
	FullName string
	Email    string
	Intro    string
	Support  string
}

func loadTemplates() (map[string]*template.Template, error) {
	templatesOnce.Do(func() {
		set := make(map[string]*template.Template, 2)
		for _, name := range []string{templateWelcome, templateEmailAlreadyUsed} {
			tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name)
			if err != nil {
				templateErr = fmt.Errorf("parse email template %s: %w", name, err)
				return
			}
			set[name] = tmpl
		}
		templateSet = set
	})
	return templateSet, templateErr
}

func renderEmailTemplate(name string, data any) (string, error) {
	set, err := loadTemplates()
	if err != nil {
		return "", err
	}
	tmpl, ok := set[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderWelcome(c Copy, toEmail, fullName string, hasAttachment bool) (subject, content string, err error) {
	content, err = renderEmailTemplate(templateWelcome, welcomeEmailData{
		baseEmailData: baseEmailData{
			Title:   c.WelcomeSubject,
			Heading: c.WelcomeHeading,
			Footer:  c.Footer,
		},
		FullName:      fullName,
		Email:         toEmail,
		Intro:         c.WelcomeIntro,
		HasAttachment: hasAttachment,
	})
	return c.WelcomeSubject, content, err
}

func renderEmailAlreadyUsed(c Copy, toEmail, fullName string) (subject, content string, err error) {
	content, err = renderEmailTemplate(templateEmailAlreadyUsed, emailAlreadyUsedEmailData{
		baseEmailData: baseEmailData{
			Title:   c.EmailAlreadyUsedSubject,
			Heading: c.EmailAlreadyUsedHeading,
			Footer:  c.Footer,
		},
		FullName: fullName,
		Email:    toEmail,
		Intro:    c.EmailAlreadyUsedIntro,
		Support:  c.SupportAddress,
	})
	return c.EmailAlreadyUsedSubject, content, err
}
