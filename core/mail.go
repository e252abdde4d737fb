package core

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"
)

const templatesDir = "templates/email"

//go:embed templates/email/*
var templatesFS embed.FS

// mailTemplates holds the parsed email templates, keyed by name without extension.
var mailTemplates = struct {
	sync.RWMutex
	byName  map[string]*mailTemplate
	appName string
	baseURL string
}{}

type (
	mailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // plain text body, used instead of the template text
		Attachments []Attachment

		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is what templates are executed with.
	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func lookupTemplate(name string) (*mailTemplate, ContextData) {
	mailTemplates.RLock()
	defer mailTemplates.RUnlock()
	return mailTemplates.byName[name], ContextData{
		AppName:         mailTemplates.appName,
		FrontendBaseURL: mailTemplates.baseURL,
	}
}

// Render fills TextContent and HTMLContent from the message template.
// BodyStr, when set, wins over the text template.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	tmpl, data := lookupTemplate(m.TemplateName)
	if tmpl == nil {
		return fmt.Errorf("unknown email template %q", m.TemplateName)
	}
	data.Data = m.TemplateData

	var buf bytes.Buffer
	if tmpl.text != nil && m.BodyStr == "" {
		if err := tmpl.text.Execute(&buf, data); err != nil {
			return err
		}
		m.TextContent = buf.String()
		buf.Reset()
	}
	if tmpl.html != nil {
		if err := tmpl.html.Execute(&buf, data); err != nil {
			return err
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

// Attach base64 encodes the content of r and adds it as an attachment.
// The content type is sniffed when ct is not given.
func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer), ContentType: http.DetectContentType(content)}
	if len(ct) > 0 {
		at.ContentType = ct[0]
	}
	enc := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := enc.Write(content); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return m.TextContent != "" || m.HTMLContent != "" }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// ParseEmailTemplates loads the embedded email templates. It must be called once at start up.
// Files starting with "_" are layouts shared by the templates of the same extension.
func ParseEmailTemplates(conf *Config, logger Logger) {
	byName := make(map[string]*mailTemplate)
	strict := conf.Debug || conf.TestMode

	entries, err := fs.ReadDir(templatesFS, templatesDir)
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}
	for _, de := range entries {
		fname := de.Name()
		if strings.HasPrefix(fname, "_") {
			continue
		}
		ext := path.Ext(fname)
		name := strings.TrimSuffix(fname, ext)
		files := []string{path.Join(templatesDir, "_base"+ext), path.Join(templatesDir, fname)}

		tmpl := byName[name]
		if tmpl == nil {
			tmpl = new(mailTemplate)
		}
		switch ext {
		case ".txt":
			tmpl.text, err = texttmpl.ParseFS(templatesFS, files...)
			if err == nil && strict {
				tmpl.text.Option("missingkey=error")
			}
		case ".gohtml":
			tmpl.html, err = htmltmpl.ParseFS(templatesFS, files...)
			if err == nil && strict {
				tmpl.html.Option("missingkey=error")
			}
		default:
			continue
		}
		if err != nil {
			logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
			continue
		}
		byName[name] = tmpl
	}

	mailTemplates.Lock()
	defer mailTemplates.Unlock()
	mailTemplates.byName = byName
	mailTemplates.appName = conf.AppName
	mailTemplates.baseURL = conf.FrontendBaseURL
}
