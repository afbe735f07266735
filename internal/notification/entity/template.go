package entity

import "errors"

// ErrUnknownPurpose is returned when no template is registered for a purpose.
var ErrUnknownPurpose = errors.New("notification: no template for purpose")

// Purpose values as carried by the otp_issued event.
const (
	PurposeRegistration = "registration"
	PurposeLogin        = "login"
)

// Template is the email layout for one OTP purpose. Bodies are html/template
// and text/template sources rendered with TemplateData.
type Template struct {
	Purpose string
	Subject string
	Text    string
	HTML    string
}

// TemplateData is what a Template may reference.
type TemplateData struct {
	AppName       string
	Name          string
	Code          string
	ExpiryMinutes int
	SupportEmail  string
	Year          string
}

var templates = map[string]Template{
	PurposeRegistration: {
		Purpose: PurposeRegistration,
		Subject: "{{.AppName}}: confirm your email",
		Text: `Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Your verification code is {{.Code}}.
It expires in {{.ExpiryMinutes}} minutes.

If you did not sign up for {{.AppName}}, ignore this email.
`,
		HTML: `<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Your verification code is <strong>{{.Code}}</strong>.<br>It expires in {{.ExpiryMinutes}} minutes.</p>
<p>If you did not sign up for {{.AppName}}, ignore this email.</p>
<p style="color:#888">&copy; {{.Year}} {{.AppName}}{{if .SupportEmail}} &middot; {{.SupportEmail}}{{end}}</p>
`,
	},
	PurposeLogin: {
		Purpose: PurposeLogin,
		Subject: "{{.AppName}}: your sign-in code",
		Text: `Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Use {{.Code}} to sign in. The code expires in {{.ExpiryMinutes}} minutes.

If this wasn't you, change your password.
`,
		HTML: `<p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
<p>Use <strong>{{.Code}}</strong> to sign in. The code expires in {{.ExpiryMinutes}} minutes.</p>
<p>If this wasn't you, change your password.</p>
<p style="color:#888">&copy; {{.Year}} {{.AppName}}{{if .SupportEmail}} &middot; {{.SupportEmail}}{{end}}</p>
`,
	},
}

// TemplateFor returns the template registered for purpose.
func TemplateFor(purpose string) (Template, error) {
	tpl, ok := templates[purpose]
	if !ok {
		return Template{}, ErrUnknownPurpose
	}
	return tpl, nil
}
