package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog/log"
)

// Recipient identifies who an auth email is for and the code to include.
type Recipient struct {
	UserName string
	Email    string
	Token    string
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<h2>Hola {{.UserName}}</h2>
<p>Gracias por registrarte en UpTask. Para confirmar tu cuenta, haz clic en el siguiente enlace:</p>
<a href="{{.Link}}">Confirmar cuenta</a>
<p>e ingresa el siguiente código de confirmación:</p>
<b>{{.Token}}</b>
<p>Si no puedes hacer clic en el enlace, copia y pega la siguiente URL en tu navegador:</p>
<p>{{.Link}}</p>
<p>Si no has solicitado la creación de una cuenta en UpTask, por favor ignora este correo.</p>
`))

var resetTmpl = template.Must(template.New("reset").Parse(`
<h2>Hola {{.UserName}}</h2>
<p>Recibimos una solicitud para restablecer la contraseña de tu cuenta en UpTask.</p>
<p>Haz clic en el siguiente enlace para restablecer tu contraseña:</p>
<a href="{{.Link}}">Restablecer contraseña</a>
<p>e ingresa el siguiente código de restablecimiento:</p>
<b>{{.Token}}</b>
<p>Si no puedes hacer clic en el enlace, copia y pega la siguiente URL en tu navegador:</p>
<p>{{.Link}}</p>
<p>Si no has solicitado el restablecimiento de tu contraseña, por favor ignora este correo.</p>
`))

// AuthEmail renders and dispatches account emails. Dispatch happens in the
// background: callers never wait for, or fail on, delivery.
type AuthEmail struct {
	mailer    Mailer
	clientURL string
	timeout   time.Duration
}

// NewAuthEmail creates an AuthEmail whose links point at clientURL.
func NewAuthEmail(mailer Mailer, clientURL string) *AuthEmail {
	return &AuthEmail{mailer: mailer, clientURL: clientURL, timeout: 30 * time.Second}
}

// SendVerification sends the account confirmation code.
func (a *AuthEmail) SendVerification(r Recipient) {
	a.dispatch(verificationTmpl, "UpTask Admin: Confirmación de cuenta", "/auth/confirm", r)
}

// SendPasswordReset sends the password reset code.
func (a *AuthEmail) SendPasswordReset(r Recipient) {
	a.dispatch(resetTmpl, "UpTask Admin: Restablecimiento de contraseña", "/auth/new-password", r)
}

// render returns the HTML body for tmpl.
func (a *AuthEmail) render(tmpl *template.Template, path string, r Recipient) (string, error) {
	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		UserName string
		Token    string
		Link     string
	}{r.UserName, r.Token, a.clientURL + path})
	if err != nil {
		return "", fmt.Errorf("rendering %s email: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func (a *AuthEmail) dispatch(tmpl *template.Template, subject, path string, r Recipient) {
	html, err := a.render(tmpl, path, r)
	if err != nil {
		log.Error().Err(err).Str("to", r.Email).Msg("Failed to render email")
		return
	}
	msg := Message{To: r.Email, ToName: r.UserName, Subject: subject, HTML: html}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.mailer.Send(ctx, msg); err != nil {
			log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Failed to send email")
		}
	}()
}
