package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

const (
	TemplateApprovedWithTracking = "approved_tracking"
	TemplateApprovedManual       = "approved_manual"
	TemplateRejected             = "rejected"
	TemplateAdminSale            = "admin_sale"
)

// OrderInfo is everything the notification templates can show.
type OrderInfo struct {
	ShortID          string
	StoreName        string
	StoreURL         string
	PaymentReference string
	PayerEmail       string
	RecipientName    string
	AddressLine      string
	TrackingNumber   string
	TrackingURL      string
	CarrierName      string
	SupportURL       string
	ManualFollowURL  string
	Items            []OrderItem
	Total            string
	Year             int
}

type OrderItem struct {
	Title     string
	Size      string
	Quantity  int
	UnitPrice string
}

type emailTemplate struct {
	subject string
	html    string
	text    string
}

var emailTemplates = map[string]emailTemplate{
	TemplateApprovedWithTracking: {
		subject: "Tu pedido #{{.ShortID}} está en camino 🚀",
		html:    approvedTrackingHTML,
		text:    approvedTrackingText,
	},
	TemplateApprovedManual: {
		subject: "Confirmación de Pedido #{{.ShortID}} (Acción Requerida)",
		html:    approvedManualHTML,
		text:    approvedManualText,
	},
	TemplateRejected: {
		subject: "Problema con tu pago en {{.StoreName}}",
		html:    rejectedHTML,
		text:    rejectedText,
	},
	TemplateAdminSale: {
		subject: "[VENTA] ${{.Total}} - {{.PayerEmail}}",
		html:    adminSaleHTML,
		text:    adminSaleText,
	},
}

// Renderer renders the notification templates. HTML bodies are escaped with
// html/template; subjects and text bodies use text/template.
type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewRenderer() (*Renderer, error) {
	htmlSet := htmltemplate.New("email")
	textSet := texttemplate.New("email")

	if _, err := htmlSet.Parse(htmlLayout); err != nil {
		return nil, fmt.Errorf("failed to parse HTML layout: %w", err)
	}
	for name, t := range emailTemplates {
		if _, err := textSet.New(name + "_subject").Parse(t.subject); err != nil {
			return nil, fmt.Errorf("failed to parse subject template %s: %w", name, err)
		}
		if _, err := textSet.New(name + "_text").Parse(t.text); err != nil {
			return nil, fmt.Errorf("failed to parse text template %s: %w", name, err)
		}
		if _, err := htmlSet.New(name + "_html").Parse(t.html); err != nil {
			return nil, fmt.Errorf("failed to parse HTML template %s: %w", name, err)
		}
	}

	return &Renderer{html: htmlSet, text: textSet}, nil
}

// Render produces the email for templateName. The recipient is left for the
// caller to fill in.
func (r *Renderer) Render(_ context.Context, templateName string, data *OrderInfo) (*Email, error) {
	if data == nil {
		return nil, fmt.Errorf("template data is required")
	}
	if _, ok := emailTemplates[templateName]; !ok {
		return nil, fmt.Errorf("unknown email template %q", templateName)
	}

	var subject, text, html bytes.Buffer
	if err := r.text.ExecuteTemplate(&subject, templateName+"_subject", data); err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := r.text.ExecuteTemplate(&text, templateName+"_text", data); err != nil {
		return nil, fmt.Errorf("failed to render text template: %w", err)
	}
	if err := r.html.ExecuteTemplate(&html, templateName+"_html", data); err != nil {
		return nil, fmt.Errorf("failed to render HTML template: %w", err)
	}

	return &Email{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}

const htmlLayout = `{{define "header"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; background-color: #F5F5F7; margin: 0; padding: 0;">
<div style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 16px; overflow: hidden;">
<div style="padding: 40px;">
<h1 style="margin: 0 0 24px 0; text-align: center; font-size: 28px;">{{.StoreName}}</h1>
{{end}}
{{define "summary"}}
<p style="margin: 32px 0 12px 0; font-weight: 700; font-size: 13px; color: #86868b; text-transform: uppercase;">Resumen del pedido</p>
<table style="width: 100%; border-collapse: collapse;">
<tbody>
{{- range .Items}}
<tr>
<td style="padding: 12px 0; border-bottom: 1px solid #eaeaea;"><strong>{{.Title}}</strong>{{if .Size}} ({{.Size}}){{end}}<div style="font-size: 12px; color: #86868b;">Cant: {{.Quantity}}</div></td>
<td style="padding: 12px 0; border-bottom: 1px solid #eaeaea; text-align: right;">${{.UnitPrice}}</td>
</tr>
{{- end}}
</tbody>
<tfoot><tr><td style="padding-top: 18px; text-align: right; font-weight: 600;">Total</td><td style="padding-top: 18px; text-align: right; font-weight: 800;">${{.Total}}</td></tr></tfoot>
</table>
{{end}}
{{define "footer"}}
</div>
<div style="background-color: #fafafa; padding: 24px 40px; text-align: center; border-top: 1px solid #eaeaea;">
{{if .SupportURL}}<p><a href="{{.SupportURL}}" style="color: #25D366; font-weight: 700; text-decoration: none;">Soporte WhatsApp</a></p>{{end}}
<p style="margin: 0 0 5px 0; color: #86868b; font-size: 11px;">ID de Referencia: {{.PaymentReference}}</p>
<p style="margin: 0; color: #86868b; font-size: 11px;">&copy; {{.Year}} {{.StoreName}}. Buenos Aires, Argentina.</p>
</div>
</div>
</body>
</html>
{{end}}`

const approvedTrackingHTML = `{{template "header" .}}
<h2 style="text-align: center;">¡Tu pedido está en camino!</h2>
<p style="text-align: center; color: #515154;">Hemos preparado tu paquete y ya tiene etiqueta de envío asignada.</p>
<div style="background-color: #fafafa; border-radius: 12px; padding: 30px; text-align: center; margin: 30px 0; border: 1px solid #eaeaea;">
<p style="margin: 0 0 8px 0; font-size: 11px; color: #86868b; text-transform: uppercase;">Código de seguimiento</p>
<p style="margin: 0 0 24px 0; font-size: 22px; font-family: monospace; font-weight: 700;">{{.TrackingNumber}}</p>
<a href="{{.TrackingURL}}" style="display: inline-block; padding: 14px 32px; background-color: #000000; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: 600;">Seguir Envío ({{.CarrierName}})</a>
</div>
{{template "summary" .}}
{{template "footer" .}}`

const approvedTrackingText = `¡Tu pedido #{{.ShortID}} está en camino!

Hemos preparado tu paquete y ya tiene etiqueta de envío asignada.

Código de seguimiento: {{.TrackingNumber}}
Seguí tu envío ({{.CarrierName}}): {{.TrackingURL}}

Resumen del pedido:
{{range .Items}}- {{.Title}}{{if .Size}} ({{.Size}}){{end}} x{{.Quantity}}: ${{.UnitPrice}}
{{end}}Total: ${{.Total}}

ID de Referencia: {{.PaymentReference}}`

const approvedManualHTML = `{{template "header" .}}
<h2 style="text-align: center;">Pago Aprobado</h2>
<p style="text-align: center; color: #515154;">Tu compra está confirmada y segura. Estamos gestionando tu etiqueta de envío manualmente debido a una demora en el sistema de correo.</p>
<div style="background-color: #FFF8E1; border-radius: 12px; padding: 25px; text-align: center; margin: 30px 0; border: 1px solid #ffeeba;">
<p style="margin: 0 0 20px 0; color: #F57F17; font-weight: 600;">Finalicemos tu envío por WhatsApp</p>
{{if .ManualFollowURL}}<a href="{{.ManualFollowURL}}" style="display: inline-block; padding: 14px 28px; background-color: #25D366; color: #ffffff; text-decoration: none; border-radius: 50px; font-weight: 700;">Contactar Ahora</a>{{end}}
</div>
{{template "summary" .}}
{{template "footer" .}}`

const approvedManualText = `Pago aprobado - Pedido #{{.ShortID}}

Tu compra está confirmada y segura. Estamos gestionando tu etiqueta de envío manualmente debido a una demora en el sistema de correo.
{{if .ManualFollowURL}}
Finalicemos tu envío por WhatsApp: {{.ManualFollowURL}}
{{end}}
Resumen del pedido:
{{range .Items}}- {{.Title}}{{if .Size}} ({{.Size}}){{end}} x{{.Quantity}}: ${{.UnitPrice}}
{{end}}Total: ${{.Total}}

ID de Referencia: {{.PaymentReference}}`

const rejectedHTML = `{{template "header" .}}
<h2 style="text-align: center; color: #D32F2F;">El pago no pudo completarse</h2>
<p style="text-align: center; color: #515154;">Hubo un problema con la transacción. Por favor, intenta nuevamente con otro método de pago.</p>
<div style="text-align: center; margin: 35px 0;">
<a href="{{.StoreURL}}" style="display: inline-block; padding: 14px 32px; background-color: #D32F2F; color: #ffffff; text-decoration: none; border-radius: 8px; font-weight: 600;">Intentar Nuevamente</a>
</div>
{{template "footer" .}}`

const rejectedText = `El pago no pudo completarse

Hubo un problema con la transacción. Por favor, intenta nuevamente con otro método de pago.

Intentar nuevamente: {{.StoreURL}}

ID de Referencia: {{.PaymentReference}}`

const adminSaleHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: monospace; background-color: #eeeeee; padding: 20px;">
<div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 20px; border: 1px solid #cccccc;">
<h2 style="margin-top: 0;">Nueva Venta: ${{.Total}}</h2>
<hr>
<h3>Cliente</h3>
<p>{{.PayerEmail}}<br>{{if .RecipientName}}{{.RecipientName}}{{else}}Sin nombre{{end}}</p>
<h3>Envío</h3>
<p>{{if .AddressLine}}{{.AddressLine}}{{else}}Retiro en local{{end}}</p>
<div style="background: #e3f2fd; padding: 10px; border: 1px solid #90caf9;">
<strong>Tracking:</strong> {{if .TrackingNumber}}{{.TrackingNumber}}{{if .CarrierName}} ({{.CarrierName}}){{end}}{{else}}NO GENERADO (Verificar Envia.com){{end}}
</div>
<h3>Items</h3>
<ul>
{{- range .Items}}
<li><strong>{{.Title}}</strong>{{if .Size}} ({{.Size}}){{end}} (x{{.Quantity}}) - ${{.UnitPrice}}</li>
{{- end}}
</ul>
<p>Ref Pago: {{.PaymentReference}}</p>
</div>
</body>
</html>`

const adminSaleText = `Nueva venta: ${{.Total}}

Cliente: {{.PayerEmail}} {{if .RecipientName}}({{.RecipientName}}){{end}}
Envío: {{if .AddressLine}}{{.AddressLine}}{{else}}Retiro en local{{end}}
Tracking: {{if .TrackingNumber}}{{.TrackingNumber}}{{else}}NO GENERADO (Verificar Envia.com){{end}}

Items:
{{range .Items}}- {{.Title}}{{if .Size}} ({{.Size}}){{end}} x{{.Quantity}}: ${{.UnitPrice}}
{{end}}
Ref Pago: {{.PaymentReference}}`
