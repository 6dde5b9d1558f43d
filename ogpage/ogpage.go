// Package ogpage gera páginas HTML mínimas com meta tags de preview social
// (Open Graph / Twitter) que redirecionam o navegador para a página real.
//
// Crawlers leem as meta tags; navegadores seguem o redirect.
package ogpage

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Meta é o que aparece no card de preview.
type Meta struct {
	Title       string
	Description string
	// Image é um caminho relativo ao site (ex: /og/case-studies/acme.jpg).
	Image string
}

// Table mapeia a chave da rota (slug) para os metadados.
type Table struct {
	Entries  map[string]Meta
	Fallback Meta
}

// Lookup nunca falha: chave desconhecida devolve o Fallback.
func (t Table) Lookup(slug string) (Meta, bool) {
	m, ok := t.Entries[slug]
	if !ok {
		return t.Fallback, false
	}
	return m, true
}

// RedirectMode escolhe como o navegador é enviado ao destino.
type RedirectMode int

const (
	RedirectScript RedirectMode = iota
	RedirectMetaRefresh
)

// Page é tudo que o template precisa.
type Page struct {
	Meta
	SiteURL   string
	TargetURL string
	ImageURL  string
	Mode      RedirectMode
}

var pageTmpl = template.Must(template.New("og").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:type" content="article">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:image" content="{{.ImageURL}}">
<meta property="og:url" content="{{.TargetURL}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="twitter:image" content="{{.ImageURL}}">
<link rel="canonical" href="{{.TargetURL}}">
{{- if eq .Mode 1}}
<meta http-equiv="refresh" content="0; url={{.TargetURL}}">
{{- end}}
</head>
<body>
{{- if eq .Mode 0}}
<script>window.location.replace({{.TargetURL}});</script>
{{- end}}
<p>Redirecting to <a href="{{.TargetURL}}">{{.Title}}</a>…</p>
</body>
</html>
`))

// Render gera o HTML da página. Mesma entrada, mesma saída.
func Render(p Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Handler serve uma família de páginas (ex: case studies) a partir da Table.
type Handler struct {
	Table   Table
	SiteURL string
	// PathPrefix é o caminho da página real, ex: "/case-studies/".
	PathPrefix string
	Mode       RedirectMode
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		slug = r.URL.Query().Get("slug")
	}
	slug = strings.Trim(slug, "/ ")

	meta, _ := h.Table.Lookup(slug)
	site := strings.TrimRight(h.SiteURL, "/")
	target := site + h.PathPrefix + slug
	if slug == "" {
		target = site + strings.TrimRight(h.PathPrefix, "/")
	}

	body, err := Render(Page{
		Meta:      meta,
		SiteURL:   site,
		TargetURL: target,
		ImageURL:  site + meta.Image,
		Mode:      h.Mode,
	})
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(body)
}
