package shell

import (
	"bytes"
	"fmt"
	"html/template"

	"topstories/services/frontend/models"
)

// ViewState is the display mode derived from the current stories and error.
type ViewState int

const (
	Loading ViewState = iota
	Error
	Loaded
)

func (s ViewState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Loaded:
		return "loaded"
	default:
		return fmt.Sprintf("ViewState(%d)", int(s))
	}
}

// Derive computes the ViewState. An empty list with no error is Loading,
// even when a fetch has already settled.
func Derive(stories []models.Story, err error) ViewState {
	switch {
	case err != nil:
		return Error
	case len(stories) > 0:
		return Loaded
	default:
		return Loading
	}
}

var page = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Top Stories</title>
</head>
<body>
<div id="root">
{{- if .Err}}
<div>{{.Err.Error}}</div>
{{- else if .Stories}}
<main>
<h1>Top Stories</h1>
<ul>
{{- range .Stories}}
<li data-key="{{.URI}}"><a href="{{.URL}}">{{.Title}}</a></li>
{{- end}}
</ul>
</main>
{{- else}}
<div>Loading...</div>
{{- end}}
</div>
</body>
</html>
`))

// Render produces the full page for the given view inputs.
func Render(stories []models.Story, err error) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Stories []models.Story
		Err     error
	}{stories, err}
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
