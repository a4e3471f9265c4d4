// Package tools has development utilities that sit outside the
// rendering pipeline: HTML previews and rendering reports.
package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"

	md "github.com/russross/blackfriday/v2"

	"github.com/flowcard/flowcard/card"
)

// RenderCardHTML writes a rough HTML rendition of a rendered card
// tree, for eyeballing during card development.  TextBlock text goes
// through Markdown, since that's the subset card renderers support.
func RenderCardHTML(tree interface{}, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	root, is := tree.(map[string]interface{})
	if !is {
		return fmt.Errorf("card is not an object (%T)", tree)
	}

	f(`<div class="card">`)
	if body, is := root["body"].([]interface{}); is {
		for _, item := range body {
			renderElement(f, item)
		}
	}
	if actions, is := root["actions"].([]interface{}); is {
		f(`<div class="actions">`)
		for _, a := range actions {
			renderAction(f, a)
		}
		f(`</div>`)
	}
	f(`</div>`)
	return nil
}

func renderElement(f func(string, ...interface{}), x interface{}) {
	node, is := x.(map[string]interface{})
	if !is {
		return
	}
	kind := card.KindOf(node)
	switch kind.Raw {
	case "TextBlock":
		text, _ := node["text"].(string)
		f(`<div class="textBlock">%s</div>`, md.Run([]byte(text)))
	case "Image":
		url, _ := node["url"].(string)
		f(`<img class="image" src="%s">`, html.EscapeString(url))
	case "Container", "Column", "ColumnSet":
		f(`<div class="%s">`, html.EscapeString(kind.Raw))
		for _, field := range []string{"items", "columns"} {
			if children, is := node[field].([]interface{}); is {
				for _, c := range children {
					renderElement(f, c)
				}
			}
		}
		f(`</div>`)
	case "FactSet":
		f(`<table class="factSet">`)
		if facts, is := node["facts"].([]interface{}); is {
			for _, fx := range facts {
				fact, is := fx.(map[string]interface{})
				if !is {
					continue
				}
				title, _ := fact["title"].(string)
				value, _ := fact["value"].(string)
				f(`<tr><td>%s</td><td>%s</td></tr>`,
					html.EscapeString(title), html.EscapeString(value))
			}
		}
		f(`</table>`)
	case "Input.Text", "Input.Number", "Input.Date", "Input.Time":
		id, _ := node["id"].(string)
		f(`<input class="input" id="%s" placeholder="%s">`,
			html.EscapeString(id), html.EscapeString(stringAt(node, "placeholder")))
	case "Input.Toggle":
		id, _ := node["id"].(string)
		f(`<label><input type="checkbox" id="%s"> %s</label>`,
			html.EscapeString(id), html.EscapeString(stringAt(node, "title")))
	case "Input.ChoiceSet":
		id, _ := node["id"].(string)
		f(`<select class="choiceSet" id="%s">`, html.EscapeString(id))
		if choices, is := node["choices"].([]interface{}); is {
			for _, cx := range choices {
				choice, is := cx.(map[string]interface{})
				if !is {
					continue
				}
				f(`<option value="%s">%s</option>`,
					html.EscapeString(stringAt(choice, "value")),
					html.EscapeString(stringAt(choice, "title")))
			}
		}
		f(`</select>`)
	default:
		// Unknown elements still show up, as their JSON.
		js, err := json.Marshal(node)
		if err != nil {
			return
		}
		f(`<pre class="unknown">%s</pre>`, html.EscapeString(string(js)))
	}
}

func renderAction(f func(string, ...interface{}), x interface{}) {
	node, is := x.(map[string]interface{})
	if !is {
		return
	}
	kind := card.KindOf(node)
	title := stringAt(node, "title")
	if title == "" {
		title = kind.Raw
	}
	f(`<button class="action" data-type="%s">%s</button>`,
		html.EscapeString(kind.Raw), html.EscapeString(title))
	if kind.Raw == "Action.ShowCard" {
		if sub, is := node["card"].(map[string]interface{}); is {
			f(`<div class="showCard">`)
			if body, is := sub["body"].([]interface{}); is {
				for _, item := range body {
					renderElement(f, item)
				}
			}
			if actions, is := sub["actions"].([]interface{}); is {
				for _, a := range actions {
					renderAction(f, a)
				}
			}
			f(`</div>`)
		}
	}
}

func stringAt(node map[string]interface{}, key string) string {
	s, _ := node[key].(string)
	return s
}

// RenderCardPage wraps RenderCardHTML in a complete page.
func RenderCardPage(tree interface{}, out io.Writer, cssFiles []string) error {
	if cssFiles == nil {
		cssFiles = []string{"/static/card-preview.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>card preview</title>
`)
	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}
	fmt.Fprintf(out, "  </head>\n  <body>\n")

	if err := RenderCardHTML(tree, out); err != nil {
		return err
	}

	fmt.Fprintf(out, "  </body>\n</html>\n")
	return nil
}
