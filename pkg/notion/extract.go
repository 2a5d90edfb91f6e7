package notion

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ExtractText flattens a typed database property into a plain display
// string. Notion properties are a tagged union keyed by "type"; any
// type we don't recognize degrades to an empty string.
func ExtractText(prop gjson.Result) string {
	if !prop.Exists() {
		return ""
	}

	switch prop.Get("type").Str {
	case "title":
		return joinPlainText(prop.Get("title"))
	case "rich_text":
		return joinPlainText(prop.Get("rich_text"))
	case "number":
		num := prop.Get("number")
		if !num.Exists() || num.Type == gjson.Null {
			return "0"
		}
		return num.String()
	case "select":
		return prop.Get("select.name").Str
	case "multi_select":
		var names []string
		prop.Get("multi_select").ForEach(func(_, option gjson.Result) bool {
			names = append(names, option.Get("name").Str)
			return true
		})
		return strings.Join(names, ", ")
	case "url":
		return prop.Get("url").Str
	case "checkbox":
		if prop.Get("checkbox").Bool() {
			return "Yes"
		}
		return "No"
	case "date":
		return prop.Get("date.start").Str
	case "status":
		return prop.Get("status.name").Str
	}

	return ""
}

func joinPlainText(runs gjson.Result) string {
	var sb strings.Builder
	runs.ForEach(func(_, run gjson.Result) bool {
		sb.WriteString(run.Get("plain_text").Str)
		return true
	})
	return sb.String()
}

// prop returns the first property present under any of the given
// names.
func prop(props gjson.Result, names ...string) gjson.Result {
	for _, name := range names {
		if p := props.Get(name); p.Exists() {
			return p
		}
	}
	return gjson.Result{}
}

// titleProp is like prop but falls back to scanning for the first
// title-typed property, whatever its column name. Covers databases
// where the title column was renamed to something we never listed.
func titleProp(props gjson.Result, names ...string) gjson.Result {
	if p := prop(props, names...); p.Exists() {
		return p
	}

	var title gjson.Result
	props.ForEach(func(_, v gjson.Result) bool {
		if v.Get("type").Str == "title" {
			title = v
			return false
		}
		return true
	})
	return title
}
