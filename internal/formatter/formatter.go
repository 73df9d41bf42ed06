// Package formatter renders template content for a contact.
//
// Placeholders are positional: the i-th {{n}} found scanning left to right is
// resolved through bindings["var<i+1>"], whatever n says. A binding names
// either a logical contact field (nom, prenom, email, phone), matched
// case-sensitively, or a key that is looked up again in bindings as a literal
// value.
package formatter

import (
	"regexp"
	"strconv"
	"strings"
)

const DefaultName = "Cher client"

var placeholderRe = regexp.MustCompile(`\{\{(\d+)\}\}`)

// Contact is the subset of contact data the formatter reads.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Parameter is one template body parameter in provider wire order.
type Parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Render replaces every placeholder with its resolved value. Unresolved
// placeholders become empty strings.
func Render(content string, c Contact, bindings map[string]string) string {
	i := 0
	return placeholderRe.ReplaceAllStringFunc(content, func(string) string {
		v := resolve(i, c, bindings)
		i++
		return v
	})
}

// ExtractParameters returns the values Render would substitute, in order.
func ExtractParameters(content string, c Contact, bindings map[string]string) []Parameter {
	n := Placeholders(content)
	params := make([]Parameter, 0, n)
	for i := 0; i < n; i++ {
		params = append(params, Parameter{Type: "text", Text: resolve(i, c, bindings)})
	}
	return params
}

func Placeholders(content string) int {
	return len(placeholderRe.FindAllStringIndex(content, -1))
}

func resolve(index int, c Contact, bindings map[string]string) string {
	name, ok := bindings["var"+strconv.Itoa(index+1)]
	if !ok {
		return ""
	}

	switch name {
	case "nom", "name":
		if c.Name == "" {
			return DefaultName
		}
		return c.Name
	case "prenom":
		fields := strings.Fields(c.Name)
		if len(fields) == 0 {
			return DefaultName
		}
		return fields[0]
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	}

	return bindings[name]
}
