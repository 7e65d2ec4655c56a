package service

import "strings"

// RenderTemplate substitutes {placeholder} tokens in a message template.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderMessage fills the {name} placeholder with the recipient's display
// name, falling back to a neutral greeting for unnamed customers.
func RenderMessage(template, customerName string) string {
	name := strings.TrimSpace(customerName)
	if name == "" {
		name = "cliente"
	}
	return RenderTemplate(template, map[string]string{"name": name})
}
