// internal/service/template.go
package service

import (
    "strings"
)

// RenderTemplate substitutes {placeholder} markers. Empty values render as
// <unknown> rather than leaving a dangling placeholder in the message.
func RenderTemplate(template string, data map[string]string) string {
    result := template
    for k, v := range data {
        if v == "" {
            v = "<unknown>"
        }
        result = strings.ReplaceAll(result, "{"+k+"}", v)
    }
    return result
}
