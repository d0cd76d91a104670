package prompt

import (
	"regexp"
	"strings"
	"time"
)

// Template is a reusable prompt with {{name}} placeholders. Global
// templates are visible to every user.
type Template struct {
	ID        string    `gorm:"type:varchar(26);primaryKey" json:"id"`
	UserID    *uint64   `gorm:"index" json:"userId,omitempty"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Variables []string  `gorm:"type:text;serializer:json" json:"variables"`
	IsGlobal  bool      `gorm:"index;not null" json:"isGlobal"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}

func (Template) TableName() string { return "prompt_templates" }

var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_-]+)\s*\}\}`)

// ExtractVariables returns placeholder names in order of first use.
func ExtractVariables(content string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range placeholderRE.FindAllStringSubmatch(content, -1) {
		if name := m[1]; !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Render replaces placeholders with values. Placeholders without a value
// are left as written and reported in missing.
func Render(content string, values map[string]string) (rendered string, missing []string) {
	missing = []string{}
	seen := map[string]bool{}
	rendered = placeholderRE.ReplaceAllStringFunc(content, func(tok string) string {
		name := placeholderRE.FindStringSubmatch(tok)[1]
		if v, ok := values[name]; ok {
			return v
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return tok
	})
	return rendered, missing
}

func cleanVariables(vars []string) []string {
	out := make([]string, 0, len(vars))
	seen := map[string]bool{}
	for _, v := range vars {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
