// Package prompt renders selected repository files and user instructions
// into the text handed to an AI agent.
package prompt

import (
	"path"
	"strings"
)

// Envelope tags.
const (
	FileMapTag          = "file_map"
	FileTreeTag         = "file_tree"
	UserInstructionsTag = "user_instructions"
	XMLInstructionsTag  = "xml_formatting_instructions"
)

// Request describes one prompt.
type Request struct {
	Paths            []string          // Rendered in the given order.
	Contents         map[string]string // Missing entries render as empty bodies.
	Instructions     string
	DiffInstructions bool // Prepend the response schema consumed by diffxml.Parse.
	Tree             bool // Add a file tree of Paths.
}

// Build renders the plain or diff-instructed prompt. Content is embedded
// verbatim; nothing is escaped.
func Build(selectedPaths []string, contentsByPath map[string]string, instructions string, includeDiffInstructions bool) string {
	return Render(Request{
		Paths:            selectedPaths,
		Contents:         contentsByPath,
		Instructions:     instructions,
		DiffInstructions: includeDiffInstructions,
	})
}

// Render renders req.
func Render(req Request) string {
	var b strings.Builder

	if req.DiffInstructions {
		b.WriteString(openTag(XMLInstructionsTag))
		b.WriteString(DiffInstructions)
		b.WriteString(closeTag(XMLInstructionsTag))
		b.WriteString("\n")
	}

	if req.Tree {
		b.WriteString(openTag(FileTreeTag))
		b.WriteString(Tree(req.Paths))
		b.WriteString(closeTag(FileTreeTag))
		b.WriteString("\n")
	}

	b.WriteString(openTag(FileMapTag))
	for _, p := range req.Paths {
		writeFile(&b, p, req.Contents[p])
	}
	b.WriteString(closeTag(FileMapTag))
	b.WriteString("\n")

	b.WriteString(openTag(UserInstructionsTag))
	b.WriteString(req.Instructions)
	if req.Instructions != "" && !strings.HasSuffix(req.Instructions, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(closeTag(UserInstructionsTag))

	return b.String()
}

func writeFile(b *strings.Builder, p, content string) {
	b.WriteString("File: ")
	b.WriteString(p)
	b.WriteString("\n```")
	b.WriteString(FenceLanguage(p))
	b.WriteString("\n")
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\n")
}

func openTag(name string) string {
	return "<" + name + ">\n"
}

func closeTag(name string) string {
	return "</" + name + ">\n"
}

// FenceLanguage returns the code fence info string for p, or "" when the
// extension is unknown.
func FenceLanguage(p string) string {
	base := path.Base(strings.ReplaceAll(p, `\`, "/"))
	if lang, ok := fileNameLanguages[base]; ok {
		return lang
	}
	return extLanguages[strings.ToLower(path.Ext(base))]
}

var fileNameLanguages = map[string]string{
	"Dockerfile": "dockerfile",
	"Makefile":   "makefile",
	"go.mod":     "go",
}

var extLanguages = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "jsx",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "tsx",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".swift": "swift",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "bash",
	".bash":  "bash",
	".zsh":   "zsh",
	".ps1":   "powershell",
	".sql":   "sql",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".scss":  "scss",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".toml":  "toml",
	".xml":   "xml",
	".md":    "markdown",
	".proto": "protobuf",
	".vue":   "vue",
}
