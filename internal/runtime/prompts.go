package runtime

import "github.com/docsmith/docsmith/pkg/models"

// rolePrompts holds the system prompt for each remote agent role.
// Responses must be machine-parseable: the analyzer and generator return
// JSON matching the artifact payload schemas, the formatter returns the
// rendition body directly.
var rolePrompts = map[models.WorkerRole]string{
	models.RoleAnalyzer: `You are a senior code and system intelligence engineer.
Extract architecture, API endpoints, authentication methods, database usage,
and security risks from the described codebase.
Respond with a single JSON object with the fields: source, architecture,
language, files, endpoints (method, path, file), auth_methods, databases,
security_findings (severity, description, file). No prose outside the JSON.`,

	models.RoleGenerator: `You are an enterprise documentation architect.
From the analysis JSON you are given, write BRD, FRD, NFRD, Security and
Architecture documents in Markdown.
Respond with a single JSON object with the fields: title, sections; each
section has type (one of brd, frd, nfrd, security, architecture), title, and
body. No prose outside the JSON.`,

	models.RoleFormatter: `You are a professional document publisher.
Render the draft document you are given into the requested output format.
Respond with the rendered document body only, no commentary.`,
}
